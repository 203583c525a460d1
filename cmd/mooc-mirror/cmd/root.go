package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	targetDir  string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "mooc-mirror",
	Short: "Mirror online courses to a local directory tree",
	Long: `mooc-mirror turns a course syllabus into a faithful on-disk mirror:
sections become numbered directories, lectures become numbered files, and
re-running the tool downloads only what is missing. Interrupted transfers
resume, failures are reported with enough context to retry, and content
referenced from several places is stored once and linked.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mooc-mirror %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to settings file")
	rootCmd.PersistentFlags().StringVarP(&targetDir, "output", "o", "", "target directory (overrides settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "detailed output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output (errors only)")

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the console logger honoring --verbose and --quiet.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.ErrorLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
