package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/moocmirror/mooc-mirror/internal/cache"
	"github.com/moocmirror/mooc-mirror/internal/ledger"
)

var reportClear bool

var reportCmd = &cobra.Command{
	Use:   "report <course-id>",
	Short: "Show the recorded download state of a course",
	Long: `Prints the per-file download state persisted by the last runs against a
course: what finished, what was skipped, and what failed with which cause.
--clear forgets the recorded state so the next run starts fresh.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		courseID := args[0]
		path := filepath.Join(settings.LedgerDir, courseID+".json")
		led, err := ledger.Load(courseID, path)
		if err != nil {
			return fmt.Errorf("loading state for %s: %w", courseID, err)
		}

		if reportClear {
			if err := led.Clear(); err != nil {
				return err
			}
			// The cached syllabus goes too, so the next run refetches the
			// course structure instead of replaying a stale one.
			if err := cache.NewStore(settings.CacheDir).Evict(courseID); err != nil {
				return err
			}
			info("cleared recorded state for %s", courseID)
			return nil
		}

		report := led.Report()
		total := len(report.Completed) + len(report.Skipped) + len(report.Failed)
		if total == 0 {
			info("no recorded state for %s", courseID)
			return nil
		}

		info("%s: %d completed, %d skipped, %d failed",
			courseID, len(report.Completed), len(report.Skipped), len(report.Failed))
		for _, entry := range report.Failed {
			errorf("failed: %s / %s: %s", entry.Section, entry.Item, entry.LastError)
		}
		if verbose {
			for _, entry := range report.Completed {
				info("  done: %s (%d bytes)", entry.Path, entry.BytesWritten)
			}
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportClear, "clear", false, "forget the recorded state")
	rootCmd.AddCommand(reportCmd)
}
