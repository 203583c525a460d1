package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moocmirror/mooc-mirror/internal/config"
	"github.com/moocmirror/mooc-mirror/internal/download"
)

var (
	mirrorCoursesFile string
	mirrorResume      bool
	mirrorOverwrite   bool
	mirrorPlaylists   bool
	mirrorCombined    bool
	mirrorParallelism int
	mirrorDelay       float64
	mirrorExternal    string
	mirrorCookie      string
	mirrorFormats     []string
	mirrorSectionRe   string
	mirrorItemRe      string
	mirrorResourceRe  string
	mirrorNoURLSkip   bool
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror [course-id...]",
	Short: "Download one or more courses",
	Long: `Downloads every matching file of the named courses into the target
directory. Finished files are recorded per course, so re-running the same
command downloads only what is missing or previously failed. A cancelled
run can be resumed with --resume.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		applyMirrorFlags(cmd, settings)

		courses, err := courseArgs(args, mirrorCoursesFile)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		manager := download.NewManager(settings, newLogger(), consoleProgress)
		summaries, err := manager.MirrorAll(ctx, courses)
		for _, summary := range summaries {
			printSummary(summary)
		}
		if err != nil {
			return fmt.Errorf("run cancelled")
		}
		if len(summaries) < len(courses) {
			return fmt.Errorf("%d course(s) could not be mirrored", len(courses)-len(summaries))
		}
		if failed := failureCount(summaries); failed > 0 {
			return fmt.Errorf("%d file(s) failed; re-run to retry", failed)
		}
		return nil
	},
}

// applyMirrorFlags overlays explicitly set flags onto the settings, so
// the settings file keeps its say for everything untouched.
func applyMirrorFlags(cmd *cobra.Command, settings *config.Settings) {
	if cmd.Flags().Changed("resume") {
		settings.Resume = mirrorResume
	}
	if cmd.Flags().Changed("overwrite") {
		settings.Overwrite = mirrorOverwrite
	}
	if cmd.Flags().Changed("playlists") {
		settings.CreatePlaylists = mirrorPlaylists
	}
	if cmd.Flags().Changed("combined-numbering") {
		settings.CombinedSectionItemNums = mirrorCombined
	}
	if cmd.Flags().Changed("parallelism") {
		settings.Parallelism = mirrorParallelism
	}
	if cmd.Flags().Changed("delay") {
		settings.DownloadDelay = mirrorDelay
	}
	if cmd.Flags().Changed("downloader") {
		settings.ExternalDownloader = mirrorExternal
	}
	if cmd.Flags().Changed("cookie") {
		settings.CookieHeader = mirrorCookie
	}
	if cmd.Flags().Changed("formats") {
		settings.FileFormats = mirrorFormats
	}
	if cmd.Flags().Changed("section-filter") {
		settings.SectionFilter = mirrorSectionRe
	}
	if cmd.Flags().Changed("item-filter") {
		settings.ItemFilter = mirrorItemRe
	}
	if cmd.Flags().Changed("resource-filter") {
		settings.ResourceFilter = mirrorResourceRe
	}
	if cmd.Flags().Changed("disable-url-skipping") {
		settings.DisableURLSkipping = mirrorNoURLSkip
	}
}

func init() {
	mirrorCmd.Flags().StringVar(&mirrorCoursesFile, "courses", "", "YAML file listing courses to mirror")
	mirrorCmd.Flags().BoolVar(&mirrorResume, "resume", false, "resume partially downloaded files")
	mirrorCmd.Flags().BoolVar(&mirrorOverwrite, "overwrite", false, "redownload files that already exist")
	mirrorCmd.Flags().BoolVar(&mirrorPlaylists, "playlists", false, "write a playlist per section")
	mirrorCmd.Flags().BoolVar(&mirrorCombined, "combined-numbering", false, "prefix files with the section number too")
	mirrorCmd.Flags().IntVar(&mirrorParallelism, "parallelism", 4, "concurrent downloads")
	mirrorCmd.Flags().Float64Var(&mirrorDelay, "delay", 0, "seconds to wait between downloads")
	mirrorCmd.Flags().StringVar(&mirrorExternal, "downloader", "", "external downloader (wget, curl, aria2c, axel)")
	mirrorCmd.Flags().StringVar(&mirrorCookie, "cookie", "", "session cookie header value")
	mirrorCmd.Flags().StringSliceVar(&mirrorFormats, "formats", nil, "file formats to download (default all)")
	mirrorCmd.Flags().StringVar(&mirrorSectionRe, "section-filter", "", "only sections matching this pattern")
	mirrorCmd.Flags().StringVar(&mirrorItemRe, "item-filter", "", "only items matching this pattern")
	mirrorCmd.Flags().StringVar(&mirrorResourceRe, "resource-filter", "", "only resources matching this pattern")
	mirrorCmd.Flags().BoolVar(&mirrorNoURLSkip, "disable-url-skipping", false, "download resources whose URLs look like junk")

	rootCmd.AddCommand(mirrorCmd)
}
