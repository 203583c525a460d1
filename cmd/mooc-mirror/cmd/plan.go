package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moocmirror/mooc-mirror/internal/download"
)

var planCoursesFile string

var planCmd = &cobra.Command{
	Use:   "plan [course-id...]",
	Short: "Show what mirror would download, without downloading",
	Long: `Resolves each course's syllabus into the file tree mirror would create
and prints every target path. Nothing is written to the target directory.
Locked items and unresolvable entries are listed at the end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		courses, err := courseArgs(args, planCoursesFile)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		manager := download.NewManager(settings, newLogger(), nil)
		for _, course := range courses {
			root, result, err := manager.Plan(ctx, course)
			if err != nil {
				errorf("%s: %v", course.ID, err)
				continue
			}

			info("%s (%d files)", root.Title, len(result.Entries))
			for _, entry := range result.Entries {
				if entry.LinkTo != "" {
					info("  %s  -> %s", entry.TargetPath, entry.LinkTo)
				} else {
					info("  %s", entry.TargetPath)
				}
			}
			if result.LockedCount > 0 {
				info("  (%d items locked, will be skipped)", result.LockedCount)
			}
			for _, resErr := range result.Errors {
				errorf("unresolved: %s: %v", resErr.NodeRef, resErr.Cause)
			}
		}
		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planCoursesFile, "courses", "", "YAML file listing courses to plan")
	rootCmd.AddCommand(planCmd)
}
