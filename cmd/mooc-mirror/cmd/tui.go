package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moocmirror/mooc-mirror/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Mirror courses interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		return tui.Run(settings)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
