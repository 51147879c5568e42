package cmd

import (
	"github.com/spf13/cobra"

	"cachesweep/internal/app/clean"
	"cachesweep/internal/app/common"
)

var cleanOpts clean.Options

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Plan cleanup; with --apply move eligible contents to the trash",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.FromCommand(cmd)
		if err != nil {
			return err
		}

		result, err := clean.NewService().Run(cmd.Context(), app, cleanOpts)
		return printOutcome(result, err)
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanOpts.Apply, "apply", false, "Move eligible contents to the trash (requires --yes)")
}
