package cmd

import (
	"github.com/spf13/cobra"

	"cachesweep/internal/app/common"
	"cachesweep/internal/app/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Measure cache and temp directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.FromCommand(cmd)
		if err != nil {
			return err
		}

		result, err := scan.NewService().Run(cmd.Context(), app)
		return printOutcome(result, err)
	},
}
