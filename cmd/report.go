package cmd

import (
	"github.com/spf13/cobra"

	"cachesweep/internal/app/common"
	"cachesweep/internal/app/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.FromCommand(cmd)
		if err != nil {
			return err
		}

		result, err := report.NewService().Run(cmd.Context(), app)
		if err != nil {
			return err
		}
		return printResult(result)
	},
}
