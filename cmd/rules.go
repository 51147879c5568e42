package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cachesweep/internal/app/common"
	"cachesweep/internal/domain/model"
)

type rulesResult struct {
	Source   string            `json:"source"`
	Policy   *model.RuleConfig `json:"policy"`
	Warnings []string          `json:"warnings,omitempty"`
}

func (r rulesResult) String() string {
	var b strings.Builder
	b.WriteString(common.HeadingStyle.Render("Policy: " + r.Source))
	b.WriteString("\n")
	if r.Policy == nil {
		b.WriteString(common.WarnStyle.Render("no policy loaded; every target is treated as caution"))
	} else {
		for _, rule := range r.Policy.Rules {
			b.WriteString(fmt.Sprintf("  %-18s %-12s %4dd  %s\n", rule.ID, rule.Risk, rule.SafeAfterDays, common.FaintStyle.Render(rule.Description)))
		}
		b.WriteString(fmt.Sprintf("  %-18s %-12s %4dd", "(default)", r.Policy.Defaults.Risk, r.Policy.Defaults.SafeAfterDays))
	}
	for _, w := range r.Warnings {
		b.WriteString("\n")
		b.WriteString(common.WarnStyle.Render("warning: " + w))
	}
	return b.String()
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the effective risk policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.FromCommand(cmd)
		if err != nil {
			return err
		}
		return printResult(rulesResult{
			Source:   app.Policy.Source,
			Policy:   app.Policy.Config,
			Warnings: app.Warnings,
		})
	},
}
