package common

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	HeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	FaintStyle   = lipgloss.NewStyle().Faint(true)
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	GoodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	BadStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// HumanBytes renders n with binary units, e.g. 1.5 MiB.
func HumanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
