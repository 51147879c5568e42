package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cachesweep/internal/app/common"
)

var runInteractiveCommand = runSelf

// runSelf executes the binary again with args, sharing the terminal.
func runSelf(ctx context.Context, args ...string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	c := exec.CommandContext(ctx, exe, args...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	return c.Run()
}

// childArgs builds the command line for a menu action, carrying over the
// flags that select settings, policy and log location.
func childArgs(o common.GlobalOptions, action []string) []string {
	args := append([]string(nil), action...)
	if o.ConfigPath != "" {
		args = append(args, "--config", o.ConfigPath)
	}
	if o.PolicyPath != "" {
		args = append(args, "--policy", o.PolicyPath)
	}
	if o.LogDir != "" {
		args = append(args, "--log-dir", o.LogDir)
	}
	if o.NoRunLog {
		args = append(args, "--no-runlog")
	}
	if o.Debug {
		args = append(args, "--debug")
	}
	return args
}

type sweepAction struct {
	label   string
	help    string
	args    []string
	confirm bool
}

var sweepActions = []sweepAction{
	{label: "Scan", help: "Measure cache and temp directories", args: []string{"scan"}},
	{label: "Plan cleanup", help: "Dry run: show what the policy would trash", args: []string{"clean"}},
	{label: "Trash eligible items", help: "Move eligible contents to the trash", args: []string{"clean", "--apply", "--yes"}, confirm: true},
	{label: "Report", help: "Summarize recorded runs", args: []string{"report"}},
	{label: "Rules", help: "Show the effective risk policy", args: []string{"rules"}},
}

// menuModel lists sweepActions plus a trailing quit entry. Destructive
// actions ask for a y/n confirmation before they are chosen.
type menuModel struct {
	header     string
	cursor     int
	confirming bool
	chosen     []string
	quit       bool
}

func newMenuModel(app *common.AppContext) menuModel {
	header := ""
	if app != nil {
		header = fmt.Sprintf("policy %s, logs %s", app.Policy.Source, app.Settings.LogDir)
	}
	return menuModel{header: header}
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) quitIndex() int { return len(sweepActions) }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.confirming {
		switch key.String() {
		case "y", "Y":
			m.confirming = false
			m.chosen = append([]string(nil), sweepActions[m.cursor].args...)
			return m, tea.Quit
		case "ctrl+c":
			m.quit = true
			return m, tea.Quit
		default:
			m.confirming = false
		}
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.quit = true
		return m, tea.Quit
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, m.quitIndex())
	case "enter":
		if m.cursor == m.quitIndex() {
			m.quit = true
			return m, tea.Quit
		}
		if sweepActions[m.cursor].confirm {
			m.confirming = true
			return m, nil
		}
		m.chosen = append([]string(nil), sweepActions[m.cursor].args...)
		return m, tea.Quit
	}
	return m, nil
}

var pointerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

func (m menuModel) View() string {
	var b strings.Builder
	b.WriteString(common.HeadingStyle.Render("Cachesweep Interactive"))
	b.WriteString("\n")
	if m.header != "" {
		b.WriteString(common.FaintStyle.Render(m.header))
		b.WriteString("\n")
	}
	b.WriteString(common.FaintStyle.Render("Use ↑/↓ (or j/k), Enter to run, q to quit"))
	b.WriteString("\n\n")

	row := func(i int, label, help string) {
		if i == m.cursor {
			b.WriteString(pointerStyle.Render("> " + label))
		} else {
			b.WriteString("  " + label)
		}
		if help != "" {
			b.WriteString(common.FaintStyle.Render("  " + help))
		}
		b.WriteString("\n")
	}
	for i, a := range sweepActions {
		row(i, a.label, a.help)
	}
	row(m.quitIndex(), "Quit", "")

	if m.confirming {
		b.WriteString("\n")
		b.WriteString(common.WarnStyle.Render(sweepActions[m.cursor].label + ": move eligible contents to the trash? [y/N]"))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func runInteractiveMenu(ctx context.Context, app *common.AppContext) error {
	for {
		result, err := tea.NewProgram(newMenuModel(app)).Run()
		if err != nil {
			return err
		}
		m, ok := result.(menuModel)
		if !ok || m.quit {
			return nil
		}
		if len(m.chosen) == 0 {
			continue
		}

		fmt.Println()
		if err := runInteractiveCommand(ctx, childArgs(app.Options, m.chosen)...); err != nil {
			return fmt.Errorf("%s failed: %w", strings.Join(m.chosen, " "), err)
		}
		fmt.Println()
	}
}
