package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cachesweep/internal/app/common"
	"cachesweep/internal/infra/config"
	"cachesweep/internal/infra/logging"
	"cachesweep/internal/infra/runlog"
)

var opts common.GlobalOptions

var rootCmd = &cobra.Command{
	Use:   "cachesweep",
	Short: "Cachesweep finds stale caches and temp files and trashes what is safe",
	Long: "Cachesweep measures known cache and temp directories, applies a risk policy to decide " +
		"what is safe to remove, and moves eligible contents to the trash only when asked. " +
		"Every run is recorded in a run log.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		stdinTTY, stdoutTTY := terminalState()
		if shouldUseInteractive(stdinTTY, stdoutTTY, os.Getenv("TERM")) {
			app, err := common.FromCommand(cmd)
			if err != nil {
				return err
			}
			return runInteractiveMenu(cmd.Context(), app)
		}
		return cmd.Help()
	},
}

func Execute() error {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		appCtx, err := buildAppContext(ctx)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(ctx, common.ContextKeyApp, appCtx))
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app, err := common.FromCommand(cmd); err == nil && app.Logger != nil {
			_ = app.Logger.Sync()
		}
	}

	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&opts.Yes, "yes", false, "Confirm destructive actions in non-interactive mode")
	rootCmd.PersistentFlags().BoolVar(&opts.NoRunLog, "no-runlog", false, "Do not write a run log")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Settings file (default $XDG_CONFIG_HOME/cachesweep/config.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.PolicyPath, "policy", "", "Risk policy JSON file (default $XDG_CONFIG_HOME/cachesweep/rules.json)")
	rootCmd.PersistentFlags().StringVar(&opts.LogDir, "log-dir", "", "Run log directory (default $XDG_STATE_HOME/cachesweep/logs)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(rulesCmd)
}

func printResult(v any) error {
	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	if line, ok := v.(fmt.Stringer); ok {
		fmt.Println(line.String())
		return nil
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

// printOutcome prints a service result and passes its error through. A run
// that completed but could not be recorded still shows what it did.
func printOutcome(v any, err error) error {
	if err != nil && !errors.Is(err, runlog.ErrLogWrite) {
		return err
	}
	if perr := printResult(v); perr != nil {
		return perr
	}
	return err
}

func buildAppContext(ctx context.Context) (*common.AppContext, error) {
	settings, err := config.NewStore(opts.ConfigPath).LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(&settings, opts)

	options := opts
	options.NoRunLog = opts.NoRunLog || os.Getenv("CACHESWEEP_NO_RUNLOG") == "1"

	logger := logging.New(opts.Debug)
	policy, warning := common.ResolvePolicy(settings)
	app := &common.AppContext{
		Options:  options,
		Settings: settings,
		Policy:   policy,
		Logger:   logger,
	}
	if warning != "" {
		logger.Warn("risk policy fallback", zap.String("policy", settings.PolicyFile), zap.String("reason", warning))
		app.Warnings = append(app.Warnings, warning)
	}
	logger.Debug("context ready",
		zap.String("policy", policy.Source),
		zap.String("logDir", settings.LogDir),
		zap.String("trashDir", settings.TrashDir))
	return app, nil
}

// applyFlagOverrides lets command-line flags win over the settings file.
func applyFlagOverrides(st *config.Settings, o common.GlobalOptions) {
	if o.PolicyPath != "" {
		st.PolicyFile = config.ExpandHome(o.PolicyPath)
		st.PolicyExplicit = true
	}
	if o.LogDir != "" {
		st.LogDir = config.ExpandHome(o.LogDir)
	}
}

func terminalState() (stdin bool, stdout bool) {
	tty := func(fd uintptr) bool { return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) }
	return tty(os.Stdin.Fd()), tty(os.Stdout.Fd())
}

func shouldUseInteractive(stdinTTY, stdoutTTY bool, term string) bool {
	return stdinTTY && stdoutTTY && !isDumbTerm(term)
}

func isDumbTerm(term string) bool {
	t := strings.ToLower(strings.TrimSpace(term))
	return t == "" || t == "dumb"
}
