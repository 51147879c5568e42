package common

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"cachesweep/internal/domain/model"
	"cachesweep/internal/infra/metrics"
	"cachesweep/internal/infra/runlog"
)

// RecordRun persists rl and, when configured, the metrics textfile. A run
// log that could not be written is returned as an error matching
// runlog.ErrLogWrite; a metrics failure is only a warning.
func RecordRun(ctx context.Context, app *AppContext, rl model.RunLog) (string, []string, error) {
	var warnings []string
	logger := app.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var logPath string
	var logErr error
	if !app.Options.NoRunLog {
		path, err := runlog.NewWriter(app.Settings.LogDir, logger).Write(ctx, rl)
		if err != nil {
			logger.Error("run log not written", zap.String("dir", app.Settings.LogDir), zap.Error(err))
			if !errors.Is(err, runlog.ErrLogWrite) {
				err = fmt.Errorf("%w: %w", runlog.ErrLogWrite, err)
			}
			logErr = fmt.Errorf("run not recorded: %w", err)
		} else {
			logPath = path
			logger.Debug("run log written", zap.String("path", path))
		}
	}

	if app.Settings.MetricsFile != "" {
		rec := metrics.NewRecorder()
		rec.ObserveRun(rl)
		if err := rec.WriteTextfile(app.Settings.MetricsFile); err != nil {
			logger.Warn("metrics textfile not written", zap.String("path", app.Settings.MetricsFile), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("metrics not written: %v", err))
		}
	}
	return logPath, warnings, logErr
}
