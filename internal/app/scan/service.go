package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"cachesweep/internal/app/common"
	"cachesweep/internal/domain/model"
	"cachesweep/internal/infra/config"
	"cachesweep/internal/infra/discovery"
	"cachesweep/internal/infra/filesystem"
	"cachesweep/internal/infra/system"
)

var (
	now    = time.Now
	sources = defaultSources
)

func defaultSources(st config.Settings) []discovery.Discoverer {
	return []discovery.Discoverer{
		discovery.TempDirDiscoverer{},
		discovery.ToolCacheDiscoverer{Disabled: st.DisabledTools},
		discovery.CustomPathDiscoverer{Paths: st.CustomPaths},
	}
}

type Service struct{}

type Result struct {
	Timestamp  time.Time          `json:"timestamp"`
	Targets    []model.ScanTarget `json:"targets"`
	TotalBytes uint64             `json:"totalBytes"`
	Warnings   []string           `json:"warnings,omitempty"`
	RunLog     string             `json:"runLog,omitempty"`
}

func NewService() Service { return Service{} }

func (Service) Run(ctx context.Context, app *common.AppContext) (Result, error) {
	targets, warnings := Collect(ctx, app)
	res := Result{
		Timestamp: now().UTC(),
		Targets:   targets,
		Warnings:  append(append([]string(nil), app.Warnings...), warnings...),
	}
	for _, t := range targets {
		res.TotalBytes += t.Metrics.TotalBytes
	}

	logPath, recWarnings, recErr := common.RecordRun(ctx, app, model.RunLog{
		Timestamp: res.Timestamp,
		Command:   "scan",
		DryRun:    true,
		Warnings:  res.Warnings,
		Targets:   targets,
	})
	res.RunLog = logPath
	res.Warnings = append(res.Warnings, recWarnings...)
	return res, recErr
}

// Collect discovers every target and measures it. Discovery problems and
// targets that could not be fully measured are reported as warnings.
func Collect(ctx context.Context, app *common.AppContext) ([]model.ScanTarget, []string) {
	logger := app.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	raws, warnings := discovery.Discover(ctx, sources(app.Settings)...)
	analyzer := filesystem.NewAnalyzer(app.Settings.Concurrency)
	targets := discovery.Enrich(ctx, raws, analyzer.Analyze, app.Settings.Concurrency)
	system.Annotate(targets)

	for _, t := range targets {
		fields := []zap.Field{zap.String("target", t.ID), zap.String("path", t.Path)}
		switch {
		case !t.Exists:
			logger.Debug("target missing", fields...)
		case t.Metrics.Skipped:
			logger.Warn("target skipped", append(fields, zap.String("error", t.Metrics.Error))...)
			warnings = append(warnings, fmt.Sprintf("%s: scan skipped: %s", t.ID, t.Metrics.Error))
		case t.Metrics.Partial:
			logger.Warn("target partially scanned", append(fields, zap.Uint32("unreadable", t.Metrics.SkippedEntries))...)
			warnings = append(warnings, fmt.Sprintf("%s: %d subpath(s) could not be read", t.ID, t.Metrics.SkippedEntries))
		default:
			logger.Debug("target scanned", append(fields, zap.Uint64("bytes", t.Metrics.TotalBytes))...)
		}
	}
	return targets, warnings
}

func (r Result) String() string {
	var b strings.Builder
	b.WriteString(common.HeadingStyle.Render(fmt.Sprintf("Scanned %d target(s), %s total", len(r.Targets), common.HumanBytes(r.TotalBytes))))
	b.WriteString("\n")
	for _, t := range r.Targets {
		b.WriteString(fmt.Sprintf("  %-18s %10s  %s", t.ID, targetSize(t), common.FaintStyle.Render(t.Path)))
		if t.Filesystem != nil {
			b.WriteString(common.FaintStyle.Render(fmt.Sprintf("  (%s free)", common.HumanBytes(t.Filesystem.FreeBytes))))
		}
		b.WriteString("\n")
	}
	writeFooter(&b, r.Warnings, r.RunLog)
	return strings.TrimRight(b.String(), "\n")
}

func targetSize(t model.ScanTarget) string {
	switch {
	case !t.Exists:
		return "missing"
	case t.Metrics.Skipped:
		return "skipped"
	case t.Metrics.Partial:
		return "~" + common.HumanBytes(t.Metrics.TotalBytes)
	default:
		return common.HumanBytes(t.Metrics.TotalBytes)
	}
}

func writeFooter(b *strings.Builder, warnings []string, logPath string) {
	for _, w := range warnings {
		b.WriteString(common.WarnStyle.Render("warning: " + w))
		b.WriteString("\n")
	}
	if logPath != "" {
		b.WriteString(common.FaintStyle.Render("run log: " + logPath))
		b.WriteString("\n")
	}
}
