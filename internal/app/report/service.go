package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"cachesweep/internal/app/common"
	"cachesweep/internal/infra/runlog"
)

type Service struct{}

// Snapshot describes the newest run that measured targets.
type Snapshot struct {
	Timestamp        time.Time `json:"timestamp"`
	LogFile          string    `json:"logFile"`
	Command          string    `json:"command"`
	Targets          int       `json:"targets"`
	TotalBytes       uint64    `json:"totalBytes"`
	ReclaimableBytes uint64    `json:"reclaimableBytes"`
}

type Report struct {
	LogDir       string    `json:"logDir"`
	Runs         int       `json:"runs"`
	ScanRuns     int       `json:"scanRuns"`
	CleanRuns    int       `json:"cleanRuns"`
	ApplyRuns    int       `json:"applyRuns"`
	Trashed      int       `json:"trashed"`
	Failed       int       `json:"failed"`
	TrashedBytes uint64    `json:"trashedBytes"`
	LatestScan   *Snapshot `json:"latestScan"`
	LatestRun    string    `json:"latestRun,omitempty"`
	SkippedFiles []string  `json:"skippedFiles,omitempty"`
}

func NewService() Service { return Service{} }

func (Service) Run(ctx context.Context, app *common.AppContext) (Report, error) {
	_ = ctx
	dir := app.Settings.LogDir
	entries, skipped, err := runlog.ReadAll(dir)
	if err != nil {
		return Report{}, fmt.Errorf("read run logs in %s: %w", dir, err)
	}
	if app.Logger != nil {
		for _, s := range skipped {
			app.Logger.Warn("run log skipped", zap.String("path", s))
		}
	}

	r := Fold(entries)
	r.LogDir = dir
	r.SkippedFiles = skipped
	if p, err := runlog.ReadLatestPointer(dir); err == nil {
		r.LatestRun = p.LogFile
	}
	return r, nil
}

// Fold aggregates parsed run logs. It is pure and order independent.
func Fold(entries []runlog.Entry) Report {
	var r Report
	var latestPlanAt time.Time
	var reclaimable uint64

	for _, e := range entries {
		rl := e.Log
		r.Runs++
		switch rl.Command {
		case "scan":
			r.ScanRuns++
		case "clean":
			r.CleanRuns++
		}
		if rl.Apply != nil && *rl.Apply {
			r.ApplyRuns++
		}
		if s := rl.ApplySummary; s != nil {
			r.Trashed += s.Trashed
			r.Failed += s.Failed
			r.TrashedBytes += s.TrashedBytes
		}
		if rl.Plan != nil && !rl.Timestamp.Before(latestPlanAt) {
			latestPlanAt = rl.Timestamp
			reclaimable = rl.Plan.Summary.EstimatedBytes
		}
		if len(rl.Targets) > 0 && (r.LatestScan == nil || !rl.Timestamp.Before(r.LatestScan.Timestamp)) {
			snap := &Snapshot{
				Timestamp: rl.Timestamp,
				LogFile:   filepath.Base(e.Path),
				Command:   rl.Command,
				Targets:   len(rl.Targets),
			}
			for _, t := range rl.Targets {
				snap.TotalBytes += t.Metrics.TotalBytes
			}
			r.LatestScan = snap
		}
	}
	if r.LatestScan != nil {
		r.LatestScan.ReclaimableBytes = reclaimable
	}
	return r
}

func (r Report) String() string {
	var b strings.Builder
	b.WriteString(common.HeadingStyle.Render(fmt.Sprintf("%d run(s): %d scan, %d clean, %d applied", r.Runs, r.ScanRuns, r.CleanRuns, r.ApplyRuns)))
	b.WriteString("\n")
	if s := r.LatestScan; s != nil {
		b.WriteString(fmt.Sprintf("Latest scan %s: %d target(s), %s total, %s reclaimable\n",
			s.Timestamp.Local().Format(time.DateTime), s.Targets, common.HumanBytes(s.TotalBytes), common.HumanBytes(s.ReclaimableBytes)))
	} else {
		b.WriteString(common.FaintStyle.Render("No scan recorded yet"))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Trashed %d item(s), %s; %d failure(s)\n", r.Trashed, common.HumanBytes(r.TrashedBytes), r.Failed))
	if len(r.SkippedFiles) > 0 {
		b.WriteString(common.WarnStyle.Render(fmt.Sprintf("%d corrupt run log(s) skipped", len(r.SkippedFiles))))
		b.WriteString("\n")
	}
	b.WriteString(common.FaintStyle.Render("logs: " + r.LogDir))
	return b.String()
}
