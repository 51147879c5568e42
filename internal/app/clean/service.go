package clean

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"cachesweep/internal/app/common"
	"cachesweep/internal/app/scan"
	"cachesweep/internal/domain/model"
	"cachesweep/internal/domain/planner"
	"cachesweep/internal/infra/trash"
)

var (
	now        = time.Now
	readDir    = os.ReadDir
	newTrasher = func(dir string) trash.Trasher { return trash.New(dir) }
)

type Options struct {
	Apply bool
}

type Service struct{}

type Result struct {
	Plan         model.Plan          `json:"plan"`
	PolicySource string              `json:"policySource,omitempty"`
	ApplyResults []model.ApplyResult `json:"applyResults,omitempty"`
	ApplySummary *model.ApplySummary `json:"applySummary,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
	RunLog       string              `json:"runLog,omitempty"`
}

func NewService() Service { return Service{} }

func (Service) Run(ctx context.Context, app *common.AppContext, opts Options) (Result, error) {
	if err := common.RequireConfirmationOrDryRun(app.Options, !opts.Apply, "clean --apply"); err != nil {
		return Result{}, err
	}
	logger := app.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	targets, warnings := scan.Collect(ctx, app)
	ts := now().UTC()
	plan := planner.BuildPlan(targets, app.Policy.Decider, ts, !opts.Apply, opts.Apply)

	res := Result{
		Plan:         plan,
		PolicySource: app.Policy.Source,
		Warnings:     append(append([]string(nil), app.Warnings...), warnings...),
	}
	if opts.Apply {
		results, summary := Apply(ctx, plan.Items, newTrasher(app.Settings.TrashDir), app.Settings.AllowPaths, logger)
		res.ApplyResults = results
		res.ApplySummary = &summary
	}

	apply := opts.Apply
	logPath, recWarnings, recErr := common.RecordRun(ctx, app, model.RunLog{
		Timestamp:    ts,
		Command:      "clean",
		DryRun:       !opts.Apply,
		Apply:        &apply,
		Warnings:     res.Warnings,
		Targets:      targets,
		Plan:         &res.Plan,
		ApplyResults: res.ApplyResults,
		ApplySummary: res.ApplySummary,
	})
	res.RunLog = logPath
	res.Warnings = append(res.Warnings, recWarnings...)
	return res, recErr
}

// Apply moves the contents of every eligible item to the trash, keeping the
// target directory itself. Every item yields exactly one result.
func Apply(ctx context.Context, items []model.CleanPlanItem, bin trash.Trasher, allowPaths []string, logger *zap.Logger) ([]model.ApplyResult, model.ApplySummary) {
	results := make([]model.ApplyResult, 0, len(items))
	var summary model.ApplySummary

	for _, item := range items {
		r := model.ApplyResult{ID: item.ID, Path: item.Path}
		switch {
		case item.Status != model.StatusEligible:
			r.Status = model.ApplySkipped
			r.Reason = "status is " + string(item.Status)
		case ctx.Err() != nil:
			r.Status = model.ApplySkipped
			r.Reason = "cancelled"
		default:
			trashChildren(item, bin, allowPaths, &r)
		}

		switch r.Status {
		case model.ApplyTrashed:
			summary.Trashed++
			summary.TrashedBytes += r.Bytes
			logger.Info("target trashed", zap.String("target", r.ID), zap.String("path", r.Path), zap.Uint64("bytes", r.Bytes))
		case model.ApplyFailed:
			summary.Failed++
			logger.Warn("target not trashed", zap.String("target", r.ID), zap.String("path", r.Path), zap.String("error", r.Error))
		default:
			summary.Skipped++
		}
		results = append(results, r)
	}
	return results, summary
}

func trashChildren(item model.CleanPlanItem, bin trash.Trasher, allowPaths []string, r *model.ApplyResult) {
	if err := common.ValidateTrashPath(item.Path, allowPaths); err != nil {
		r.Status = model.ApplyFailed
		r.Error = err.Error()
		return
	}
	entries, err := readDir(item.Path)
	if err != nil {
		r.Status = model.ApplyFailed
		r.Error = fmt.Sprintf("list %s: %v", item.Path, err)
		return
	}

	var errs []error
	for _, e := range entries {
		if err := bin.Trash(filepath.Join(item.Path, e.Name())); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
		}
	}
	if len(errs) > 0 {
		r.Status = model.ApplyFailed
		r.Error = fmt.Sprintf("%d of %d entries not trashed: %v", len(errs), len(entries), firstErrors(errs, 3))
		return
	}
	r.Status = model.ApplyTrashed
	r.Bytes = item.EstimatedBytes
	if len(entries) == 0 {
		r.Reason = "nothing to trash"
	}
}

func firstErrors(errs []error, n int) error {
	if len(errs) > n {
		errs = errs[:n]
	}
	return errors.Join(errs...)
}

func (r Result) String() string {
	var b strings.Builder
	s := r.Plan.Summary
	mode := "Dry run"
	if r.Plan.Apply {
		mode = "Applied"
	}
	b.WriteString(common.HeadingStyle.Render(fmt.Sprintf("%s: %d eligible, %d caution, %d blocked, %s reclaimable",
		mode, s.Eligible, s.Caution, s.Blocked, common.HumanBytes(s.EstimatedBytes))))
	b.WriteString("\n")
	for _, it := range r.Plan.Items {
		b.WriteString(fmt.Sprintf("  %-18s %s %10s\n", it.ID, statusLabel(it.Status), common.HumanBytes(it.EstimatedBytes)))
		if len(it.Reasons) > 0 {
			b.WriteString(common.FaintStyle.Render("      " + it.Reasons[0]))
			b.WriteString("\n")
		}
	}
	if r.ApplySummary != nil {
		a := r.ApplySummary
		b.WriteString(fmt.Sprintf("Trashed %d, skipped %d, failed %d (%s moved to trash)\n",
			a.Trashed, a.Skipped, a.Failed, common.HumanBytes(a.TrashedBytes)))
		for _, ar := range r.ApplyResults {
			if ar.Status == model.ApplyFailed {
				b.WriteString(common.BadStyle.Render(fmt.Sprintf("  %s: %s", ar.ID, ar.Error)))
				b.WriteString("\n")
			}
		}
	}
	for _, w := range r.Warnings {
		b.WriteString(common.WarnStyle.Render("warning: " + w))
		b.WriteString("\n")
	}
	if r.RunLog != "" {
		b.WriteString(common.FaintStyle.Render("run log: " + r.RunLog))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusLabel(s model.PlanStatus) string {
	label := fmt.Sprintf("%-8s", s)
	switch s {
	case model.StatusEligible:
		return common.GoodStyle.Render(label)
	case model.StatusCaution:
		return common.WarnStyle.Render(label)
	default:
		return common.BadStyle.Render(label)
	}
}
