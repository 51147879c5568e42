package planner

import (
	"fmt"
	"sort"
	"time"

	"cachesweep/internal/domain/model"
	"cachesweep/internal/domain/rules"
)

const maxErrorLen = 160

// BuildPlan produces exactly one item per target, sorted by id. A nil decider
// is replaced by rules.FallbackDecider.
func BuildPlan(targets []model.ScanTarget, decider rules.Decider, now time.Time, dryRun, apply bool) model.Plan {
	if decider == nil {
		decider = rules.FallbackDecider{}
	}

	items := make([]model.CleanPlanItem, 0, len(targets))
	for _, t := range targets {
		items = append(items, BuildItem(t, decider.Decide(t.ID), now))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return model.Plan{
		GeneratedAt: now.UTC(),
		DryRun:      dryRun,
		Apply:       apply,
		Items:       items,
		Summary:     Summarize(items),
	}
}

// BuildItem applies the gates in priority order; the decision's own reasons
// always close the reason list.
func BuildItem(t model.ScanTarget, d model.Decision, now time.Time) model.CleanPlanItem {
	item := model.CleanPlanItem{
		ID:            t.ID,
		DisplayName:   t.DisplayName,
		Path:          t.Path,
		Exists:        t.Exists,
		Risk:          d.Risk,
		SafeAfterDays: d.SafeAfterDays,
	}

	var reasons []string
	status := gate(t, d, now, &reasons)

	item.Status = status
	if status == model.StatusEligible {
		item.EstimatedBytes = t.Metrics.TotalBytes
	}
	item.Reasons = append(reasons, d.Reasons...)
	return item
}

func gate(t model.ScanTarget, d model.Decision, now time.Time, reasons *[]string) model.PlanStatus {
	if !t.Exists {
		*reasons = append(*reasons, "Target path does not exist.")
		return model.StatusBlocked
	}
	if t.Metrics.Skipped {
		*reasons = append(*reasons, fmt.Sprintf("Scan failed: %s", truncate(t.Metrics.Error, maxErrorLen)))
		return model.StatusBlocked
	}
	if d.Risk == model.RiskDoNotTouch {
		*reasons = append(*reasons, "Risk rule marks this target as do-not-touch.")
		return model.StatusBlocked
	}

	status := model.StatusCaution
	if d.Risk == model.RiskSafe {
		status = model.StatusEligible
	}

	if t.Metrics.Partial {
		*reasons = append(*reasons,
			fmt.Sprintf("%d subpath(s) could not be read.", t.Metrics.SkippedEntries),
			"Estimated size may be inaccurate because the scan was partial.",
		)
		return model.StatusCaution
	}

	if status != model.StatusEligible {
		return status
	}

	if t.Metrics.LastModifiedAt == nil {
		*reasons = append(*reasons, "Last modified time is unknown; cannot determine age.")
		return model.StatusCaution
	}
	age := AgeDays(*t.Metrics.LastModifiedAt, now)
	if age < uint64(d.SafeAfterDays) {
		*reasons = append(*reasons, fmt.Sprintf("Last modified %d day(s) ago; requires at least %d day(s).", age, d.SafeAfterDays))
		return model.StatusCaution
	}
	*reasons = append(*reasons, fmt.Sprintf("Last modified %d day(s) ago; meets the %d day threshold.", age, d.SafeAfterDays))
	return model.StatusEligible
}

// AgeDays is the number of whole days between lastModified and now, zero when
// lastModified is not in the past.
func AgeDays(lastModified, now time.Time) uint64 {
	delta := now.Sub(lastModified)
	if delta <= 0 {
		return 0
	}
	return uint64(delta / (24 * time.Hour))
}

func Summarize(items []model.CleanPlanItem) model.PlanSummary {
	var s model.PlanSummary
	for _, it := range items {
		switch it.Status {
		case model.StatusEligible:
			s.Eligible++
		case model.StatusCaution:
			s.Caution++
		case model.StatusBlocked:
			s.Blocked++
		}
		s.EstimatedBytes += it.EstimatedBytes
	}
	return s
}

func truncate(s string, n int) string {
	if s == "" {
		return "unknown error"
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
