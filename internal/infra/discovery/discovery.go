package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"cachesweep/internal/domain/model"
)

// Discoverer is one independent source for cleanup targets.
type Discoverer interface {
	Name() string
	Discover(ctx context.Context) ([]model.RawTarget, error)
}

// Discover runs every source concurrently. A failing source contributes a
// warning instead of targets. Results are concatenated in source order, the
// first target for an id wins, and the list is sorted by id.
func Discover(ctx context.Context, sources ...Discoverer) ([]model.RawTarget, []string) {
	found := make([][]model.RawTarget, len(sources))
	failed := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range sources {
		g.Go(func() error {
			targets, err := p.Discover(gctx)
			if err != nil {
				failed[i] = fmt.Errorf("discovery source %s: %w", p.Name(), err)
				return nil
			}
			found[i] = targets
			return nil
		})
	}
	_ = g.Wait()

	var warnings []string
	for _, err := range failed {
		if err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	seen := make(map[string]bool)
	var out []model.RawTarget
	for _, targets := range found {
		for _, t := range targets {
			if !filepath.IsAbs(t.Path) {
				warnings = append(warnings, fmt.Sprintf("target %s ignored: path %q is not absolute", t.ID, t.Path))
				continue
			}
			if seen[t.ID] {
				warnings = append(warnings, fmt.Sprintf("target %s ignored: duplicate id for %s", t.ID, t.Path))
				continue
			}
			seen[t.ID] = true
			t.Path = filepath.Clean(t.Path)
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, warnings
}

// MetricsFunc measures one target root.
type MetricsFunc func(root string) model.ScanMetrics

var statPath = os.Stat

// Enrich analyzes every target concurrently, at most limit at a time, and
// returns them sorted by id.
func Enrich(ctx context.Context, raws []model.RawTarget, analyze MetricsFunc, limit int) []model.ScanTarget {
	out := make([]model.ScanTarget, len(raws))

	g, _ := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, raw := range raws {
		g.Go(func() error {
			out[i] = enrichOne(raw, analyze)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func enrichOne(raw model.RawTarget, analyze MetricsFunc) model.ScanTarget {
	t := model.ScanTarget{
		ID:          raw.ID,
		Kind:        raw.Kind,
		Path:        raw.Path,
		DisplayName: raw.DisplayName,
		Diagnostics: raw.Diagnostics,
	}
	if _, err := statPath(raw.Path); os.IsNotExist(err) {
		return t
	}
	t.Exists = true
	t.Metrics = analyze(raw.Path)
	return t
}
