package clean

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"cachesweep/internal/app/common"
	"cachesweep/internal/domain/model"
	"cachesweep/internal/domain/rules"
	"cachesweep/internal/infra/config"
	"cachesweep/internal/infra/runlog"
	"cachesweep/internal/infra/trash"
)

// isolate points every built-in source at empty directories so only the
// custom target under test carries data.
func isolate(t *testing.T) string {
	t.Helper()
	base, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{"home", "cache", "tmp"} {
		if err := os.MkdirAll(filepath.Join(base, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))
	t.Setenv("TMPDIR", filepath.Join(base, "tmp"))
	return base
}

func buildTarget(t *testing.T, base string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(base, "build-cache")
	old := time.Now().Add(-age)
	for _, name := range []string{"a.o", "b.o"} {
		p := filepath.Join(dir, "objs", name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, make([]byte, 64), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testApp(base, target string, opts common.GlobalOptions) *common.AppContext {
	resolver := rules.NewResolver(model.RuleConfig{
		Rules:    []model.Rule{{ID: "build", Risk: model.RiskSafe, SafeAfterDays: 7, Description: "Build objects"}},
		Defaults: model.RuleDefaults{Risk: model.RiskCaution, SafeAfterDays: 30},
	})
	return &common.AppContext{
		Options: opts,
		Settings: config.Settings{
			LogDir:      filepath.Join(base, "logs"),
			TrashDir:    filepath.Join(base, "Trash"),
			CustomPaths: []config.CustomPath{{ID: "build", Path: target, DisplayName: "Build"}},
		},
		Policy: common.Policy{Decider: resolver, Source: "test"},
		Logger: zap.NewNop(),
	}
}

func itemByID(t *testing.T, plan model.Plan, id string) model.CleanPlanItem {
	t.Helper()
	for _, it := range plan.Items {
		if it.ID == id {
			return it
		}
	}
	t.Fatalf("plan has no item %q", id)
	return model.CleanPlanItem{}
}

func TestRunDryRunDoesNotDelete(t *testing.T) {
	base := isolate(t)
	target := buildTarget(t, base, 30*24*time.Hour)

	res, err := NewService().Run(context.Background(), testApp(base, target, common.GlobalOptions{}), Options{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(target, "objs", "a.o")); err != nil {
		t.Fatalf("expected files to survive a dry run: %v", err)
	}
	it := itemByID(t, res.Plan, "build")
	if it.Status != model.StatusEligible || it.EstimatedBytes != 128 {
		t.Fatalf("expected eligible 128 bytes, got %s %d", it.Status, it.EstimatedBytes)
	}
	if res.ApplySummary != nil || len(res.ApplyResults) != 0 {
		t.Fatalf("dry run must not produce apply results")
	}

	rl, err := runlog.Read(res.RunLog)
	if err != nil {
		t.Fatal(err)
	}
	if rl.Command != "clean" || !rl.DryRun || rl.Apply == nil || *rl.Apply || rl.Plan == nil {
		t.Fatalf("unexpected run log header: %+v", rl)
	}
}

func TestRunRequiresYesForApply(t *testing.T) {
	base := isolate(t)
	target := buildTarget(t, base, 30*24*time.Hour)

	_, err := NewService().Run(context.Background(), testApp(base, target, common.GlobalOptions{}), Options{Apply: true})
	if err == nil {
		t.Fatal("expected confirmation error")
	}
	if _, err := os.Stat(filepath.Join(base, "logs")); !os.IsNotExist(err) {
		t.Fatalf("refused run must not write a run log")
	}
}

func TestRunApplyTrashesChildrenOnly(t *testing.T) {
	base := isolate(t)
	target := buildTarget(t, base, 30*24*time.Hour)

	res, err := NewService().Run(context.Background(), testApp(base, target, common.GlobalOptions{Yes: true}), Options{Apply: true})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatalf("target directory itself must remain: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected target emptied, found %d entries", len(entries))
	}
	if _, err := os.Stat(filepath.Join(base, "Trash", "files", "objs", "a.o")); err != nil {
		t.Fatalf("expected payload in trash: %v", err)
	}

	if res.ApplySummary == nil || res.ApplySummary.Trashed != 1 || res.ApplySummary.TrashedBytes != 128 {
		t.Fatalf("unexpected apply summary: %+v", res.ApplySummary)
	}
	if len(res.ApplyResults) != len(res.Plan.Items) {
		t.Fatalf("every plan item needs an apply result")
	}

	rl, err := runlog.Read(res.RunLog)
	if err != nil {
		t.Fatal(err)
	}
	if rl.DryRun || rl.Apply == nil || !*rl.Apply || rl.ApplySummary == nil || rl.ApplySummary.Trashed != 1 {
		t.Fatalf("unexpected run log: %+v", rl)
	}
}

func TestRunApplyLeavesYoungTargetAlone(t *testing.T) {
	base := isolate(t)
	target := buildTarget(t, base, 24*time.Hour)

	res, err := NewService().Run(context.Background(), testApp(base, target, common.GlobalOptions{Yes: true}), Options{Apply: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(target, "objs", "a.o")); err != nil {
		t.Fatalf("young target must survive apply: %v", err)
	}
	if res.ApplySummary.Trashed != 0 || res.ApplySummary.Skipped != len(res.Plan.Items) {
		t.Fatalf("expected everything skipped, got %+v", res.ApplySummary)
	}
}

type fakeTrasher struct {
	called []string
	fail   map[string]error
}

func (f *fakeTrasher) Trash(path string) error {
	f.called = append(f.called, path)
	return f.fail[filepath.Base(path)]
}

var _ trash.Trasher = (*fakeTrasher)(nil)

type fakeDirEntry struct{ name string }

func (f fakeDirEntry) Name() string               { return f.name }
func (f fakeDirEntry) IsDir() bool                { return false }
func (f fakeDirEntry) Type() os.FileMode          { return 0 }
func (f fakeDirEntry) Info() (os.FileInfo, error) { return nil, os.ErrNotExist }

func stubReadDir(t *testing.T, listing map[string][]string) {
	t.Helper()
	old := readDir
	readDir = func(name string) ([]os.DirEntry, error) {
		names, ok := listing[name]
		if !ok {
			return nil, os.ErrNotExist
		}
		out := make([]os.DirEntry, 0, len(names))
		for _, n := range names {
			out = append(out, fakeDirEntry{name: n})
		}
		return out, nil
	}
	t.Cleanup(func() { readDir = old })
}

func TestApplyTrashesChildrenNotTheTarget(t *testing.T) {
	stubReadDir(t, map[string][]string{"/tmp/cache": {"a.tmp", "b.tmp"}})
	bin := &fakeTrasher{}

	results, summary := Apply(context.Background(), []model.CleanPlanItem{
		{ID: "cache", Path: "/tmp/cache", Status: model.StatusEligible, EstimatedBytes: 10},
	}, bin, nil, zap.NewNop())

	if len(bin.called) != 2 {
		t.Fatalf("expected 2 child moves, got %v", bin.called)
	}
	for _, c := range bin.called {
		if c == "/tmp/cache" {
			t.Fatalf("expected not to trash the target directory itself")
		}
	}
	if results[0].Status != model.ApplyTrashed || summary.TrashedBytes != 10 {
		t.Fatalf("unexpected result: %+v %+v", results[0], summary)
	}
}

func TestApplyRecordsEveryOutcome(t *testing.T) {
	stubReadDir(t, map[string][]string{
		"/tmp/ok":    {"x"},
		"/tmp/half":  {"good", "bad"},
		"/tmp/empty": {},
	})
	bin := &fakeTrasher{fail: map[string]error{"bad": errors.New("busy")}}

	items := []model.CleanPlanItem{
		{ID: "blocked", Path: "/tmp/blocked", Status: model.StatusBlocked},
		{ID: "caution", Path: "/tmp/caution", Status: model.StatusCaution},
		{ID: "empty", Path: "/tmp/empty", Status: model.StatusEligible},
		{ID: "etc", Path: "/etc/app", Status: model.StatusEligible, EstimatedBytes: 99},
		{ID: "gone", Path: "/tmp/gone", Status: model.StatusEligible, EstimatedBytes: 5},
		{ID: "half", Path: "/tmp/half", Status: model.StatusEligible, EstimatedBytes: 7},
		{ID: "ok", Path: "/tmp/ok", Status: model.StatusEligible, EstimatedBytes: 3},
	}
	results, summary := Apply(context.Background(), items, bin, nil, zap.NewNop())

	want := map[string]model.ApplyStatus{
		"blocked": model.ApplySkipped,
		"caution": model.ApplySkipped,
		"empty":   model.ApplyTrashed,
		"etc":     model.ApplyFailed,
		"gone":    model.ApplyFailed,
		"half":    model.ApplyFailed,
		"ok":      model.ApplyTrashed,
	}
	if len(results) != len(items) {
		t.Fatalf("expected one result per item, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != want[r.ID] {
			t.Fatalf("%s: got %s want %s (%s)", r.ID, r.Status, want[r.ID], r.Error)
		}
	}
	if results[1].Reason != "status is caution" {
		t.Fatalf("unexpected skip reason %q", results[1].Reason)
	}
	if !strings.Contains(results[3].Error, "PATH_BLOCKED") {
		t.Fatalf("expected safety refusal, got %q", results[3].Error)
	}
	if !strings.Contains(results[5].Error, "1 of 2 entries") {
		t.Fatalf("unexpected partial failure error %q", results[5].Error)
	}
	expected := model.ApplySummary{Trashed: 2, Skipped: 2, Failed: 3, TrashedBytes: 3}
	if summary != expected {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestApplyCancelledSkipsRemaining(t *testing.T) {
	stubReadDir(t, map[string][]string{"/tmp/a": {"x"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, summary := Apply(ctx, []model.CleanPlanItem{
		{ID: "a", Path: "/tmp/a", Status: model.StatusEligible},
	}, &fakeTrasher{}, nil, zap.NewNop())

	if results[0].Status != model.ApplySkipped || results[0].Reason != "cancelled" || summary.Skipped != 1 {
		t.Fatalf("unexpected cancelled result: %+v", results[0])
	}
}

func TestRunApplyReportsUnwritableRunLog(t *testing.T) {
	base := isolate(t)
	target := buildTarget(t, base, 30*24*time.Hour)
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	app := testApp(base, target, common.GlobalOptions{Yes: true})
	app.Settings.LogDir = filepath.Join(blocker, "logs")

	res, err := NewService().Run(context.Background(), app, Options{Apply: true})
	if !errors.Is(err, runlog.ErrLogWrite) {
		t.Fatalf("expected run log write error, got %v", err)
	}
	if res.ApplySummary == nil || res.ApplySummary.Trashed != 1 {
		t.Fatalf("apply outcome must still be returned: %+v", res.ApplySummary)
	}
}
