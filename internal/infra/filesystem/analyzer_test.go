package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, size int, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestAnalyzeFlatDirectory(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(root, "a.bin"), 10, base)
	writeFile(t, filepath.Join(root, "b.bin"), 20, base.Add(48*time.Hour))
	writeFile(t, filepath.Join(root, "c.bin"), 30, base.Add(24*time.Hour))

	m := NewAnalyzer(2).Analyze(root)
	if m.Skipped || m.Partial {
		t.Fatalf("unexpected skipped/partial: %+v", m)
	}
	if m.TotalBytes != 60 {
		t.Fatalf("expected 60 bytes, got %d", m.TotalBytes)
	}
	if m.FileCount != 3 {
		t.Fatalf("expected 3 files, got %d", m.FileCount)
	}
	if m.LastModifiedAt == nil || !m.LastModifiedAt.Equal(base.Add(48*time.Hour)) {
		t.Fatalf("expected newest mtime, got %v", m.LastModifiedAt)
	}
	if m.LastAccessedAt == nil {
		t.Fatalf("expected access time to be set")
	}
}

func TestAnalyzeNestedDirectoriesSumAcrossLevels(t *testing.T) {
	root := t.TempDir()
	now := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeFile(t, filepath.Join(root, "top.bin"), 5, now.Add(-72*time.Hour))
	writeFile(t, filepath.Join(root, "a", "b", "c", "deep.bin"), 7, now)
	writeFile(t, filepath.Join(root, "a", "mid.bin"), 11, now.Add(-24*time.Hour))
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{1, 4} {
		m := NewAnalyzer(workers).Analyze(root)
		if m.TotalBytes != 23 || m.FileCount != 3 {
			t.Fatalf("workers=%d: unexpected totals %+v", workers, m)
		}
		if m.LastModifiedAt == nil || !m.LastModifiedAt.Equal(now) {
			t.Fatalf("workers=%d: expected deep file mtime, got %v", workers, m.LastModifiedAt)
		}
	}
}

func TestAnalyzeEmptyDirectoryHasNoTimestamps(t *testing.T) {
	m := NewAnalyzer(1).Analyze(t.TempDir())
	if m.Skipped || m.Partial || m.FileCount != 0 || m.TotalBytes != 0 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	if m.LastModifiedAt != nil || m.LastAccessedAt != nil {
		t.Fatalf("expected nil timestamps for empty directory")
	}
}

func TestAnalyzeMissingRootIsSkipped(t *testing.T) {
	m := NewAnalyzer(1).Analyze(filepath.Join(t.TempDir(), "missing"))
	if !m.Skipped {
		t.Fatalf("expected skipped metrics")
	}
	if m.Partial || m.TotalBytes != 0 || m.FileCount != 0 || m.LastModifiedAt != nil {
		t.Fatalf("skipped metrics must be zero: %+v", m)
	}
	if m.Error == "" {
		t.Fatalf("expected error message")
	}
}

func TestAnalyzeFileRootIsSkipped(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plain.txt")
	writeFile(t, p, 3, time.Now())

	m := NewAnalyzer(1).Analyze(p)
	if !m.Skipped || m.Error == "" {
		t.Fatalf("expected skipped metrics with error, got %+v", m)
	}
}

func TestAnalyzeUnreadableSubdirectoryMarksPartial(t *testing.T) {
	root := t.TempDir()
	now := time.Now().Add(-time.Minute).Truncate(time.Second)
	writeFile(t, filepath.Join(root, "ok", "a.bin"), 40, now)
	writeFile(t, filepath.Join(root, "locked", "b.bin"), 99, now)
	writeFile(t, filepath.Join(root, "root.bin"), 2, now)

	locked := filepath.Join(root, "locked")
	original := readDir
	readDir = func(name string) ([]os.DirEntry, error) {
		if name == locked {
			return nil, fs.ErrPermission
		}
		return original(name)
	}
	t.Cleanup(func() { readDir = original })

	m := NewAnalyzer(2).Analyze(root)
	if m.Skipped {
		t.Fatalf("subtree failure must not skip the root")
	}
	if !m.Partial || m.SkippedEntries != 1 {
		t.Fatalf("expected partial with one skipped entry, got %+v", m)
	}
	if m.TotalBytes != 42 || m.FileCount != 2 {
		t.Fatalf("expected readable siblings to count, got %+v", m)
	}
}

func TestAnalyzeUnreadableRootIsSkipped(t *testing.T) {
	root := t.TempDir()
	original := readDir
	readDir = func(name string) ([]os.DirEntry, error) {
		return nil, fs.ErrPermission
	}
	t.Cleanup(func() { readDir = original })

	m := NewAnalyzer(1).Analyze(root)
	if !m.Skipped || m.Partial {
		t.Fatalf("expected skipped root, got %+v", m)
	}
}

func TestAnalyzeFileStatRaceIsIgnored(t *testing.T) {
	root := t.TempDir()
	now := time.Now().Add(-time.Minute)
	writeFile(t, filepath.Join(root, "gone.bin"), 50, now)
	writeFile(t, filepath.Join(root, "kept.bin"), 8, now)

	original := entryInfo
	entryInfo = func(e fs.DirEntry) (fs.FileInfo, error) {
		if e.Name() == "gone.bin" {
			return nil, errors.New("no such file")
		}
		return original(e)
	}
	t.Cleanup(func() { entryInfo = original })

	m := NewAnalyzer(1).Analyze(root)
	if m.Partial || m.SkippedEntries != 0 {
		t.Fatalf("stat races must not mark partial: %+v", m)
	}
	if m.TotalBytes != 8 || m.FileCount != 1 {
		t.Fatalf("unexpected totals: %+v", m)
	}
}

func TestAnalyzeIgnoresSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "big.bin"), 1000, time.Now())
	writeFile(t, filepath.Join(root, "small.bin"), 1, time.Now())
	if err := os.Symlink(outside, filepath.Join(root, "dirlink")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "big.bin"), filepath.Join(root, "filelink")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	m := NewAnalyzer(1).Analyze(root)
	if m.TotalBytes != 1 || m.FileCount != 1 {
		t.Fatalf("symlinks must not be counted or followed: %+v", m)
	}
}
