package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"cachesweep/internal/domain/model"
)

var (
	statPath  = os.Stat
	readDir   = os.ReadDir
	entryInfo = func(e fs.DirEntry) (fs.FileInfo, error) { return e.Info() }
)

// Analyzer measures directory trees. Subdirectories are fanned out to
// goroutines while a slot is free and walked inline otherwise.
type Analyzer struct {
	sem chan struct{}
}

func NewAnalyzer(maxConcurrency int) *Analyzer {
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU() * 2
	}
	return &Analyzer{sem: make(chan struct{}, maxConcurrency)}
}

var defaultAnalyzer = NewAnalyzer(0)

// Analyze measures root with the shared default analyzer.
func Analyze(root string) model.ScanMetrics {
	return defaultAnalyzer.Analyze(root)
}

// Analyze never fails: an unusable root yields Skipped metrics, unreadable
// subdirectories yield Partial metrics.
func (a *Analyzer) Analyze(root string) model.ScanMetrics {
	info, err := statPath(root)
	if err != nil {
		return skippedMetrics(fmt.Sprintf("cannot stat %s: %v", root, err))
	}
	if !info.IsDir() {
		return skippedMetrics(fmt.Sprintf("%s is not a directory", root))
	}

	entries, err := readDir(root)
	if err != nil && len(entries) == 0 {
		return skippedMetrics(fmt.Sprintf("cannot read %s: %v", root, err))
	}

	t := a.walk(root, entries)
	if err != nil {
		t.unreadable++
	}
	return t.metrics()
}

func skippedMetrics(msg string) model.ScanMetrics {
	return model.ScanMetrics{Skipped: true, Error: msg}
}

type totals struct {
	bytes      uint64
	files      uint64
	mtime      time.Time
	atime      time.Time
	unreadable uint32
}

func (t *totals) addFile(info fs.FileInfo) {
	if size := info.Size(); size > 0 {
		t.bytes += uint64(size)
	}
	t.files++
	if mt := info.ModTime(); mt.After(t.mtime) {
		t.mtime = mt
	}
	if at := accessTime(info); at.After(t.atime) {
		t.atime = at
	}
}

func (t *totals) merge(o totals) {
	t.bytes += o.bytes
	t.files += o.files
	t.unreadable += o.unreadable
	if o.mtime.After(t.mtime) {
		t.mtime = o.mtime
	}
	if o.atime.After(t.atime) {
		t.atime = o.atime
	}
}

func (t totals) metrics() model.ScanMetrics {
	m := model.ScanMetrics{
		TotalBytes:     t.bytes,
		FileCount:      t.files,
		SkippedEntries: t.unreadable,
		Partial:        t.unreadable > 0,
	}
	if t.files > 0 {
		mt := t.mtime.UTC()
		at := t.atime.UTC()
		m.LastModifiedAt = &mt
		m.LastAccessedAt = &at
	}
	return m
}

func (a *Analyzer) walkDir(dir string) totals {
	entries, err := readDir(dir)
	t := a.walk(dir, entries)
	if err != nil {
		t.unreadable++
	}
	return t
}

func (a *Analyzer) walk(dir string, entries []fs.DirEntry) totals {
	var own totals
	var children totals
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, e := range entries {
		switch {
		case e.Type().IsRegular():
			info, err := entryInfo(e)
			if err != nil {
				// vanished between listing and stat
				continue
			}
			own.addFile(info)
		case e.IsDir():
			sub := filepath.Join(dir, e.Name())
			select {
			case a.sem <- struct{}{}:
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer func() { <-a.sem }()
					t := a.walkDir(sub)
					mu.Lock()
					children.merge(t)
					mu.Unlock()
				}()
			default:
				t := a.walkDir(sub)
				mu.Lock()
				children.merge(t)
				mu.Unlock()
			}
		}
	}

	wg.Wait()
	own.merge(children)
	return own
}
