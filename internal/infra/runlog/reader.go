package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cachesweep/internal/domain/model"
)

// List returns the run-*.json files in dir, oldest first. A missing
// directory yields no files.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(name, "run-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

func Read(path string) (model.RunLog, error) {
	var rl model.RunLog
	b, err := os.ReadFile(path)
	if err != nil {
		return rl, err
	}
	if err := json.Unmarshal(b, &rl); err != nil {
		return rl, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if rl.Version == 0 || rl.Command == "" {
		return rl, fmt.Errorf("parse %s: not a run log", filepath.Base(path))
	}
	return rl, nil
}

type Entry struct {
	Path string
	Log  model.RunLog
}

// ReadAll parses every run log in dir. Unreadable or corrupt files are
// reported in skipped instead of failing the whole read.
func ReadAll(dir string) (entries []Entry, skipped []string, err error) {
	paths, err := List(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range paths {
		rl, err := Read(p)
		if err != nil {
			skipped = append(skipped, p)
			continue
		}
		entries = append(entries, Entry{Path: p, Log: rl})
	}
	return entries, skipped, nil
}

func ReadLatestPointer(dir string) (model.LatestRunPointer, error) {
	var p model.LatestRunPointer
	b, err := os.ReadFile(filepath.Join(dir, MetaDir, LatestRunFile))
	if err != nil {
		return p, err
	}
	err = json.Unmarshal(b, &p)
	return p, err
}
