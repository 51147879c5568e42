package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"cachesweep/internal/domain/model"
	"cachesweep/internal/infra/config"
)

type TempDirDiscoverer struct {
	// Dir overrides os.TempDir.
	Dir string
}

func (TempDirDiscoverer) Name() string { return "temp" }

func (d TempDirDiscoverer) Discover(context.Context) ([]model.RawTarget, error) {
	dir := d.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if dir == "" {
		return nil, errors.New("temporary directory is unknown")
	}
	var diags []string
	if resolved, err := filepath.EvalSymlinks(dir); err == nil && resolved != filepath.Clean(dir) {
		diags = append(diags, "resolved symlink to "+resolved)
		dir = resolved
	}
	return []model.RawTarget{{
		ID:          "temp",
		Kind:        model.KindTemp,
		Path:        dir,
		DisplayName: "Temporary files",
		Diagnostics: diags,
	}}, nil
}

type toolCache struct {
	id      string
	name    string
	base    string // "home" or "cache"
	relPath []string
}

var toolCaches = []toolCache{
	{id: "thumbnails", name: "Thumbnails", base: "cache", relPath: []string{"thumbnails"}},
	{id: "npm-cache", name: "npm cache", base: "home", relPath: []string{".npm", "_cacache"}},
	{id: "yarn-cache", name: "Yarn cache", base: "cache", relPath: []string{"yarn"}},
	{id: "pnpm-store", name: "pnpm store", base: "home", relPath: []string{".local", "share", "pnpm", "store"}},
	{id: "pip-cache", name: "pip cache", base: "cache", relPath: []string{"pip"}},
	{id: "poetry-cache", name: "Poetry cache", base: "cache", relPath: []string{"pypoetry"}},
	{id: "go-build-cache", name: "Go build cache", base: "cache", relPath: []string{"go-build"}},
	{id: "go-mod-cache", name: "Go module cache", base: "home", relPath: []string{"go", "pkg", "mod"}},
	{id: "cargo-registry", name: "Cargo registry", base: "home", relPath: []string{".cargo", "registry"}},
	{id: "gradle-caches", name: "Gradle caches", base: "home", relPath: []string{".gradle", "caches"}},
	{id: "maven-repository", name: "Maven repository", base: "home", relPath: []string{".m2", "repository"}},
	{id: "chromium-cache", name: "Chromium cache", base: "cache", relPath: []string{"chromium"}},
	{id: "chrome-cache", name: "Google Chrome cache", base: "cache", relPath: []string{"google-chrome"}},
	{id: "firefox-cache", name: "Firefox cache", base: "cache", relPath: []string{"mozilla", "firefox"}},
	{id: "vscode-cache", name: "VS Code cache", base: "home", relPath: []string{".config", "Code", "Cache"}},
}

// ToolCacheIDs lists the ids the tool cache source can produce.
func ToolCacheIDs() []string {
	ids := make([]string, 0, len(toolCaches))
	for _, tc := range toolCaches {
		ids = append(ids, tc.id)
	}
	return ids
}

type ToolCacheDiscoverer struct {
	Home     string
	CacheDir string
	Disabled []string
}

var (
	userHomeDir  = os.UserHomeDir
	userCacheDir = os.UserCacheDir
)

func (ToolCacheDiscoverer) Name() string { return "tool-caches" }

func (d ToolCacheDiscoverer) Discover(context.Context) ([]model.RawTarget, error) {
	home := d.Home
	if home == "" {
		h, err := userHomeDir()
		if err != nil {
			return nil, err
		}
		home = h
	}
	cache := d.CacheDir
	if cache == "" {
		c, err := userCacheDir()
		if err != nil {
			c = filepath.Join(home, ".cache")
		}
		cache = c
	}

	disabled := make(map[string]bool, len(d.Disabled))
	for _, id := range d.Disabled {
		disabled[id] = true
	}

	out := make([]model.RawTarget, 0, len(toolCaches))
	for _, tc := range toolCaches {
		if disabled[tc.id] {
			continue
		}
		base := home
		if tc.base == "cache" {
			base = cache
		}
		out = append(out, model.RawTarget{
			ID:          tc.id,
			Kind:        model.KindToolCache,
			Path:        filepath.Join(append([]string{base}, tc.relPath...)...),
			DisplayName: tc.name,
		})
	}
	return out, nil
}

type CustomPathDiscoverer struct {
	Paths []config.CustomPath
}

func (CustomPathDiscoverer) Name() string { return "custom-paths" }

func (d CustomPathDiscoverer) Discover(context.Context) ([]model.RawTarget, error) {
	out := make([]model.RawTarget, 0, len(d.Paths))
	for _, p := range d.Paths {
		name := p.DisplayName
		if name == "" {
			name = p.ID
		}
		out = append(out, model.RawTarget{
			ID:          p.ID,
			Kind:        model.KindCustom,
			Path:        config.ExpandHome(p.Path),
			DisplayName: name,
		})
	}
	return out, nil
}
