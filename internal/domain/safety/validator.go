package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var blockedPaths = []string{
	"/",
	"/boot",
	"/bin",
	"/sbin",
	"/lib",
	"/lib64",
	"/usr",
	"/etc",
	"/proc",
	"/sys",
	"/dev",
	"/run",
	"/var",
	"/System",
	"/Library",
	"/Applications",
}

var userHomeDir = os.UserHomeDir

// ValidatePath rejects paths that must never be trashed: malformed input,
// system roots, the home directory itself, and symlinks resolving into
// either. Whitelist entries may be glob patterns.
func ValidatePath(path string, allowedRoots []string, whitelist []string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("PATH_INVALID: empty path")
	}
	if strings.ContainsRune(path, rune(0)) {
		return errors.New("PATH_INVALID: null byte")
	}
	for _, r := range path {
		if r < 32 {
			return errors.New("PATH_INVALID: control character")
		}
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("PATH_INVALID: not absolute: %s", path)
	}
	if strings.Contains(path, "/../") || strings.HasSuffix(path, "/..") {
		return errors.New("PATH_INVALID: traversal")
	}

	abs := filepath.Clean(path)
	if isHome(abs) {
		return fmt.Errorf("PATH_BLOCKED: home directory %s", abs)
	}
	if isBlocked(abs) && !isWhitelisted(abs, whitelist) {
		return fmt.Errorf("PATH_BLOCKED: %s", abs)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil && resolved != abs {
		if isHome(resolved) || (isBlocked(resolved) && !isWhitelisted(resolved, whitelist)) {
			return fmt.Errorf("SYMLINK_ESCAPE: %s", resolved)
		}
		if !inAllowedRoots(resolved, allowedRoots) && !isWhitelisted(resolved, whitelist) {
			return fmt.Errorf("SYMLINK_ESCAPE: %s", resolved)
		}
	}

	if !inAllowedRoots(abs, allowedRoots) && !isWhitelisted(abs, whitelist) {
		return fmt.Errorf("PATH_BLOCKED: outside allowed roots %s", abs)
	}
	return nil
}

func isHome(path string) bool {
	home, err := userHomeDir()
	if err != nil || home == "" {
		return false
	}
	return filepath.Clean(home) == path
}

func isBlocked(path string) bool {
	for _, p := range blockedPaths {
		if path == p || (p != "/" && strings.HasPrefix(path, p+"/")) {
			return true
		}
	}
	return false
}

func inAllowedRoots(path string, roots []string) bool {
	if len(roots) == 0 {
		return true
	}
	for _, r := range roots {
		if within(path, filepath.Clean(r)) {
			return true
		}
	}
	return false
}

func isWhitelisted(path string, whitelist []string) bool {
	for _, w := range whitelist {
		if w == "" {
			continue
		}
		if within(path, filepath.Clean(w)) {
			return true
		}
		if ok, err := filepath.Match(w, path); err == nil && ok {
			return true
		}
		// a glob matching an ancestor covers everything below it
		for dir := filepath.Dir(path); dir != "/" && dir != "."; dir = filepath.Dir(dir) {
			if ok, err := filepath.Match(w, dir); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
