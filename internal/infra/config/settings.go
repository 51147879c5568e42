package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type CustomPath struct {
	ID          string `toml:"id"`
	Path        string `toml:"path"`
	DisplayName string `toml:"display_name"`
}

// Settings is the optional TOML file that tunes a run. Every field has a
// default applied by Store.LoadSettings.
type Settings struct {
	LogDir        string       `toml:"log_dir"`
	PolicyFile    string       `toml:"policy_file"`
	MetricsFile   string       `toml:"metrics_file"`
	TrashDir      string       `toml:"trash_dir"`
	Concurrency   int          `toml:"concurrency"`
	AllowPaths    []string     `toml:"allow_paths"`
	DisabledTools []string     `toml:"disabled_tools"`
	CustomPaths   []CustomPath `toml:"custom_paths"`

	// PolicyExplicit is set when PolicyFile came from the file or a flag
	// rather than the default location.
	PolicyExplicit bool `toml:"-"`
}

type Store struct {
	path string
}

// NewStore reads settings from path, or from the default location when path
// is empty.
func NewStore(path string) Store { return Store{path: path} }

func (s Store) Path() (string, error) {
	if s.path != "" {
		return ExpandHome(s.path), nil
	}
	return DefaultSettingsPath()
}

func (s Store) LoadSettings(ctx context.Context) (Settings, error) {
	_ = ctx
	var st Settings

	path, err := s.Path()
	if err != nil {
		return st, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if s.path != "" {
			return st, &LoadError{Path: path, Err: err}
		}
	case err != nil:
		return st, &LoadError{Path: path, Err: err}
	default:
		if err := toml.Unmarshal(data, &st); err != nil {
			le := &LoadError{Path: path, Err: err}
			var perr toml.ParseError
			if errors.As(err, &perr) {
				le.Line = perr.Position.Line
			}
			return st, le
		}
	}

	if err := st.validate(); err != nil {
		return st, &LoadError{Path: path, Err: err}
	}
	if err := applyDefaults(&st); err != nil {
		return st, err
	}
	return st, nil
}

func (st *Settings) validate() error {
	if st.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", st.Concurrency)
	}
	seen := make(map[string]bool, len(st.CustomPaths))
	for i, cp := range st.CustomPaths {
		if strings.TrimSpace(cp.ID) == "" {
			return fmt.Errorf("custom_paths[%d].id is required", i)
		}
		if strings.TrimSpace(cp.Path) == "" {
			return fmt.Errorf("custom_paths[%d].path is required", i)
		}
		if seen[cp.ID] {
			return fmt.Errorf("custom_paths[%d].id %q is duplicated", i, cp.ID)
		}
		seen[cp.ID] = true
	}
	return nil
}

func applyDefaults(st *Settings) error {
	var err error
	if st.LogDir == "" {
		if st.LogDir, err = DefaultLogDir(); err != nil {
			return err
		}
	}
	if st.PolicyFile == "" {
		if st.PolicyFile, err = DefaultPolicyPath(); err != nil {
			return err
		}
	} else {
		st.PolicyExplicit = true
	}
	if st.TrashDir == "" {
		if st.TrashDir, err = DefaultTrashDir(); err != nil {
			return err
		}
	}

	st.LogDir = ExpandHome(st.LogDir)
	st.PolicyFile = ExpandHome(st.PolicyFile)
	st.TrashDir = ExpandHome(st.TrashDir)
	if st.MetricsFile != "" {
		st.MetricsFile = ExpandHome(st.MetricsFile)
	}
	for i := range st.AllowPaths {
		st.AllowPaths[i] = ExpandHome(st.AllowPaths[i])
	}
	for i := range st.CustomPaths {
		st.CustomPaths[i].Path = ExpandHome(st.CustomPaths[i].Path)
		if st.CustomPaths[i].DisplayName == "" {
			st.CustomPaths[i].DisplayName = st.CustomPaths[i].ID
		}
	}
	return nil
}
