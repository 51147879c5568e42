package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cachesweep/internal/domain/model"
)

const validPolicy = `{
  "rules": [
    {"id": "npm-cache", "risk": "safe", "safeAfterDays": 7, "description": "npm cache", "paths": ["~/.npm"]},
    {"id": "secrets", "risk": "do-not-touch", "safeAfterDays": 0, "description": "never"}
  ],
  "defaults": {"risk": "caution", "safeAfterDays": 30}
}`

func TestParsePolicyValid(t *testing.T) {
	cfg, err := ParsePolicy([]byte(validPolicy), "rules.json")
	require.NoError(t, err)
	require.Len(t, cfg.Rules, 2)
	assert.Equal(t, model.Rule{ID: "npm-cache", Risk: model.RiskSafe, SafeAfterDays: 7, Description: "npm cache", Paths: []string{"~/.npm"}}, cfg.Rules[0])
	assert.Equal(t, model.RiskDoNotTouch, cfg.Rules[1].Risk)
	assert.Equal(t, model.RuleDefaults{Risk: model.RiskCaution, SafeAfterDays: 30}, cfg.Defaults)
}

func TestParsePolicySyntaxErrorHasPosition(t *testing.T) {
	doc := "{\n  \"rules\": [\n    {\"id\": \"x\",, }\n  ]\n}"
	_, err := ParsePolicy([]byte(doc), "/etc/rules.json")
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "/etc/rules.json", le.Path)
	assert.Equal(t, 3, le.Line)
	assert.Positive(t, le.Column)
	assert.Contains(t, err.Error(), "/etc/rules.json:3:")
}

func TestParsePolicyTruncatedDocument(t *testing.T) {
	_, err := ParsePolicy([]byte(`{"rules": [`), "p.json")
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 1, le.Line)
}

func TestParsePolicyStructuralErrors(t *testing.T) {
	tests := map[string]string{
		"rules not array":       `{"rules": {}, "defaults": {"risk": "safe", "safeAfterDays": 1}}`,
		"missing id":            `{"rules": [{"risk": "safe", "safeAfterDays": 1, "description": "d"}], "defaults": {"risk": "safe", "safeAfterDays": 1}}`,
		"empty description":     `{"rules": [{"id": "a", "risk": "safe", "safeAfterDays": 1, "description": " "}], "defaults": {"risk": "safe", "safeAfterDays": 1}}`,
		"days as string":        `{"rules": [{"id": "a", "risk": "safe", "safeAfterDays": "7", "description": "d"}], "defaults": {"risk": "safe", "safeAfterDays": 1}}`,
		"days out of range":     `{"rules": [{"id": "a", "risk": "safe", "safeAfterDays": 10000, "description": "d"}], "defaults": {"risk": "safe", "safeAfterDays": 1}}`,
		"negative days":         `{"rules": [], "defaults": {"risk": "safe", "safeAfterDays": -1}}`,
		"unknown risk":          `{"rules": [{"id": "a", "risk": "low", "safeAfterDays": 1, "description": "d"}], "defaults": {"risk": "safe", "safeAfterDays": 1}}`,
		"missing defaults":      `{"rules": []}`,
		"paths not strings":     `{"rules": [{"id": "a", "risk": "safe", "safeAfterDays": 1, "description": "d", "paths": [1]}], "defaults": {"risk": "safe", "safeAfterDays": 1}}`,
		"top level not object":  `[]`,
		"trailing garbage":      `{"rules": [], "defaults": {"risk": "safe", "safeAfterDays": 1}} x`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(doc), "p.json")
			var le *LoadError
			require.True(t, errors.As(err, &le), "expected LoadError, got %v", err)
			assert.Equal(t, "p.json", le.Path)
		})
	}
}

func TestParsePolicyFloorsFractionalDays(t *testing.T) {
	cfg, err := ParsePolicy([]byte(`{"rules": [], "defaults": {"risk": "caution", "safeAfterDays": 7.9}}`), "p.json")
	require.NoError(t, err)
	assert.Equal(t, uint(7), cfg.Defaults.SafeAfterDays)
}

func TestBuiltinPolicyIsValid(t *testing.T) {
	cfg, err := ParsePolicy(builtinPolicy, BuiltinPolicySource)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Rules)

	seen := map[string]bool{}
	for _, r := range cfg.Rules {
		assert.False(t, seen[r.ID], "duplicate builtin rule %s", r.ID)
		seen[r.ID] = true
	}
	assert.True(t, seen["temp"])
}

func TestLoadPolicyMissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.json"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEffectivePolicy(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "rules.json")

	cfg, source, err := EffectivePolicy(missing, false)
	require.NoError(t, err)
	assert.Equal(t, BuiltinPolicySource, source)
	assert.NotEmpty(t, cfg.Rules)

	_, _, err = EffectivePolicy(missing, true)
	require.Error(t, err, "an explicitly configured policy must exist")

	require.NoError(t, os.WriteFile(missing, []byte(validPolicy), 0o644))
	cfg, source, err = EffectivePolicy(missing, false)
	require.NoError(t, err)
	assert.Equal(t, missing, source)
	assert.Len(t, cfg.Rules, 2)

	require.NoError(t, os.WriteFile(missing, []byte("{"), 0o644))
	_, _, err = EffectivePolicy(missing, false)
	require.Error(t, err)
}
