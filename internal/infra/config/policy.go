package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"cachesweep/internal/domain/model"
)

const maxSafeAfterDays = 9999

//go:embed builtin_rules.json
var builtinPolicy []byte

const BuiltinPolicySource = "builtin"

// BuiltinPolicy is the policy shipped with the binary. It is validated by
// tests, so a parse failure here is a programming error.
func BuiltinPolicy() model.RuleConfig {
	cfg, err := ParsePolicy(builtinPolicy, BuiltinPolicySource)
	if err != nil {
		panic(fmt.Sprintf("builtin policy is invalid: %v", err))
	}
	return cfg
}

func LoadPolicy(path string) (model.RuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RuleConfig{}, &LoadError{Path: path, Err: err}
	}
	return ParsePolicy(data, path)
}

// ParsePolicy decodes and validates a RuleConfig document. Any failure is
// returned as a *LoadError carrying source.
func ParsePolicy(data []byte, source string) (model.RuleConfig, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return model.RuleConfig{}, syntaxError(data, source, err)
	}
	if dec.More() {
		line, col := position(data, dec.InputOffset())
		return model.RuleConfig{}, &LoadError{Path: source, Line: line, Column: col, Err: errors.New("unexpected data after top-level value")}
	}

	cfg, err := decodeConfig(raw)
	if err != nil {
		return model.RuleConfig{}, &LoadError{Path: source, Err: err}
	}
	return cfg, nil
}

func syntaxError(data []byte, source string, err error) error {
	le := &LoadError{Path: source, Err: err}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		le.Line, le.Column = position(data, se.Offset)
	} else if errors.Is(err, io.ErrUnexpectedEOF) {
		le.Line, le.Column = position(data, int64(len(data)))
	} else if errors.Is(err, io.EOF) {
		le.Err = errors.New("empty document")
	}
	return le
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col := 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

func decodeConfig(raw any) (model.RuleConfig, error) {
	root, ok := raw.(map[string]any)
	if !ok {
		return model.RuleConfig{}, errors.New("policy must be a JSON object")
	}

	rawRules, ok := root["rules"].([]any)
	if !ok {
		return model.RuleConfig{}, errors.New("rules must be an array")
	}

	var cfg model.RuleConfig
	cfg.Rules = make([]model.Rule, 0, len(rawRules))
	for i, r := range rawRules {
		rule, err := decodeRule(r)
		if err != nil {
			return model.RuleConfig{}, fmt.Errorf("rules[%d]: %w", i, err)
		}
		cfg.Rules = append(cfg.Rules, rule)
	}

	defaults, ok := root["defaults"].(map[string]any)
	if !ok {
		return model.RuleConfig{}, errors.New("defaults must be an object")
	}
	risk, err := riskField(defaults)
	if err != nil {
		return model.RuleConfig{}, fmt.Errorf("defaults: %w", err)
	}
	days, err := daysField(defaults)
	if err != nil {
		return model.RuleConfig{}, fmt.Errorf("defaults: %w", err)
	}
	cfg.Defaults = model.RuleDefaults{Risk: risk, SafeAfterDays: days}
	return cfg, nil
}

func decodeRule(v any) (model.Rule, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.Rule{}, errors.New("rule must be an object")
	}
	id, err := stringField(m, "id")
	if err != nil {
		return model.Rule{}, err
	}
	risk, err := riskField(m)
	if err != nil {
		return model.Rule{}, err
	}
	desc, err := stringField(m, "description")
	if err != nil {
		return model.Rule{}, err
	}
	days, err := daysField(m)
	if err != nil {
		return model.Rule{}, err
	}

	rule := model.Rule{ID: id, Risk: risk, SafeAfterDays: days, Description: desc}
	if p, present := m["paths"]; present && p != nil {
		list, ok := p.([]any)
		if !ok {
			return model.Rule{}, errors.New("paths must be an array of strings")
		}
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return model.Rule{}, errors.New("paths must be an array of strings")
			}
			rule.Paths = append(rule.Paths, s)
		}
	}
	return rule, nil
}

func stringField(m map[string]any, key string) (string, error) {
	s, ok := m[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s must be a non-empty string", key)
	}
	return s, nil
}

func riskField(m map[string]any) (model.RiskLevel, error) {
	s, err := stringField(m, "risk")
	if err != nil {
		return "", err
	}
	risk := model.RiskLevel(s)
	if !risk.Valid() {
		return "", fmt.Errorf("risk %q must be one of safe, caution, do-not-touch", s)
	}
	return risk, nil
}

func daysField(m map[string]any) (uint, error) {
	n, ok := m["safeAfterDays"].(json.Number)
	if !ok {
		return 0, errors.New("safeAfterDays must be a number")
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("safeAfterDays must be a finite number, got %s", n)
	}
	if f < 0 || f > maxSafeAfterDays {
		return 0, fmt.Errorf("safeAfterDays must be within 0..%d, got %s", maxSafeAfterDays, n)
	}
	return uint(math.Floor(f)), nil
}

// EffectivePolicy loads the policy at path. A missing file at a default
// location selects the builtin policy; any other failure is returned.
func EffectivePolicy(path string, explicit bool) (model.RuleConfig, string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		return BuiltinPolicy(), BuiltinPolicySource, nil
	}
	cfg, err := LoadPolicy(path)
	if err != nil {
		return model.RuleConfig{}, path, err
	}
	return cfg, path, nil
}
