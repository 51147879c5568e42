package rules

import (
	"fmt"

	"cachesweep/internal/domain/model"
)

const (
	FallbackRisk          = model.RiskCaution
	FallbackSafeAfterDays = 30
)

// Decider maps a target id to a policy decision.
type Decider interface {
	Decide(targetID string) model.Decision
}

// Resolver is a Decider over a loaded RuleConfig. The first rule whose id
// matches wins; duplicates later in the list are never consulted.
type Resolver struct {
	rules    []model.Rule
	defaults model.RuleDefaults
}

func NewResolver(cfg model.RuleConfig) *Resolver {
	return &Resolver{
		rules:    append([]model.Rule(nil), cfg.Rules...),
		defaults: cfg.Defaults,
	}
}

func (r *Resolver) Decide(targetID string) model.Decision {
	for _, rule := range r.rules {
		if rule.ID == targetID {
			return model.Decision{
				Risk:          rule.Risk,
				SafeAfterDays: rule.SafeAfterDays,
				Reasons:       []string{rule.Description},
			}
		}
	}
	return model.Decision{
		Risk:          r.defaults.Risk,
		SafeAfterDays: r.defaults.SafeAfterDays,
		Reasons:       []string{fmt.Sprintf("No specific rule found for '%s'. Using defaults.", targetID)},
	}
}

// Rule returns the first rule with the given id.
func (r *Resolver) Rule(targetID string) (model.Rule, bool) {
	for _, rule := range r.rules {
		if rule.ID == targetID {
			return rule, true
		}
	}
	return model.Rule{}, false
}

// FallbackDecider stands in for a Resolver when no policy could be loaded.
type FallbackDecider struct {
	Cause string
}

func (f FallbackDecider) Decide(string) model.Decision {
	reason := "Risk rules could not be loaded; treating target as caution."
	if f.Cause != "" {
		reason = fmt.Sprintf("Risk rules could not be loaded (%s); treating target as caution.", f.Cause)
	}
	return model.Decision{
		Risk:          FallbackRisk,
		SafeAfterDays: FallbackSafeAfterDays,
		Reasons:       []string{reason},
	}
}
