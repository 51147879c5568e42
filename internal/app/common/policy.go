package common

import (
	"fmt"

	"cachesweep/internal/domain/model"
	"cachesweep/internal/domain/rules"
	"cachesweep/internal/infra/config"
)

// Policy is the decider a run uses and where it came from.
type Policy struct {
	Decider rules.Decider
	Source  string
	// Config is nil when the policy could not be loaded.
	Config *model.RuleConfig
}

// ResolvePolicy never fails: an unloadable policy file yields the fallback
// decider and a warning describing why.
func ResolvePolicy(st config.Settings) (Policy, string) {
	cfg, source, err := config.EffectivePolicy(st.PolicyFile, st.PolicyExplicit)
	if err != nil {
		return Policy{
			Decider: rules.FallbackDecider{Cause: err.Error()},
			Source:  source,
		}, fmt.Sprintf("risk policy unavailable, every target treated as caution: %v", err)
	}
	return Policy{Decider: rules.NewResolver(cfg), Source: source, Config: &cfg}, ""
}
