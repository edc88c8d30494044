package recommendation

import "venue-signals/internal/ensemble"

type Tier string

const (
	TierRuleOnly     Tier = "rule_only"
	TierMLPrimary    Tier = "ml_primary"
	TierBlended      Tier = "blended"
	TierRuleFallback Tier = "rule_fallback"
)

const (
	TagRuleBasedOnly = "rule_based_only"
	TagMLEnhanced    = "ml_enhanced"
	TagLocal         = "local"
)

type CascadeConfig struct {
	HighConfidence  float64
	LowConfidence   float64
	MLBlendWeight   float64
	OneSidedPenalty float64
	RuleOnlyPenalty float64
}

func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		HighConfidence:  0.7,
		LowConfidence:   0.4,
		MLBlendWeight:   0.6,
		OneSidedPenalty: 0.9,
		RuleOnlyPenalty: 0.85,
	}
}

func (c CascadeConfig) withDefaults() CascadeConfig {
	d := DefaultCascadeConfig()
	if c.HighConfidence <= 0 {
		c.HighConfidence = d.HighConfidence
	}
	if c.LowConfidence <= 0 || c.LowConfidence >= c.HighConfidence {
		c.LowConfidence = d.LowConfidence
	}
	if c.MLBlendWeight <= 0 || c.MLBlendWeight > 1 {
		c.MLBlendWeight = d.MLBlendWeight
	}
	if c.OneSidedPenalty <= 0 || c.OneSidedPenalty > 1 {
		c.OneSidedPenalty = d.OneSidedPenalty
	}
	if c.RuleOnlyPenalty <= 0 || c.RuleOnlyPenalty > 1 {
		c.RuleOnlyPenalty = d.RuleOnlyPenalty
	}
	return c
}

// selectTier picks the cascade tier from a settled ensemble result.
func (c CascadeConfig) selectTier(res *ensemble.Result) Tier {
	switch {
	case res == nil || res.Exhausted() || res.Panicked:
		return TierRuleFallback
	case res.Confidence > c.HighConfidence && !res.Degraded:
		return TierMLPrimary
	case res.Confidence > c.LowConfidence:
		return TierBlended
	default:
		return TierRuleFallback
	}
}

// fuse returns the final score of one venue and whether it had an ML score.
func (c CascadeConfig) fuse(tier Tier, rule float64, ml float64, hasML bool) (float64, bool) {
	switch tier {
	case TierMLPrimary:
		if hasML {
			return clamp01(ml), true
		}
		return clamp01(rule * c.RuleOnlyPenalty), false
	case TierBlended:
		if hasML {
			return clamp01(c.MLBlendWeight*ml + (1-c.MLBlendWeight)*rule), true
		}
		return clamp01(rule * c.OneSidedPenalty), false
	default:
		return clamp01(rule), false
	}
}
