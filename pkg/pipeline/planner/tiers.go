package planner

import (
	"strings"
	"time"

	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/pipeline"
)

// Static rate-constraint tables per provider and tier. These reflect
// published provider limits, kept deliberately conservative; user overrides
// in configuration beat them.
var tierTables = map[string]map[string]pipeline.RateConstraint{
	"gemini": {
		"free": {
			RequestsPerMinute: 15,
			TokensPerMinute:   1_000_000,
			MinInterval:       4 * time.Second,
			BurstFactor:       1.0,
		},
		"tier1": {
			RequestsPerMinute: 150,
			TokensPerMinute:   2_000_000,
			MinInterval:       400 * time.Millisecond,
			BurstFactor:       2.0,
		},
		"tier2": {
			RequestsPerMinute: 1000,
			TokensPerMinute:   4_000_000,
			MinInterval:       60 * time.Millisecond,
			BurstFactor:       2.0,
		},
	},
	"openai": {
		"free": {
			RequestsPerMinute: 3,
			TokensPerMinute:   40_000,
			MinInterval:       20 * time.Second,
			BurstFactor:       1.0,
		},
		"tier1": {
			RequestsPerMinute: 60,
			TokensPerMinute:   90_000,
			MinInterval:       time.Second,
			BurstFactor:       1.5,
		},
		"tier2": {
			RequestsPerMinute: 500,
			TokensPerMinute:   450_000,
			MinInterval:       120 * time.Millisecond,
			BurstFactor:       2.0,
		},
	},
	"anthropic": {
		"free": {
			RequestsPerMinute: 5,
			TokensPerMinute:   25_000,
			MinInterval:       12 * time.Second,
			BurstFactor:       1.0,
		},
		"tier1": {
			RequestsPerMinute: 50,
			TokensPerMinute:   100_000,
			MinInterval:       1200 * time.Millisecond,
			BurstFactor:       1.5,
		},
		"tier2": {
			RequestsPerMinute: 1000,
			TokensPerMinute:   400_000,
			MinInterval:       60 * time.Millisecond,
			BurstFactor:       2.0,
		},
	},
}

// ResolveRateConstraint returns the constraint for a provider/tier pair.
// Resolution order: user override, static table entry, nil (unlimited).
func ResolveRateConstraint(cfg *config.Frozen, provider, tier string) *pipeline.RateConstraint {
	if ov, ok := cfg.RateOverride(provider, tier); ok {
		rc := pipeline.RateConstraint{
			RequestsPerMinute: ov.RequestsPerMinute,
			TokensPerMinute:   ov.TokensPerMinute,
			MinInterval:       time.Duration(ov.MinIntervalMS) * time.Millisecond,
			BurstFactor:       ov.BurstFactor,
		}
		return &rc
	}
	tiers, ok := tierTables[strings.ToLower(provider)]
	if !ok {
		return nil
	}
	rc, ok := tiers[strings.ToLower(tier)]
	if !ok {
		return nil
	}
	return &rc
}

// modelCaps records per-model capability data the planner consults.
type modelCaps struct {
	// explicitCacheFloor is the provider-documented minimum cacheable
	// token count for the model. Zero when undocumented.
	explicitCacheFloor int

	// implicitCacheFloor is the floor inferred from the model family when
	// no explicit figure exists.
	implicitCacheFloor int
}

// Model capability table, matched by longest prefix.
var modelCapTable = map[string]modelCaps{
	"gemini-2.5-pro":   {explicitCacheFloor: 4096},
	"gemini-2.5-flash": {explicitCacheFloor: 1024},
	"gemini-2.0-flash": {explicitCacheFloor: 4096},
	"gemini-1.5-pro":   {explicitCacheFloor: 32768},
	"gemini-1.5-flash": {explicitCacheFloor: 32768},
	"gemini":           {implicitCacheFloor: 4096},
	"gpt-4":            {implicitCacheFloor: 1024},
	"claude":           {implicitCacheFloor: 1024},
}

func capsForModel(model string) modelCaps {
	best := ""
	for prefix := range modelCapTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return modelCaps{}
	}
	return modelCapTable[best]
}
