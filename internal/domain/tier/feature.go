package tier

import (
	"fmt"
	"strings"
)

// Feature is a gated capability of the platform.
type Feature string

// Known features.
const (
	FeatureMarketplaceBrowse  Feature = "marketplace_browse"
	FeatureWallet             Feature = "wallet"
	FeatureMarketplaceSell    Feature = "marketplace_sell"
	FeatureEducationDirectory Feature = "education_directory"
	FeatureFranchiseApply     Feature = "franchise_apply"
	FeatureHealthDirectory    Feature = "health_directory"
	FeatureValidatorStake     Feature = "validator_stake"
	FeaturePrioritySupport    Feature = "priority_support"
	FeatureAIAssistant        Feature = "ai_assistant"
	FeatureFranchiseCorporate Feature = "franchise_corporate"
)

// Features lists every feature ordered by required level.
var Features = []Feature{
	FeatureMarketplaceBrowse,
	FeatureWallet,
	FeatureMarketplaceSell,
	FeatureEducationDirectory,
	FeatureFranchiseApply,
	FeatureHealthDirectory,
	FeatureValidatorStake,
	FeaturePrioritySupport,
	FeatureAIAssistant,
	FeatureFranchiseCorporate,
}

// ParseFeature resolves a feature name.
func ParseFeature(s string) (Feature, error) {
	f := Feature(strings.ToLower(strings.TrimSpace(s)))
	if f.RequiredLevel() == LevelUnknown {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownFeature)
	}
	return f, nil
}

// RequiredLevel is the lowest tier that may use f. Unknown features require
// LevelUnknown, which ParseFeature rejects.
func (f Feature) RequiredLevel() Level {
	switch f {
	case FeatureMarketplaceBrowse, FeatureWallet:
		return LevelFree
	case FeatureMarketplaceSell, FeatureEducationDirectory:
		return LevelBasic
	case FeatureFranchiseApply, FeatureHealthDirectory:
		return LevelNormal
	case FeatureValidatorStake, FeaturePrioritySupport:
		return LevelHigh
	case FeatureAIAssistant, FeatureFranchiseCorporate:
		return LevelVIP
	default:
		return LevelUnknown
	}
}

// CanUseFeature reports whether level unlocks f.
func CanUseFeature(level Level, f Feature) bool {
	required := f.RequiredLevel()
	if required == LevelUnknown {
		return false
	}
	return CanAccess(level, required)
}

// FeaturesFor lists the features unlocked at level.
func FeaturesFor(level Level) []Feature {
	out := make([]Feature, 0, len(Features))
	for _, f := range Features {
		if CanUseFeature(level, f) {
			out = append(out, f)
		}
	}
	return out
}
