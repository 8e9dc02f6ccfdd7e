package analytics

import "gradereport/pkg/contracts/domain"

// Recommend picks the narrative tier for an average score. An undefined
// average satisfies none of the thresholds and lands in the weakest tier.
func Recommend(avg domain.Measure) domain.RecommendationTier {
	if !avg.Defined {
		return domain.TierWeak
	}
	switch {
	case avg.Value >= 9:
		return domain.TierExcellent
	case avg.Value >= 7:
		return domain.TierGood
	case avg.Value >= 5:
		return domain.TierAverage
	default:
		return domain.TierWeak
	}
}
