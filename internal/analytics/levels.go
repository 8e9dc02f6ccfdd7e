package analytics

import (
	"sort"

	"gradereport/pkg/contracts/domain"
)

// Classify maps a score to its achievement level. Bounds are checked from the
// top down, so fractional values between bands fall into the lower one
// (8.9 is Main, 4.5 is Unsatisfactory).
func Classify(score float64) domain.AchievementLevel {
	switch {
	case score >= 9:
		return domain.LevelHigher
	case score >= 7:
		return domain.LevelMain
	case score >= 5:
		return domain.LevelSatisfactory
	case score == 4:
		return domain.LevelThreshold
	default:
		return domain.LevelUnsatisfactory
	}
}

// LevelTally counts observations per level. Only levels that occur are
// returned, ordered lexicographically by label text rather than by rank.
func LevelTally(obs []domain.GradeObservation) []domain.LevelCount {
	counts := make(map[domain.AchievementLevel]int)
	for _, o := range obs {
		counts[Classify(float64(o.Score))]++
	}

	tally := make([]domain.LevelCount, 0, len(counts))
	for _, level := range domain.AchievementLevels() {
		n := counts[level]
		if n == 0 {
			continue
		}
		tally = append(tally, domain.LevelCount{
			Level: level,
			Key:   level.String(),
			Label: level.Label(),
			Count: n,
		})
	}

	sort.Slice(tally, func(i, j int) bool {
		return tally[i].Label < tally[j].Label
	})
	return tally
}
