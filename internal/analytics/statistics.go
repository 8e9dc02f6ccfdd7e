package analytics

import (
	"math"

	"gradereport/pkg/contracts/domain"
)

// Mean returns the arithmetic mean of the scores, undefined for no observations.
func Mean(obs []domain.GradeObservation) domain.Measure {
	if len(obs) == 0 {
		return domain.Undefined()
	}
	return domain.Defined(calculateMean(scores(obs)))
}

// StdDev returns the sample standard deviation (n-1 denominator),
// undefined for fewer than two observations.
func StdDev(obs []domain.GradeObservation) domain.Measure {
	if len(obs) < 2 {
		return domain.Undefined()
	}
	values := scores(obs)
	return domain.Defined(calculateStdDev(values, calculateMean(values)))
}

// Mode returns the single most frequent score. Empty input or a tie for the
// highest frequency yields domain.NoUniqueMode.
func Mode(obs []domain.GradeObservation) domain.ModeResult {
	if len(obs) == 0 {
		return domain.NoUniqueMode()
	}

	counts := make(map[int]int)
	for _, o := range obs {
		counts[o.Score]++
	}

	best, bestCount, tied := 0, 0, false
	for score, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount, tied = score, n, false
		case n == bestCount:
			tied = true
		}
	}
	if tied {
		return domain.NoUniqueMode()
	}
	return domain.UniqueMode(best)
}

// DistinctStudents counts the different students among the observations.
func DistinctStudents(obs []domain.GradeObservation) int {
	seen := make(map[string]struct{})
	for _, o := range obs {
		seen[o.Student] = struct{}{}
	}
	return len(seen)
}

// Summarize computes the descriptive block for a selection. It never fails;
// degenerate selections produce undefined measures.
func Summarize(obs []domain.GradeObservation) domain.StatisticsSummary {
	return domain.StatisticsSummary{
		Mean:                 Mean(obs),
		StdDev:               StdDev(obs),
		Mode:                 Mode(obs),
		RecordCount:          len(obs),
		DistinctStudentCount: DistinctStudents(obs),
	}
}

func scores(obs []domain.GradeObservation) []float64 {
	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = float64(o.Score)
	}
	return values
}

// calculateMean computes the arithmetic mean of a slice of float64 values
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateStdDev calculates standard deviation given mean
func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return math.NaN()
	}

	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff / float64(len(values)-1))
}
