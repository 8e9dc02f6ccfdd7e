package analytics

import (
	"sort"

	"gradereport/pkg/contracts/domain"
)

// KeySelector picks the grouping key of an observation.
type KeySelector func(domain.GradeObservation) string

var (
	BySubject KeySelector = func(o domain.GradeObservation) string { return o.Subject }
	ByStudent KeySelector = func(o domain.GradeObservation) string { return o.Student }
)

// SortOrder orders group averages by their mean.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// GroupAverage computes the mean score per key, ordered by mean. Equal means
// are ordered by key so the output is deterministic.
func GroupAverage(obs []domain.GradeObservation, key KeySelector, order SortOrder) []domain.GroupAverage {
	type acc struct {
		sum   int
		count int
	}

	groups := make(map[string]*acc)
	keys := make([]string, 0)
	for _, o := range obs {
		k := key(o)
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
			keys = append(keys, k)
		}
		g.sum += o.Score
		g.count++
	}

	result := make([]domain.GroupAverage, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		result = append(result, domain.GroupAverage{
			Key:   k,
			Mean:  float64(g.sum) / float64(g.count),
			Count: g.count,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Mean != b.Mean {
			if order == Descending {
				return a.Mean > b.Mean
			}
			return a.Mean < b.Mean
		}
		return a.Key < b.Key
	})

	return result
}

// SubjectAverages is GroupAverage by subject, ascending.
func SubjectAverages(obs []domain.GradeObservation) []domain.GroupAverage {
	return GroupAverage(obs, BySubject, Ascending)
}

// StudentRanking is GroupAverage by student, descending.
func StudentRanking(obs []domain.GradeObservation) []domain.GroupAverage {
	return GroupAverage(obs, ByStudent, Descending)
}
