package report

import (
	"gradereport/internal/analytics"
	"gradereport/internal/dataprocessing"
	"gradereport/pkg/contracts/domain"
)

// Analyze computes statistics and chart specs for one selection. The student
// ranking always covers the whole dataset so the selected student can be
// seen against the class.
func Analyze(ds *domain.Dataset, criteria domain.FilterCriteria) domain.Analysis {
	filtered := dataprocessing.Apply(ds.Observations, criteria)

	subjects := analytics.SubjectAverages(filtered)
	ranking := analytics.StudentRanking(ds.Observations)
	levels := analytics.LevelTally(filtered)
	selected, _ := criteria.SelectedStudent()

	return domain.Analysis{
		Criteria:        criteria,
		Summary:         analytics.Summarize(filtered),
		SubjectAverages: subjects,
		StudentRanking:  ranking,
		Levels:          levels,
		Charts: []domain.ChartSpec{
			SubjectAveragesChart(subjects),
			StudentRankingChart(ranking, selected),
			LevelHistogramChart(levels),
		},
	}
}
