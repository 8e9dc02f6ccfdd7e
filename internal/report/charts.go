package report

import (
	"gradereport/pkg/contracts/domain"
)

const (
	colorPrimary   = "#1f77b4"
	colorMuted     = "#C0C0C0"
	colorHistogram = "#4a90e2"
)

// Chart titles double as image captions in the report.
const (
	TitleSubjectAverages = "Vidutiniai įvertinimai pagal dalyką"
	TitleStudentRanking  = "Mokiniai pagal bendrą vidurkį"
	TitleLevelHistogram  = "Pasiekimų lygių pasiskirstymas"
)

// SubjectAveragesChart is a horizontal bar per subject on a 0–10 axis.
func SubjectAveragesChart(averages []domain.GroupAverage) domain.ChartSpec {
	return domain.ChartSpec{
		Kind:       domain.ChartSubjectAverages,
		Title:      TitleSubjectAverages,
		XLabel:     "Vidurkis",
		Horizontal: true,
		AxisMax:    10,
		Decimals:   1,
		Color:      colorPrimary,
		Points:     averagePoints(averages, ""),
	}
}

// StudentRankingChart is a horizontal bar per student, best first, with the
// selected student highlighted. An empty selection highlights nobody.
func StudentRankingChart(ranking []domain.GroupAverage, selected string) domain.ChartSpec {
	return domain.ChartSpec{
		Kind:           domain.ChartStudentRanking,
		Title:          TitleStudentRanking,
		XLabel:         "Vidurkis",
		Horizontal:     true,
		AxisMax:        10,
		Decimals:       1,
		Color:          colorMuted,
		HighlightColor: colorPrimary,
		Points:         averagePoints(ranking, selected),
	}
}

// LevelHistogramChart is a vertical bar per achievement level present.
func LevelHistogramChart(levels []domain.LevelCount) domain.ChartSpec {
	points := make([]domain.ChartPoint, 0, len(levels))
	for _, lc := range levels {
		points = append(points, domain.ChartPoint{Label: lc.Label, Value: float64(lc.Count)})
	}
	return domain.ChartSpec{
		Kind:     domain.ChartLevelHistogram,
		Title:    TitleLevelHistogram,
		YLabel:   "Mokinių skaičius",
		Decimals: 0,
		Color:    colorHistogram,
		Points:   points,
	}
}

func averagePoints(averages []domain.GroupAverage, highlight string) []domain.ChartPoint {
	points := make([]domain.ChartPoint, 0, len(averages))
	for _, g := range averages {
		points = append(points, domain.ChartPoint{
			Label:     g.Key,
			Value:     g.Mean,
			Highlight: highlight != "" && g.Key == highlight,
		})
	}
	return points
}
