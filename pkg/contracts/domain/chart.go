package domain

import "fmt"

// ChartKind names one of the three report charts.
type ChartKind string

const (
	ChartSubjectAverages ChartKind = "subject-averages"
	ChartStudentRanking  ChartKind = "student-ranking"
	ChartLevelHistogram  ChartKind = "level-histogram"
)

// ChartKinds returns the charts in report order.
func ChartKinds() []ChartKind {
	return []ChartKind{ChartSubjectAverages, ChartStudentRanking, ChartLevelHistogram}
}

// ParseChartKind validates a chart name.
func ParseChartKind(s string) (ChartKind, error) {
	for _, k := range ChartKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart %q", s)
}

// ChartPoint is one bar.
type ChartPoint struct {
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Highlight bool    `json:"highlight,omitempty"`
}

// ChartSpec describes a bar chart independent of how it is drawn.
// AxisMax of zero means the value axis scales to the data.
type ChartSpec struct {
	Kind           ChartKind    `json:"kind"`
	Title          string       `json:"title"`
	XLabel         string       `json:"x_label"`
	YLabel         string       `json:"y_label"`
	Horizontal     bool         `json:"horizontal"`
	AxisMax        float64      `json:"axis_max,omitempty"`
	Decimals       int          `json:"decimals"`
	Color          string       `json:"color"`
	HighlightColor string       `json:"highlight_color,omitempty"`
	Points         []ChartPoint `json:"points"`
}

// Analysis bundles everything computed for one filter selection.
type Analysis struct {
	Criteria        FilterCriteria    `json:"criteria"`
	Summary         StatisticsSummary `json:"summary"`
	SubjectAverages []GroupAverage    `json:"subject_averages"`
	StudentRanking  []GroupAverage    `json:"student_ranking"`
	Levels          []LevelCount      `json:"levels"`
	Charts          []ChartSpec       `json:"charts"`
}

// Chart returns the spec of the given kind.
func (a *Analysis) Chart(kind ChartKind) (ChartSpec, bool) {
	for _, c := range a.Charts {
		if c.Kind == kind {
			return c, true
		}
	}
	return ChartSpec{}, false
}
