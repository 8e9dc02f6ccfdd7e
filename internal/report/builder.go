package report

import (
	"errors"
	"fmt"
	"strconv"

	"gradereport/internal/analytics"
	"gradereport/internal/dataprocessing"
	"gradereport/pkg/contracts/domain"
)

// DefaultTitle heads every report.
const DefaultTitle = "Mokinių pasiekimų ataskaita"

// ErrStudentRequired is returned for an individual report without a selected student.
var ErrStudentRequired = errors.New("individual report requires a selected student")

// Builder assembles the report document. It is the only place that decides
// what a report contains; renderers only lay it out.
type Builder struct {
	title string
}

// NewBuilder creates a builder. An empty title falls back to DefaultTitle.
func NewBuilder(title string) *Builder {
	if title == "" {
		title = DefaultTitle
	}
	return &Builder{title: title}
}

// Build produces the report for a mode. The class block uses the filtered
// statistics of the analysis; the individual block lists every subject of the
// selected student. Both end with the three charts in fixed order.
func (b *Builder) Build(mode domain.ReportMode, ds *domain.Dataset, analysis domain.Analysis) (*domain.Report, error) {
	sections := []domain.Section{domain.TitleSection{Text: b.title}}

	switch mode {
	case domain.ClassSummary:
		sections = append(sections, classSections(analysis)...)
	case domain.IndividualStudent:
		student, ok := analysis.Criteria.SelectedStudent()
		if !ok {
			return nil, ErrStudentRequired
		}
		sections = append(sections, studentSections(ds, student)...)
	default:
		return nil, fmt.Errorf("unsupported report mode %q", mode)
	}

	for _, kind := range domain.ChartKinds() {
		spec, ok := analysis.Chart(kind)
		if !ok {
			return nil, fmt.Errorf("analysis is missing chart %q", kind)
		}
		sections = append(sections, domain.ImageSection{Chart: kind, Caption: spec.Title})
	}

	return domain.NewReport(mode, b.title, sections...), nil
}

func classSections(analysis domain.Analysis) []domain.Section {
	rows := make([][]string, 0, len(analysis.SubjectAverages))
	for _, g := range analysis.SubjectAverages {
		rows = append(rows, []string{g.Key, formatFloat(g.Mean, 2)})
	}

	s := analysis.Summary
	return []domain.Section{
		domain.TableSection{
			Heading: "Klasės santrauka",
			Columns: []string{"Dalykas", "Vidurkis"},
			Rows:    rows,
		},
		domain.KeyValueSection{
			Pairs: []domain.KeyValue{
				{Key: "Bendras vidurkis", Value: s.Mean.String()},
				{Key: "Standartinis nuokrypis", Value: s.StdDev.String()},
				{Key: "Moda", Value: s.Mode.String()},
				{Key: "Mokinių skaičius", Value: strconv.Itoa(s.DistinctStudentCount)},
				{Key: "Įrašų skaičius", Value: strconv.Itoa(s.RecordCount)},
			},
		},
		domain.NarrativeSection{
			Heading: "Santrauka",
			Text:    SummarySentence(s),
		},
	}
}

func studentSections(ds *domain.Dataset, student string) []domain.Section {
	obs := dataprocessing.ForStudent(ds.Observations, student)
	avg := analytics.Mean(obs)

	rows := make([][]string, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, []string{o.Subject, strconv.Itoa(o.Score)})
	}

	sections := []domain.Section{
		domain.KeyValueSection{
			Pairs: []domain.KeyValue{
				{Key: "Mokinys", Value: student},
				{Key: "Vidurkis", Value: avg.String()},
			},
		},
		domain.TableSection{
			Heading: "Įvertinimai",
			Columns: []string{"Dalykas", "Įvertinimas"},
			Rows:    rows,
		},
	}

	if rec, ok := ds.AttendanceFor(student); ok && len(rec.Counters) > 0 {
		pairs := make([]domain.KeyValue, 0, len(rec.Counters))
		for _, c := range rec.Counters {
			pairs = append(pairs, domain.KeyValue{Key: c.Label, Value: strconv.Itoa(c.Value)})
		}
		sections = append(sections, domain.KeyValueSection{Heading: "Lankomumas", Pairs: pairs})
	}

	sections = append(sections, domain.NarrativeSection{
		Heading: "Rekomendacija",
		Text:    analytics.Recommend(avg).Text(),
	})
	return sections
}

// SummarySentence is the one-line description of a selection.
func SummarySentence(s domain.StatisticsSummary) string {
	return fmt.Sprintf("Iš viso rasta %d įrašų. Vidurkis: %s, Standartinis nuokrypis: %s.",
		s.RecordCount, s.Mean, s.StdDev)
}

func formatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
