package report

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradereport/internal/dataprocessing"
	"gradereport/pkg/contracts/domain"
)

func fixtureDataset() *domain.Dataset {
	return &domain.Dataset{
		ID:       "ds-1",
		Subjects: []string{"Matematika", "Fizika"},
		Students: []string{"Jonas", "Ona"},
		Observations: []domain.GradeObservation{
			{Student: "Jonas", Subject: "Matematika", Score: 8},
			{Student: "Jonas", Subject: "Fizika", Score: 6},
			{Student: "Ona", Subject: "Matematika", Score: 10},
			{Student: "Ona", Subject: "Fizika", Score: 7},
		},
		Attendance: []domain.AttendanceRecord{
			{Student: "Jonas", Counters: []domain.AttendanceCounter{
				{Kind: domain.LessonsMissed, Key: "absent_total", Label: "Praleistos pamokos", Value: 12},
				{Kind: domain.Unexcused, Key: "unexcused", Label: "Nepateisinta", Value: 2},
			}},
		},
	}
}

func TestAnalyzeSubjectFilter(t *testing.T) {
	analysis := Analyze(fixtureDataset(), domain.NewFilterCriteria("", "Matematika"))

	assert.Equal(t, domain.All, analysis.Criteria.Student)
	assert.Equal(t, "9.00", analysis.Summary.Mean.String())
	assert.Equal(t, "1.41", analysis.Summary.StdDev.String())
	assert.Equal(t, domain.NoUniqueMode(), analysis.Summary.Mode)
	assert.Equal(t, 2, analysis.Summary.RecordCount)
	assert.Equal(t, 2, analysis.Summary.DistinctStudentCount)

	require.Len(t, analysis.Charts, 3)
	assert.Equal(t, domain.ChartSubjectAverages, analysis.Charts[0].Kind)
	assert.Equal(t, domain.ChartStudentRanking, analysis.Charts[1].Kind)
	assert.Equal(t, domain.ChartLevelHistogram, analysis.Charts[2].Kind)
}

func TestAnalyzeRankingIgnoresStudentFilter(t *testing.T) {
	ds := fixtureDataset()
	all := Analyze(ds, domain.AllCriteria())
	one := Analyze(ds, domain.NewFilterCriteria("Jonas", "Fizika"))

	assert.Equal(t, all.StudentRanking, one.StudentRanking)

	ranking, ok := one.Chart(domain.ChartStudentRanking)
	require.True(t, ok)
	require.Len(t, ranking.Points, 2)
	assert.Equal(t, "Ona", ranking.Points[0].Label)
	assert.False(t, ranking.Points[0].Highlight)
	assert.Equal(t, "Jonas", ranking.Points[1].Label)
	assert.True(t, ranking.Points[1].Highlight)

	noHighlight, _ := all.Chart(domain.ChartStudentRanking)
	for _, p := range noHighlight.Points {
		assert.False(t, p.Highlight)
	}

	assert.Equal(t, 1, one.Summary.RecordCount)
}

func TestBuildClassSummary(t *testing.T) {
	ds := fixtureDataset()
	rep, err := NewBuilder("").Build(domain.ClassSummary, ds, Analyze(ds, domain.AllCriteria()))
	require.NoError(t, err)

	sections := rep.Sections()
	require.Len(t, sections, 7)
	assert.Equal(t, domain.TitleSection{Text: DefaultTitle}, sections[0])

	table, ok := sections[1].(domain.TableSection)
	require.True(t, ok)
	assert.Equal(t, "Klasės santrauka", table.Heading)
	assert.Equal(t, [][]string{{"Fizika", "6.50"}, {"Matematika", "9.00"}}, table.Rows)

	stats, ok := sections[2].(domain.KeyValueSection)
	require.True(t, ok)
	assert.Equal(t, domain.KeyValue{Key: "Bendras vidurkis", Value: "7.75"}, stats.Pairs[0])
	assert.Equal(t, domain.KeyValue{Key: "Moda", Value: domain.NoValue}, stats.Pairs[2])
	assert.Equal(t, domain.KeyValue{Key: "Mokinių skaičius", Value: "2"}, stats.Pairs[3])

	narrative, ok := sections[3].(domain.NarrativeSection)
	require.True(t, ok)
	assert.Contains(t, narrative.Text, "Iš viso rasta 4 įrašų")

	images := rep.Images()
	require.Len(t, images, 3)
	assert.Equal(t, domain.ChartSubjectAverages, images[0].Chart)
	assert.Equal(t, TitleStudentRanking, images[1].Caption)
	assert.Equal(t, domain.ChartLevelHistogram, images[2].Chart)
}

func TestBuildClassSummaryEmptySelection(t *testing.T) {
	ds := fixtureDataset()
	rep, err := NewBuilder("").Build(domain.ClassSummary, ds, Analyze(ds, domain.NewFilterCriteria("Petras", "")))
	require.NoError(t, err)

	stats := rep.Sections()[2].(domain.KeyValueSection)
	assert.Equal(t, domain.NoValue, stats.Pairs[0].Value)
	assert.Equal(t, domain.NoValue, stats.Pairs[1].Value)
	assert.Len(t, rep.Images(), 3)
}

func TestBuildClassSummaryMeanIsUnweighted(t *testing.T) {
	ds := &domain.Dataset{
		Subjects: []string{"Matematika", "Fizika"},
		Students: []string{"Jonas", "Ona", "Petras"},
		Observations: []domain.GradeObservation{
			{Student: "Jonas", Subject: "Matematika", Score: 10},
			{Student: "Ona", Subject: "Matematika", Score: 10},
			{Student: "Petras", Subject: "Matematika", Score: 10},
			{Student: "Jonas", Subject: "Fizika", Score: 4},
		},
	}
	rep, err := NewBuilder("").Build(domain.ClassSummary, ds, Analyze(ds, domain.AllCriteria()))
	require.NoError(t, err)

	sections := rep.Sections()
	table := sections[1].(domain.TableSection)
	assert.Equal(t, [][]string{{"Fizika", "4.00"}, {"Matematika", "10.00"}}, table.Rows)

	// 34 / 4 observations, not (4 + 10) / 2 subjects
	stats := sections[2].(domain.KeyValueSection)
	assert.Equal(t, []domain.KeyValue{
		{Key: "Bendras vidurkis", Value: "8.50"},
		{Key: "Standartinis nuokrypis", Value: "3.00"},
		{Key: "Moda", Value: "10"},
		{Key: "Mokinių skaičius", Value: "3"},
		{Key: "Įrašų skaičius", Value: "4"},
	}, stats.Pairs)
}

func TestBuildClassSummarySingleObservation(t *testing.T) {
	// Matematika 8, Fizika n/d
	ds := &domain.Dataset{
		Subjects: []string{"Matematika", "Fizika"},
		Students: []string{"Jonas"},
		Observations: []domain.GradeObservation{
			{Student: "Jonas", Subject: "Matematika", Score: 8},
		},
	}
	rep, err := NewBuilder("").Build(domain.ClassSummary, ds, Analyze(ds, domain.AllCriteria()))
	require.NoError(t, err)

	stats := rep.Sections()[2].(domain.KeyValueSection)
	assert.Equal(t, []domain.KeyValue{
		{Key: "Bendras vidurkis", Value: "8.00"},
		{Key: "Standartinis nuokrypis", Value: domain.NoValue},
		{Key: "Moda", Value: "8"},
		{Key: "Mokinių skaičius", Value: "1"},
		{Key: "Įrašų skaičius", Value: "1"},
	}, stats.Pairs)

	narrative := rep.Sections()[3].(domain.NarrativeSection)
	assert.Equal(t, "Iš viso rasta 1 įrašų. Vidurkis: 8.00, Standartinis nuokrypis: "+domain.NoValue+".", narrative.Text)
}

func TestBuildIndividualStudent(t *testing.T) {
	ds := fixtureDataset()
	rep, err := NewBuilder("Ataskaita").Build(domain.IndividualStudent, ds, Analyze(ds, domain.NewFilterCriteria("Jonas", "Fizika")))
	require.NoError(t, err)
	assert.Equal(t, "Ataskaita", rep.Title())

	sections := rep.Sections()
	require.Len(t, sections, 8)

	who := sections[1].(domain.KeyValueSection)
	assert.Equal(t, domain.KeyValue{Key: "Mokinys", Value: "Jonas"}, who.Pairs[0])
	assert.Equal(t, domain.KeyValue{Key: "Vidurkis", Value: "7.00"}, who.Pairs[1])

	scores := sections[2].(domain.TableSection)
	assert.Equal(t, [][]string{{"Matematika", "8"}, {"Fizika", "6"}}, scores.Rows, "subject filter does not narrow the student's scores")

	attendance := sections[3].(domain.KeyValueSection)
	assert.Equal(t, "Lankomumas", attendance.Heading)
	assert.Equal(t, []domain.KeyValue{{Key: "Praleistos pamokos", Value: "12"}, {Key: "Nepateisinta", Value: "2"}}, attendance.Pairs)

	rec := sections[4].(domain.NarrativeSection)
	assert.Equal(t, domain.TierGood.Text(), rec.Text)
}

func TestBuildIndividualWithoutAttendance(t *testing.T) {
	ds := fixtureDataset()
	rep, err := NewBuilder("").Build(domain.IndividualStudent, ds, Analyze(ds, domain.NewFilterCriteria("Ona", "")))
	require.NoError(t, err)

	sections := rep.Sections()
	require.Len(t, sections, 7)
	assert.Equal(t, domain.TierGood.Text(), sections[3].(domain.NarrativeSection).Text)
}

func TestBuildIndividualRequiresStudent(t *testing.T) {
	ds := fixtureDataset()
	_, err := NewBuilder("").Build(domain.IndividualStudent, ds, Analyze(ds, domain.AllCriteria()))
	assert.ErrorIs(t, err, ErrStudentRequired)

	_, err = NewBuilder("").Build(domain.ReportMode("weekly"), ds, Analyze(ds, domain.AllCriteria()))
	assert.Error(t, err)
}

type rowsSource struct {
	rows [][]string
}

func (s rowsSource) Name() string { return "rows" }

func (s rowsSource) ReadSheet(ctx context.Context, sheet string) ([][]string, error) {
	return s.rows, nil
}

func TestPipelineRenderReport(t *testing.T) {
	parser := dataprocessing.NewParser(dataprocessing.DefaultParseOptions(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	pipeline := NewPipeline(parser, NewBuilder(""))

	src := rowsSource{rows: [][]string{
		{"Klasė"}, {}, {},
		{"Nr.", "Mokinys", "Matematika", "Fizika", "Metinis"},
		{"1", "Jonas", "8", "6", "7"},
		{"2", "Ona", "10", "7", "9"},
	}}

	result, err := pipeline.RenderReport(context.Background(), src, domain.NewFilterCriteria("", "Matematika"), domain.ClassSummary)
	require.NoError(t, err)

	assert.Equal(t, "rows", result.Dataset.Source)
	assert.Len(t, result.Dataset.Observations, 4)
	assert.Equal(t, 2, result.Analysis.Summary.RecordCount)
	assert.Equal(t, domain.ClassSummary, result.Report.Mode())

	_, err = pipeline.RenderReport(context.Background(), rowsSource{rows: [][]string{{}}}, domain.AllCriteria(), domain.ClassSummary)
	assert.True(t, dataprocessing.IsParseError(err))
}
