package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gradereport/pkg/contracts/domain"
)

// DefaultSheetName is the tab holding grades and attendance.
const DefaultSheetName = "Pasiekimų ir lankomumo"

// Labels containing any of these fragments are aggregates, not subjects.
var excludedSubjectFragments = []string{"vidurkis", "metinis", "pusm", "socialinė"}

// ParseOptions describes where the data lives in the sheet.
type ParseOptions struct {
	SheetName string
	// SkipRows is the number of metadata rows above the header row. Zero is
	// a valid count, for sheets whose first row is the header.
	SkipRows int
	// WindowStart and WindowEnd bound the subject columns, end exclusive.
	WindowStart int
	WindowEnd   int
}

// DefaultParseOptions matches the layout exported by the school registry.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		SheetName:   DefaultSheetName,
		SkipRows:    3,
		WindowStart: 2,
		WindowEnd:   25,
	}
}

// ParseResult holds the cleaned wide table and the attendance counters.
type ParseResult struct {
	Header     []string
	Wide       domain.WideTable
	Attendance []domain.AttendanceRecord
}

// Parser turns raw sheet rows into a WideTable.
type Parser struct {
	opts   ParseOptions
	logger *slog.Logger
}

// NewParser creates a parser. An empty SheetName and a non-positive WindowEnd
// take their defaults. SkipRows is kept as given unless it is negative, since
// zero metadata rows is a real layout.
func NewParser(opts ParseOptions, logger *slog.Logger) *Parser {
	def := DefaultParseOptions()
	if opts.SheetName == "" {
		opts.SheetName = def.SheetName
	}
	if opts.SkipRows < 0 {
		opts.SkipRows = def.SkipRows
	}
	if opts.WindowEnd <= 0 {
		opts.WindowStart, opts.WindowEnd = def.WindowStart, def.WindowEnd
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		opts:   opts,
		logger: logger.With(slog.String("component", "parser")),
	}
}

// Options returns the effective options.
func (p *Parser) Options() ParseOptions {
	return p.opts
}

// Parse reads the configured sheet from src and parses it.
func (p *Parser) Parse(ctx context.Context, src Source) (*ParseResult, error) {
	rows, err := src.ReadSheet(ctx, p.opts.SheetName)
	if err != nil {
		return nil, err
	}

	result, err := p.ParseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", src.Name(), err)
	}

	p.logger.InfoContext(ctx, "Parsed grades sheet",
		slog.String("source", src.Name()),
		slog.Int("students", len(result.Wide.Rows)),
		slog.Int("subjects", len(result.Wide.Subjects)))

	return result, nil
}

// ParseRows applies the header, column and row rules to raw rows.
func (p *Parser) ParseRows(rows [][]string) (*ParseResult, error) {
	if len(rows) <= p.opts.SkipRows {
		return nil, &MissingColumnError{Column: domain.OrdinalColumn, Position: 0}
	}

	data := rows[p.opts.SkipRows+1:]
	header := normalizeHeader(padRow(rows[p.opts.SkipRows], widest(data)))
	if len(header) < 1 {
		return nil, &MissingColumnError{Column: domain.OrdinalColumn, Position: 0}
	}
	if len(header) < 2 {
		return nil, &MissingColumnError{Column: domain.StudentColumn, Position: 1}
	}
	header[0] = domain.OrdinalColumn
	header[1] = domain.StudentColumn

	subjectCols := p.subjectColumns(header)
	attendanceCols := attendanceColumns(header)

	result := &ParseResult{
		Header: header,
		Wide: domain.WideTable{
			Subjects: make([]string, 0, len(subjectCols)),
			Rows:     make([]domain.RawRow, 0),
		},
	}
	for _, col := range subjectCols {
		result.Wide.Subjects = append(result.Wide.Subjects, header[col])
	}

	dropped := 0
	for _, row := range data {
		ordinal := cell(row, 0)
		student := cell(row, 1)
		if ordinal == "" || student == "" {
			dropped++
			continue
		}

		raw := domain.RawRow{
			Ordinal: ordinal,
			Student: student,
			Grades:  make(map[string]string, len(subjectCols)),
		}
		for _, col := range subjectCols {
			raw.Grades[header[col]] = cell(row, col)
		}

		if len(attendanceCols) > 0 {
			raw.Attendance = make(map[string]string, len(attendanceCols))
			record := domain.AttendanceRecord{Student: student}
			for _, ac := range attendanceCols {
				text := cell(row, ac.index)
				raw.Attendance[ac.kind.Label()] = text
				record.Counters = append(record.Counters, domain.AttendanceCounter{
					Kind:  ac.kind,
					Key:   ac.kind.String(),
					Label: ac.kind.Label(),
					Value: parseCounter(text),
				})
			}
			result.Attendance = append(result.Attendance, record)
		}

		result.Wide.Rows = append(result.Wide.Rows, raw)
	}

	if len(result.Wide.Rows) == 0 {
		return nil, ErrEmptyDataset
	}

	p.logger.Debug("Sheet rows classified",
		slog.Int("kept", len(result.Wide.Rows)),
		slog.Int("dropped", dropped),
		slog.Int("attendance_columns", len(attendanceCols)))

	return result, nil
}

// subjectColumns returns the header positions inside the window that hold subjects.
func (p *Parser) subjectColumns(header []string) []int {
	end := p.opts.WindowEnd
	if end > len(header) {
		end = len(header)
	}

	var cols []int
	for i := p.opts.WindowStart; i < end; i++ {
		if i < 2 {
			continue
		}
		if IsSubjectLabel(header[i]) {
			cols = append(cols, i)
		}
	}
	return cols
}

// IsSubjectLabel reports whether a column label names a subject rather than
// an aggregate or an attendance counter.
func IsSubjectLabel(label string) bool {
	if _, ok := domain.AttendanceKindForLabel(label); ok {
		return false
	}
	lower := strings.ToLower(label)
	for _, fragment := range excludedSubjectFragments {
		if strings.Contains(lower, fragment) {
			return false
		}
	}
	return true
}

type attendanceColumn struct {
	kind  domain.AttendanceKind
	index int
}

// attendanceColumns finds the recognized attendance labels, in recognized order.
func attendanceColumns(header []string) []attendanceColumn {
	var cols []attendanceColumn
	for _, kind := range domain.AttendanceKinds() {
		for i, label := range header {
			if label == kind.Label() {
				cols = append(cols, attendanceColumn{kind: kind, index: i})
				break
			}
		}
	}
	return cols
}

// widest returns the length of the longest row.
func widest(rows [][]string) int {
	n := 0
	for _, row := range rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// padRow extends row with blank cells up to width. The spreadsheet reader
// trims trailing empty cells, so a header can be shorter than its data.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

// normalizeHeader trims labels, names blank columns and de-duplicates repeats.
func normalizeHeader(row []string) []string {
	header := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for i, raw := range row {
		label := strings.TrimSpace(raw)
		if label == "" {
			label = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[label]; ok {
			seen[label] = n + 1
			label = fmt.Sprintf("%s.%d", label, n+1)
		} else {
			seen[label] = 0
		}
		header[i] = label
	}
	return header
}
