package domain

import (
	"sort"
	"strings"
)

// All is the selector value meaning "no constraint" for a filter dimension.
const All = "Visi"

// Canonical names given to the first two spreadsheet columns.
const (
	OrdinalColumn = "Eil_Nr"
	StudentColumn = "Vardas_Pavarde"
)

// RawRow is one student row of the grades sheet before normalization.
// Grades and Attendance hold the raw cell text keyed by column label.
type RawRow struct {
	Ordinal    string            `json:"ordinal"`
	Student    string            `json:"student"`
	Grades     map[string]string `json:"grades"`
	Attendance map[string]string `json:"attendance,omitempty"`
}

// WideTable is the parsed grades sheet: one row per student, one column per subject.
type WideTable struct {
	Subjects []string `json:"subjects"`
	Rows     []RawRow `json:"rows"`
}

// GradeObservation is one (student, subject, score) fact of the long table.
type GradeObservation struct {
	Student string `json:"student"`
	Subject string `json:"subject"`
	Score   int    `json:"score"`
}

// AttendanceKind identifies one of the recognized attendance counters.
type AttendanceKind int

const (
	LessonsMissed AttendanceKind = iota
	ExcusedIllness
	ExcusedOther
	Unexcused
)

var attendanceLabels = [...]string{
	LessonsMissed:  "Praleistos pamokos",
	ExcusedIllness: "Pateisintos dėl ligos",
	ExcusedOther:   "Pateisintos dėl kitų priežasčių",
	Unexcused:      "Nepateisinta",
}

var attendanceKeys = [...]string{
	LessonsMissed:  "absent_total",
	ExcusedIllness: "excused_illness",
	ExcusedOther:   "excused_other",
	Unexcused:      "unexcused",
}

// AttendanceKinds returns the recognized counters in column order.
func AttendanceKinds() []AttendanceKind {
	return []AttendanceKind{LessonsMissed, ExcusedIllness, ExcusedOther, Unexcused}
}

// Label returns the exact column label used in the source sheet.
func (k AttendanceKind) Label() string {
	if k < 0 || int(k) >= len(attendanceLabels) {
		return ""
	}
	return attendanceLabels[k]
}

func (k AttendanceKind) String() string {
	if k < 0 || int(k) >= len(attendanceKeys) {
		return "unknown"
	}
	return attendanceKeys[k]
}

// AttendanceKindForLabel matches a column label exactly.
func AttendanceKindForLabel(label string) (AttendanceKind, bool) {
	for _, k := range AttendanceKinds() {
		if k.Label() == label {
			return k, true
		}
	}
	return 0, false
}

// AttendanceCounter is a single attendance value of a student.
type AttendanceCounter struct {
	Kind  AttendanceKind `json:"-"`
	Key   string         `json:"key"`
	Label string         `json:"label"`
	Value int            `json:"value"`
}

// AttendanceRecord holds the counters present in the source for one student.
type AttendanceRecord struct {
	Student  string              `json:"student"`
	Counters []AttendanceCounter `json:"counters"`
}

// Get returns the counter of the given kind if the source provided it.
func (r AttendanceRecord) Get(kind AttendanceKind) (int, bool) {
	for _, c := range r.Counters {
		if c.Kind == kind {
			return c.Value, true
		}
	}
	return 0, false
}

// FilterCriteria selects a student and a subject; All disables a dimension.
// An empty value is not a wildcard: it selects nothing. Input from users goes
// through NewFilterCriteria, which is where blanks become All.
type FilterCriteria struct {
	Student string `json:"student" validate:"required,max=200"`
	Subject string `json:"subject" validate:"required,max=200"`
}

// NewFilterCriteria trims the inputs and maps empty values to All.
func NewFilterCriteria(student, subject string) FilterCriteria {
	return FilterCriteria{
		Student: orAll(student),
		Subject: orAll(subject),
	}
}

// AllCriteria selects everything.
func AllCriteria() FilterCriteria {
	return FilterCriteria{Student: All, Subject: All}
}

// AllStudents reports whether the student dimension is unconstrained.
func (c FilterCriteria) AllStudents() bool { return c.Student == All }

// AllSubjects reports whether the subject dimension is unconstrained.
func (c FilterCriteria) AllSubjects() bool { return c.Subject == All }

// SelectedStudent returns the concrete student, if one is selected.
func (c FilterCriteria) SelectedStudent() (string, bool) {
	if c.AllStudents() || c.Student == "" {
		return "", false
	}
	return c.Student, true
}

// SelectedSubject returns the concrete subject, if one is selected.
func (c FilterCriteria) SelectedSubject() (string, bool) {
	if c.AllSubjects() || c.Subject == "" {
		return "", false
	}
	return c.Subject, true
}

func orAll(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return All
	}
	return v
}

// Dataset is the immutable result of parsing one uploaded spreadsheet.
type Dataset struct {
	ID           string             `json:"id"`
	Source       string             `json:"source"`
	Fingerprint  string             `json:"fingerprint"`
	Subjects     []string           `json:"subjects"`
	Students     []string           `json:"students"`
	Observations []GradeObservation `json:"-"`
	Attendance   []AttendanceRecord `json:"-"`
}

// AttendanceFor returns the attendance record of a student.
func (d *Dataset) AttendanceFor(student string) (AttendanceRecord, bool) {
	for _, rec := range d.Attendance {
		if rec.Student == student {
			return rec, true
		}
	}
	return AttendanceRecord{}, false
}

// StudentOptions returns All followed by the sorted distinct students of the long table.
func (d *Dataset) StudentOptions() []string {
	return options(d.Observations, func(o GradeObservation) string { return o.Student })
}

// SubjectOptions returns All followed by the sorted distinct subjects of the long table.
func (d *Dataset) SubjectOptions() []string {
	return options(d.Observations, func(o GradeObservation) string { return o.Subject })
}

func options(obs []GradeObservation, key func(GradeObservation) string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, o := range obs {
		k := key(o)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		values = append(values, k)
	}
	sort.Strings(values)
	return append([]string{All}, values...)
}
