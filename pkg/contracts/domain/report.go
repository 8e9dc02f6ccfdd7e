package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// ReportMode selects which block the report carries.
type ReportMode string

const (
	ClassSummary      ReportMode = "class"
	IndividualStudent ReportMode = "individual"
)

// ParseReportMode accepts "class" or "individual"; empty means class.
func ParseReportMode(s string) (ReportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ClassSummary):
		return ClassSummary, nil
	case string(IndividualStudent):
		return IndividualStudent, nil
	default:
		return "", fmt.Errorf("unknown report mode %q", s)
	}
}

// SectionType discriminates report sections.
type SectionType string

const (
	SectionTitle     SectionType = "title"
	SectionKeyValue  SectionType = "key_value"
	SectionTable     SectionType = "table"
	SectionImage     SectionType = "image"
	SectionNarrative SectionType = "narrative"
)

// Section is one block of a report. The set of implementations is closed.
type Section interface {
	Type() SectionType
	section()
}

type TitleSection struct {
	Text string `json:"text"`
}

// KeyValue is one labelled value.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type KeyValueSection struct {
	Heading string     `json:"heading,omitempty"`
	Pairs   []KeyValue `json:"pairs"`
}

type TableSection struct {
	Heading string     `json:"heading,omitempty"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ImageSection refers to a chart; renderers resolve it to an image.
type ImageSection struct {
	Chart   ChartKind `json:"chart"`
	Caption string    `json:"caption"`
}

type NarrativeSection struct {
	Heading string `json:"heading,omitempty"`
	Text    string `json:"text"`
}

func (TitleSection) Type() SectionType     { return SectionTitle }
func (KeyValueSection) Type() SectionType  { return SectionKeyValue }
func (TableSection) Type() SectionType     { return SectionTable }
func (ImageSection) Type() SectionType     { return SectionImage }
func (NarrativeSection) Type() SectionType { return SectionNarrative }

func (TitleSection) section()     {}
func (KeyValueSection) section()  {}
func (TableSection) section()     {}
func (ImageSection) section()     {}
func (NarrativeSection) section() {}

func (s TitleSection) MarshalJSON() ([]byte, error) {
	type alias TitleSection
	return json.Marshal(struct {
		Type SectionType `json:"type"`
		alias
	}{s.Type(), alias(s)})
}

func (s KeyValueSection) MarshalJSON() ([]byte, error) {
	type alias KeyValueSection
	return json.Marshal(struct {
		Type SectionType `json:"type"`
		alias
	}{s.Type(), alias(s)})
}

func (s TableSection) MarshalJSON() ([]byte, error) {
	type alias TableSection
	return json.Marshal(struct {
		Type SectionType `json:"type"`
		alias
	}{s.Type(), alias(s)})
}

func (s ImageSection) MarshalJSON() ([]byte, error) {
	type alias ImageSection
	return json.Marshal(struct {
		Type SectionType `json:"type"`
		alias
	}{s.Type(), alias(s)})
}

func (s NarrativeSection) MarshalJSON() ([]byte, error) {
	type alias NarrativeSection
	return json.Marshal(struct {
		Type SectionType `json:"type"`
		alias
	}{s.Type(), alias(s)})
}

// Report is an ordered, backend-agnostic document. It is not modified after NewReport.
type Report struct {
	mode     ReportMode
	title    string
	sections []Section
}

// NewReport copies the given sections into a new report.
func NewReport(mode ReportMode, title string, sections ...Section) *Report {
	return &Report{
		mode:     mode,
		title:    title,
		sections: cloneSections(sections),
	}
}

func (r *Report) Mode() ReportMode { return r.mode }
func (r *Report) Title() string    { return r.title }

// Sections returns a deep copy of the section list.
func (r *Report) Sections() []Section {
	return cloneSections(r.sections)
}

func cloneSections(sections []Section) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		switch v := s.(type) {
		case KeyValueSection:
			v.Pairs = slices.Clone(v.Pairs)
			s = v
		case TableSection:
			v.Columns = slices.Clone(v.Columns)
			if v.Rows != nil {
				rows := make([][]string, len(v.Rows))
				for i, row := range v.Rows {
					rows[i] = slices.Clone(row)
				}
				v.Rows = rows
			}
			s = v
		}
		out = append(out, s)
	}
	return out
}

// Images returns the image sections in order.
func (r *Report) Images() []ImageSection {
	var images []ImageSection
	for _, s := range r.sections {
		if img, ok := s.(ImageSection); ok {
			images = append(images, img)
		}
	}
	return images
}

func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mode     ReportMode `json:"mode"`
		Title    string     `json:"title"`
		Sections []Section  `json:"sections"`
	}{r.mode, r.title, r.sections})
}
