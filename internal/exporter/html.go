package exporter

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"

	"gradereport/pkg/contracts/domain"
)

const reportTemplate = `<!DOCTYPE html>
<html lang="lt">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: A4; margin: 2cm; }
body { font-family: "DejaVu Sans", "Noto Sans", Arial, sans-serif; font-size: 11pt; color: #222; }
h1 { font-size: 20pt; text-align: center; margin: 0 0 1.2em; }
h2 { font-size: 14pt; margin: 1.4em 0 0.5em; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1em; }
th, td { border: 1px solid #bbb; padding: 4px 8px; text-align: left; }
th { background: #f0f0f0; }
dl { display: grid; grid-template-columns: max-content auto; gap: 4px 16px; margin: 0 0 1em; }
dt { font-weight: bold; }
dd { margin: 0; }
figure { margin: 1.2em auto; width: 16cm; break-inside: avoid; page-break-inside: avoid; }
figure img { width: 16cm; }
figcaption { text-align: center; font-size: 10pt; color: #555; }
</style>
</head>
<body>
{{- range .Sections}}
{{- if eq .Type "title"}}
<h1>{{.Text}}</h1>
{{- else if eq .Type "key_value"}}
<section>
{{- if .Heading}}<h2>{{.Heading}}</h2>{{end}}
<dl>
{{- range .Pairs}}
<dt>{{.Key}}</dt><dd>{{.Value}}</dd>
{{- end}}
</dl>
</section>
{{- else if eq .Type "table"}}
<section>
{{- if .Heading}}<h2>{{.Heading}}</h2>{{end}}
<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
</section>
{{- else if eq .Type "narrative"}}
<section>
{{- if .Heading}}<h2>{{.Heading}}</h2>{{end}}
<p>{{.Text}}</p>
</section>
{{- else if eq .Type "image"}}
<figure>
<img src="{{.Source}}" alt="{{.Caption}}">
<figcaption>{{.Caption}}</figcaption>
</figure>
{{- end}}
{{- end}}
</body>
</html>
`

// sectionView flattens a report section for the template.
type sectionView struct {
	Type    domain.SectionType
	Text    string
	Heading string
	Pairs   []domain.KeyValue
	Columns []string
	Rows    [][]string
	Caption string
	Source  template.URL
}

type documentView struct {
	Title    string
	Sections []sectionView
}

// HTMLRenderer lays a report out as a printable HTML page.
type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		tmpl: template.Must(template.New("report").Parse(reportTemplate)),
	}
}

// Render produces the document. images maps each chart to the URL its
// <img> tag points at: a relative file name or a data URI.
func (r *HTMLRenderer) Render(rep *domain.Report, images map[domain.ChartKind]template.URL) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("nil report")
	}

	view := documentView{Title: rep.Title()}
	for _, s := range rep.Sections() {
		v, err := viewOf(s, images)
		if err != nil {
			return nil, err
		}
		view.Sections = append(view.Sections, v)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render report html: %w", err)
	}
	return buf.Bytes(), nil
}

func viewOf(s domain.Section, images map[domain.ChartKind]template.URL) (sectionView, error) {
	v := sectionView{Type: s.Type()}
	switch s := s.(type) {
	case domain.TitleSection:
		v.Text = s.Text
	case domain.KeyValueSection:
		v.Heading = s.Heading
		v.Pairs = s.Pairs
	case domain.TableSection:
		v.Heading = s.Heading
		v.Columns = s.Columns
		v.Rows = s.Rows
	case domain.NarrativeSection:
		v.Heading = s.Heading
		v.Text = s.Text
	case domain.ImageSection:
		src, ok := images[s.Chart]
		if !ok {
			return v, fmt.Errorf("no image for chart %q", s.Chart)
		}
		v.Caption = s.Caption
		v.Source = src
	default:
		return v, fmt.Errorf("unsupported section type %q", s.Type())
	}
	return v, nil
}

// SVGDataURI embeds an SVG document in a URL.
func SVGDataURI(svg []byte) template.URL {
	return template.URL("data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg))
}

// ChartFileName is the workspace file a chart is written to.
func ChartFileName(kind domain.ChartKind) string {
	return string(kind) + ".svg"
}
