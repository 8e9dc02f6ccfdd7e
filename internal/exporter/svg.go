package exporter

import (
	"fmt"
	"html"
	"math"
	"strings"
	"unicode/utf8"

	"gradereport/pkg/contracts/domain"
)

// Chart geometry in SVG user units. The aspect ratio of the horizontal
// charts matches the 16cm x 8cm image slot of the PDF layout.
const (
	chartWidth    = 800
	titleHeight   = 36
	axisHeight    = 44
	barThickness  = 22
	barGap        = 10
	charWidthPx   = 7.2
	minLabelWidth = 60
	maxLabelWidth = 260
	valuePadding  = 48
	columnWidth   = 130
	plotHeight    = 300
	fontFamily    = "DejaVu Sans, Noto Sans, Arial, sans-serif"
	emptyText     = "Nėra duomenų"
)

// ChartRenderer draws chart specs as standalone SVG documents.
type ChartRenderer struct{}

func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{}
}

// Render draws one chart.
func (r *ChartRenderer) Render(spec domain.ChartSpec) ([]byte, error) {
	if spec.Kind == "" {
		return nil, fmt.Errorf("chart spec without kind")
	}
	if spec.Horizontal {
		return renderHorizontal(spec), nil
	}
	return renderVertical(spec), nil
}

func renderHorizontal(spec domain.ChartSpec) []byte {
	labelWidth := minLabelWidth
	for _, p := range spec.Points {
		w := int(float64(utf8.RuneCountInString(p.Label))*charWidthPx) + 12
		if w > labelWidth {
			labelWidth = w
		}
	}
	if labelWidth > maxLabelWidth {
		labelWidth = maxLabelWidth
	}

	rows := len(spec.Points)
	if rows == 0 {
		rows = 1
	}
	height := titleHeight + rows*(barThickness+barGap) + axisHeight
	plotLeft := float64(labelWidth)
	plotWidth := float64(chartWidth-labelWidth) - valuePadding
	axisMax := axisLimit(spec)

	var b strings.Builder
	openSVG(&b, chartWidth, height, spec.Title)

	if len(spec.Points) == 0 {
		emptyNotice(&b, chartWidth, height)
	}

	for i, p := range spec.Points {
		y := float64(titleHeight + i*(barThickness+barGap))
		w := plotWidth * clamp(p.Value/axisMax)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="end" dominant-baseline="middle" font-size="12">%s</text>`+"\n",
			plotLeft-6, y+barThickness/2, escape(truncate(p.Label, labelWidth)))
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%d" fill="%s"/>`+"\n",
			plotLeft, y, w, barThickness, barColor(spec, p))
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" dominant-baseline="middle" font-size="12">%s</text>`+"\n",
			plotLeft+w+4, y+barThickness/2, formatFloat(p.Value, spec.Decimals))
	}

	axisY := float64(height - axisHeight + 4)
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n",
		plotLeft, axisY, plotLeft+plotWidth, axisY)
	for _, tick := range ticks(axisMax) {
		x := plotLeft + plotWidth*tick/axisMax
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", x, axisY, x, axisY+4)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="11">%s</text>`+"\n",
			x, axisY+16, formatTick(tick))
	}
	if spec.XLabel != "" {
		fmt.Fprintf(&b, `<text x="%.1f" y="%d" text-anchor="middle" font-size="12">%s</text>`+"\n",
			plotLeft+plotWidth/2, height-6, escape(spec.XLabel))
	}

	closeSVG(&b)
	return []byte(b.String())
}

func renderVertical(spec domain.ChartSpec) []byte {
	cols := len(spec.Points)
	if cols == 0 {
		cols = 1
	}
	const left = 60.0
	width := int(left) + cols*columnWidth + 20
	if width < chartWidth/2 {
		width = chartWidth / 2
	}
	height := titleHeight + plotHeight + axisHeight + 16
	axisMax := axisLimit(spec)
	baseY := float64(titleHeight + plotHeight)

	var b strings.Builder
	openSVG(&b, width, height, spec.Title)

	if len(spec.Points) == 0 {
		emptyNotice(&b, width, height)
	}

	fmt.Fprintf(&b, `<line x1="%.1f" y1="%d" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", left, titleHeight, left, baseY)
	for _, tick := range ticks(axisMax) {
		y := baseY - plotHeight*tick/axisMax
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="end" dominant-baseline="middle" font-size="11">%s</text>`+"\n",
			left-6, y, formatTick(tick))
	}

	for i, p := range spec.Points {
		x := left + float64(i*columnWidth) + columnWidth*0.15
		w := columnWidth * 0.7
		h := plotHeight * clamp(p.Value/axisMax)
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`+"\n",
			x, baseY-h, w, h, barColor(spec, p))
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="12">%s</text>`+"\n",
			x+w/2, baseY-h-6, formatFloat(p.Value, spec.Decimals))
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="11">%s</text>`+"\n",
			x+w/2, baseY+16, escape(p.Label))
	}

	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%d" y2="%.1f" stroke="#333"/>`+"\n", left, baseY, width-10, baseY)
	if spec.YLabel != "" {
		fmt.Fprintf(&b, `<text x="14" y="%.1f" text-anchor="middle" font-size="12" transform="rotate(-90 14 %.1f)">%s</text>`+"\n",
			baseY-plotHeight/2, baseY-plotHeight/2, escape(spec.YLabel))
	}

	closeSVG(&b)
	return []byte(b.String())
}

func openSVG(b *strings.Builder, width, height int, title string) {
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="%s">`+"\n",
		width, height, width, height, fontFamily)
	fmt.Fprintf(b, `<rect width="100%%" height="100%%" fill="#ffffff"/>`+"\n")
	fmt.Fprintf(b, `<title>%s</title>`+"\n", escape(title))
	fmt.Fprintf(b, `<text x="%d" y="22" text-anchor="middle" font-size="15" font-weight="bold">%s</text>`+"\n",
		width/2, escape(title))
}

func closeSVG(b *strings.Builder) {
	b.WriteString("</svg>\n")
}

func emptyNotice(b *strings.Builder, width, height int) {
	fmt.Fprintf(b, `<text x="%d" y="%d" text-anchor="middle" font-size="13" fill="#777">%s</text>`+"\n",
		width/2, height/2, emptyText)
}

// axisLimit is the fixed axis maximum, or the data maximum rounded up.
func axisLimit(spec domain.ChartSpec) float64 {
	if spec.AxisMax > 0 {
		return spec.AxisMax
	}
	max := 0.0
	for _, p := range spec.Points {
		if p.Value > max {
			max = p.Value
		}
	}
	if max <= 0 {
		return 1
	}
	return niceCeil(max * 1.1)
}

// niceCeil rounds up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}

// ticks returns about five evenly spaced tick values from zero to max.
func ticks(max float64) []float64 {
	step := niceCeil(max / 5)
	var out []float64
	for v := 0.0; v <= max+step/1000; v += step {
		out = append(out, v)
	}
	return out
}

func formatTick(v float64) string {
	if v == math.Trunc(v) {
		return formatFloat(v, 0)
	}
	return formatFloat(v, 1)
}

func barColor(spec domain.ChartSpec, p domain.ChartPoint) string {
	if p.Highlight && spec.HighlightColor != "" {
		return spec.HighlightColor
	}
	if spec.Color == "" {
		return "#1f77b4"
	}
	return spec.Color
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// truncate shortens a label to fit the label column.
func truncate(label string, width int) string {
	max := int(float64(width-12) / charWidthPx)
	if max < 4 || utf8.RuneCountInString(label) <= max {
		return label
	}
	runes := []rune(label)
	return string(runes[:max-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
