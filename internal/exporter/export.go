package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gradereport/internal/files"
	"gradereport/pkg/contracts/domain"
)

// ReportFileName is the default name of the exported document.
const ReportFileName = "ataskaita.pdf"

const (
	htmlFileName = "report.html"
	pdfMagic     = "%PDF-"
)

// ErrNoPrinter is returned when PDF export is requested without a printer.
var ErrNoPrinter = errors.New("pdf printer not configured")

// Exporter renders reports to self-contained HTML and to PDF.
type Exporter struct {
	charts  *ChartRenderer
	html    *HTMLRenderer
	printer Printer
	tempDir string
	logger  *slog.Logger
}

// NewExporter creates an exporter. printer may be nil when only HTML and
// SVG output is needed. tempDir is the base for export workspaces.
func NewExporter(printer Printer, tempDir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		charts:  NewChartRenderer(),
		html:    NewHTMLRenderer(),
		printer: printer,
		tempDir: tempDir,
		logger:  logger.With(slog.String("component", "exporter")),
	}
}

// RenderChart draws one chart of an analysis.
func (e *Exporter) RenderChart(analysis domain.Analysis, kind domain.ChartKind) ([]byte, error) {
	spec, ok := analysis.Chart(kind)
	if !ok {
		return nil, fmt.Errorf("analysis has no chart %q", kind)
	}
	return e.charts.Render(spec)
}

// RenderCharts draws every chart referenced by the report concurrently.
func (e *Exporter) RenderCharts(ctx context.Context, rep *domain.Report, analysis domain.Analysis) (map[domain.ChartKind][]byte, error) {
	images := rep.Images()
	out := make(map[domain.ChartKind][]byte, len(images))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, img := range images {
		kind := img.Chart
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			svg, err := e.RenderChart(analysis, kind)
			if err != nil {
				return err
			}
			mu.Lock()
			out[kind] = svg
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RenderHTML produces a standalone page with the charts inlined.
func (e *Exporter) RenderHTML(ctx context.Context, rep *domain.Report, analysis domain.Analysis) ([]byte, error) {
	charts, err := e.RenderCharts(ctx, rep, analysis)
	if err != nil {
		return nil, err
	}
	images := make(map[domain.ChartKind]template.URL, len(charts))
	for kind, svg := range charts {
		images[kind] = SVGDataURI(svg)
	}
	return e.html.Render(rep, images)
}

// ExportPDF renders the report to PDF bytes. All intermediate files live
// in a private workspace that is removed before returning.
func (e *Exporter) ExportPDF(ctx context.Context, rep *domain.Report, analysis domain.Analysis) ([]byte, error) {
	var pdf []byte
	err := e.withWorkspace(ctx, rep, analysis, func(ws *files.Workspace, data []byte) error {
		pdf = data
		return nil
	})
	return pdf, err
}

// ExportPDFFile renders the report and moves the PDF to dst. dst is only
// written when the whole export succeeds.
func (e *Exporter) ExportPDFFile(ctx context.Context, rep *domain.Report, analysis domain.Analysis, dst string) error {
	return e.withWorkspace(ctx, rep, analysis, func(ws *files.Workspace, data []byte) error {
		if _, err := ws.WriteFile(ReportFileName, data); err != nil {
			return err
		}
		return ws.Publish(ReportFileName, dst)
	})
}

func (e *Exporter) withWorkspace(ctx context.Context, rep *domain.Report, analysis domain.Analysis, done func(*files.Workspace, []byte) error) error {
	if e.printer == nil {
		return ErrNoPrinter
	}
	if rep == nil {
		return fmt.Errorf("nil report")
	}

	start := time.Now()
	ws, err := files.NewWorkspace(e.tempDir, "gradereport-export", e.logger)
	if err != nil {
		return err
	}
	defer ws.Cleanup()

	charts, err := e.RenderCharts(ctx, rep, analysis)
	if err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}

	images := make(map[domain.ChartKind]template.URL, len(charts))
	for kind, svg := range charts {
		name := ChartFileName(kind)
		if _, err := ws.WriteFile(name, svg); err != nil {
			return err
		}
		images[kind] = template.URL(name)
	}

	page, err := e.html.Render(rep, images)
	if err != nil {
		return err
	}
	htmlPath, err := ws.WriteFile(htmlFileName, page)
	if err != nil {
		return err
	}

	pdf, err := e.printer.PrintPDF(ctx, fileURL(htmlPath))
	if err != nil {
		return fmt.Errorf("failed to print pdf: %w", err)
	}
	if !bytes.HasPrefix(pdf, []byte(pdfMagic)) {
		return fmt.Errorf("printer returned %d bytes that are not a pdf document", len(pdf))
	}

	if err := done(ws, pdf); err != nil {
		return err
	}

	e.logger.Info("Report exported",
		slog.String("mode", string(rep.Mode())),
		slog.Int("sections", len(rep.Sections())),
		slog.Int("bytes", len(pdf)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}
