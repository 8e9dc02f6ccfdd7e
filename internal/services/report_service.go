package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"gradereport/internal/dataprocessing"
	"gradereport/internal/exporter"
	"gradereport/internal/infrastructure"
	"gradereport/internal/report"
	"gradereport/internal/validation"
	api "gradereport/pkg/contracts/api/v1"
	"gradereport/pkg/contracts/domain"
)

// SheetsOpener opens a Google Sheets spreadsheet as a parser source.
type SheetsOpener func(ctx context.Context, spreadsheetID string) (dataprocessing.Source, error)

// ReportServiceConfig holds the collaborators of a ReportService. Exporter,
// SheetsOpener, Metrics and Tracer are optional.
type ReportServiceConfig struct {
	Pipeline     *report.Pipeline
	Store        *SessionStore
	Exporter     *exporter.Exporter
	CSV          *exporter.CSVWriter
	Validator    *validation.FileValidator
	SheetsOpener SheetsOpener
	Metrics      *infrastructure.BusinessMetrics
	Tracer       trace.Tracer
	Logger       *slog.Logger
}

// ReportService turns uploads into sessions and sessions into dashboards,
// charts, CSV and PDF documents. Every call recomputes from the session's
// dataset.
type ReportService struct {
	pipeline  *report.Pipeline
	store     *SessionStore
	exporter  *exporter.Exporter
	csv       *exporter.CSVWriter
	validator *validation.FileValidator
	sheets    SheetsOpener
	metrics   *infrastructure.BusinessMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewReportService creates a report service.
func NewReportService(cfg ReportServiceConfig) (*ReportService, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("gradereport/services")
	}
	csvWriter := cfg.CSV
	if csvWriter == nil {
		csvWriter = exporter.NewCSVWriter(logger)
	}
	fileValidator := cfg.Validator
	if fileValidator == nil {
		fileValidator = validation.NewFileValidator(logger, 0)
	}

	return &ReportService{
		pipeline:  cfg.Pipeline,
		store:     cfg.Store,
		exporter:  cfg.Exporter,
		csv:       csvWriter,
		validator: fileValidator,
		sheets:    cfg.SheetsOpener,
		metrics:   cfg.Metrics,
		tracer:    tracer,
		logger:    logger.With(slog.String("component", "report_service")),
	}, nil
}

// Upload parses an xlsx upload and stores it as a new session.
func (s *ReportService) Upload(ctx context.Context, name string, r io.Reader) (sess Session, err error) {
	ctx, span := s.tracer.Start(ctx, "ReportService.Upload",
		trace.WithAttributes(attribute.String("upload.name", name)))
	defer func() { endSpan(span, err) }()

	var size int64
	var observations int
	defer func() {
		infrastructure.RecordUpload(ctx, s.metrics, "xlsx", size, observations, err)
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return Session{}, fmt.Errorf("read upload: %w", err)
	}
	size = int64(len(data))
	span.SetAttributes(attribute.Int64("upload.size", size))

	if err := s.validator.ValidateUpload(name, size, data); err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidUpload, err)
	}

	src, err := dataprocessing.OpenWorkbook(bytes.NewReader(data), name)
	if err != nil {
		return Session{}, err
	}
	defer src.Close()

	ds, err := s.pipeline.Load(ctx, src, uuid.NewString())
	if err != nil {
		return Session{}, err
	}
	ds.Fingerprint = Fingerprint(data)
	observations = len(ds.Observations)

	sess, err = s.store.Put(ctx, ds)
	if err != nil {
		return Session{}, err
	}

	s.logger.InfoContext(ctx, "upload parsed",
		slog.String("session_id", sess.ID),
		slog.String("source", name),
		slog.Int64("size", size),
		slog.Int("observations", observations),
		slog.Int("students", len(ds.Students)))
	return sess, nil
}

// ImportSheets reads a Google Sheets spreadsheet and stores it as a new
// session.
func (s *ReportService) ImportSheets(ctx context.Context, spreadsheetID string) (sess Session, err error) {
	if s.sheets == nil {
		return Session{}, ErrSheetsDisabled
	}

	ctx, span := s.tracer.Start(ctx, "ReportService.ImportSheets",
		trace.WithAttributes(attribute.String("sheets.id", spreadsheetID)))
	defer func() { endSpan(span, err) }()

	var observations int
	defer func() {
		infrastructure.RecordUpload(ctx, s.metrics, "sheets", 0, observations, err)
	}()

	src, err := s.sheets(ctx, spreadsheetID)
	if err != nil {
		return Session{}, fmt.Errorf("open spreadsheet %s: %w", spreadsheetID, err)
	}

	ds, err := s.pipeline.Load(ctx, src, uuid.NewString())
	if err != nil {
		return Session{}, err
	}
	ds.Fingerprint = DatasetFingerprint(ds)
	observations = len(ds.Observations)

	sess, err = s.store.Put(ctx, ds)
	if err != nil {
		return Session{}, err
	}

	s.logger.InfoContext(ctx, "spreadsheet imported",
		slog.String("session_id", sess.ID),
		slog.String("spreadsheet_id", spreadsheetID),
		slog.Int("observations", observations))
	return sess, nil
}

// Session returns a stored session.
func (s *ReportService) Session(ctx context.Context, id string) (Session, error) {
	return s.store.Get(ctx, id)
}

// Delete removes a session.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "session deleted", slog.String("session_id", id))
	return nil
}

// SessionCount returns the number of stored sessions.
func (s *ReportService) SessionCount() int {
	return s.store.Len()
}

// Dashboard analyzes a session for the requested selection and builds the
// report model.
func (s *ReportService) Dashboard(ctx context.Context, id string, req api.ReportRequest) (resp *api.DashboardResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "ReportService.Dashboard",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer func() { endSpan(span, err) }()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.run(ctx, sess, req)
	if err != nil {
		return nil, err
	}

	return &api.DashboardResponse{
		SessionID: sess.ID,
		Criteria:  result.Analysis.Criteria,
		Mode:      result.Report.Mode(),
		Summary:   report.SummarySentence(result.Analysis.Summary),
		Analysis:  result.Analysis,
		Report:    result.Report,
	}, nil
}

// Chart renders one chart of a session as SVG. Charts depend on the filter
// only, so the report mode is ignored.
func (s *ReportService) Chart(ctx context.Context, id string, kind domain.ChartKind, req api.ReportRequest) (svg []byte, err error) {
	if s.exporter == nil {
		return nil, errors.New("chart renderer not configured")
	}

	ctx, span := s.tracer.Start(ctx, "ReportService.Chart",
		trace.WithAttributes(
			attribute.String("session.id", id),
			attribute.String("chart.kind", string(kind))))
	defer func() { endSpan(span, err) }()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	analysis := report.Analyze(sess.Dataset, req.Criteria())
	return s.exporter.RenderChart(analysis, kind)
}

// ObservationsCSV writes the filtered long table of a session.
func (s *ReportService) ObservationsCSV(ctx context.Context, id string, req api.ReportRequest, w io.Writer) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	filtered := dataprocessing.Apply(sess.Dataset.Observations, req.Criteria())
	return s.csv.WriteCSV(w, exporter.ObservationOptions(filtered))
}

// ReportHTML renders the report of a session as a standalone HTML page with
// the charts inlined. It needs no printer.
func (s *ReportService) ReportHTML(ctx context.Context, id string, req api.ReportRequest) (page []byte, err error) {
	if s.exporter == nil {
		return nil, errors.New("report renderer not configured")
	}

	ctx, span := s.tracer.Start(ctx, "ReportService.ReportHTML",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer func() { endSpan(span, err) }()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.run(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	return s.exporter.RenderHTML(ctx, result.Report, result.Analysis)
}

// ExportPDF renders the report of a session to a PDF document.
func (s *ReportService) ExportPDF(ctx context.Context, id string, req api.ReportRequest) (pdf []byte, err error) {
	ctx, span := s.tracer.Start(ctx, "ReportService.ExportPDF",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer func() { endSpan(span, err) }()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.run(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, exporter.ErrNoPrinter)
	}

	mode := string(result.Report.Mode())
	start := time.Now()
	pdf, err = s.exporter.ExportPDF(ctx, result.Report, result.Analysis)
	infrastructure.RecordExport(ctx, s.metrics, mode, time.Since(start), err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	s.logger.InfoContext(ctx, "report exported",
		slog.String("session_id", id),
		slog.String("mode", mode),
		slog.Int("bytes", len(pdf)),
		slog.Duration("duration", time.Since(start)))
	return pdf, nil
}

func (s *ReportService) run(ctx context.Context, sess Session, req api.ReportRequest) (*report.Result, error) {
	mode, err := req.ReportMode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	start := time.Now()
	result, err := s.pipeline.Run(sess.Dataset, req.Criteria(), mode)
	if err != nil {
		return nil, err
	}
	infrastructure.RecordReportBuilt(ctx, s.metrics, string(mode), time.Since(start))
	return result, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
