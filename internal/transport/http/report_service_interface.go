package http

import (
	"context"
	"io"

	"gradereport/internal/services"
	api "gradereport/pkg/contracts/api/v1"
	"gradereport/pkg/contracts/domain"
)

// ReportServiceInterface defines the session and report operations used by
// the HTTP handlers.
type ReportServiceInterface interface {
	Upload(ctx context.Context, name string, r io.Reader) (services.Session, error)
	ImportSheets(ctx context.Context, spreadsheetID string) (services.Session, error)
	Session(ctx context.Context, id string) (services.Session, error)
	Delete(ctx context.Context, id string) error

	Dashboard(ctx context.Context, id string, req api.ReportRequest) (*api.DashboardResponse, error)
	Chart(ctx context.Context, id string, kind domain.ChartKind, req api.ReportRequest) ([]byte, error)
	ObservationsCSV(ctx context.Context, id string, req api.ReportRequest, w io.Writer) error
	ReportHTML(ctx context.Context, id string, req api.ReportRequest) ([]byte, error)
	ExportPDF(ctx context.Context, id string, req api.ReportRequest) ([]byte, error)
}

var _ ReportServiceInterface = (*services.ReportService)(nil)
