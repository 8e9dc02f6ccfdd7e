// Package api contains the HTTP and WebSocket contracts of the grade report service.
// Version v1 represents the current stable API version.
package api

import (
	"time"

	"gradereport/pkg/contracts/domain"
)

// Requests

// ReportRequest selects what a dashboard, chart, CSV or PDF is computed for.
// Empty student or subject mean "Visi"; an empty mode means the class report.
type ReportRequest struct {
	Student string `json:"student" query:"student" validate:"omitempty,max=200,nocontrol"`
	Subject string `json:"subject" query:"subject" validate:"omitempty,max=200,nocontrol"`
	Mode    string `json:"mode" query:"mode" validate:"omitempty,oneof=class individual"`
}

// Criteria returns the normalized filter selection.
func (r ReportRequest) Criteria() domain.FilterCriteria {
	return domain.NewFilterCriteria(r.Student, r.Subject)
}

// ReportMode parses the requested mode. Validation has already restricted
// the value, so an error here means the struct was not validated.
func (r ReportRequest) ReportMode() (domain.ReportMode, error) {
	return domain.ParseReportMode(r.Mode)
}

// SheetsImportRequest imports a Google Sheets spreadsheet instead of an upload.
type SheetsImportRequest struct {
	SpreadsheetID string `json:"spreadsheet_id" validate:"required,spreadsheetid"`
}

// Responses

// SessionResponse describes a parsed upload and the selector options for it.
type SessionResponse struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Fingerprint  string    `json:"fingerprint"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Students     []string  `json:"students"`
	Subjects     []string  `json:"subjects"`
	Observations int       `json:"observations"`
	StudentCount int       `json:"student_count"`
}

// DashboardResponse is the analysis and report model for one selection.
type DashboardResponse struct {
	SessionID string                `json:"session_id"`
	Criteria  domain.FilterCriteria `json:"criteria"`
	Mode      domain.ReportMode     `json:"mode"`
	Summary   string                `json:"summary"`
	Analysis  domain.Analysis       `json:"analysis"`
	Report    *domain.Report        `json:"report"`
}

// VersionResponse reports the build of the running server.
type VersionResponse struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	BuildTime  string `json:"build_time"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	APIVersion string `json:"api_version"`
	DataFormat string `json:"data_format"`
}
