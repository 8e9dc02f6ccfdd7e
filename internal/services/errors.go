package services

import (
	"errors"

	"gradereport/internal/report"
)

// Report service errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")

	// Input errors
	ErrInvalidUpload   = errors.New("invalid upload")
	ErrInvalidRequest  = errors.New("invalid report request")
	ErrStudentRequired = report.ErrStudentRequired

	// Feature errors
	ErrSheetsDisabled = errors.New("google sheets import is disabled")

	// Export errors
	ErrExportFailed = errors.New("report export failed")
)
