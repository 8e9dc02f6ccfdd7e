package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "Grade Report"
	AppVersion = "1.0.0"

	// Workbook layout
	DefaultSheetName   = "Pasiekimų ir lankomumo"
	DefaultSkipRows    = 3
	DefaultWindowStart = 2
	DefaultWindowEnd   = 25

	// Report
	DefaultReportTitle = "Mokinių pasiekimų ataskaita"
	ReportFileName     = "ataskaita.pdf"

	// Uploads
	WorkbookExtension = ".xlsx"
	WorkbookMIMEType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	SheetsImportTimeout = 45 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Expired sessions are swept at this interval
	SessionSweepInterval = time.Minute

	// Log Settings
	DefaultLogLevel = "info"
)

// API paths
const (
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
