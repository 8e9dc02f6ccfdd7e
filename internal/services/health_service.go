package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"gradereport/internal/validation"
	"gradereport/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	store      *SessionStore
	maxSession int
	pdfEnabled bool
	tempDir    string
	validator  *validation.FileValidator
	wsClients  func() int
	startTime  time.Time
	logger     *slog.Logger
}

// HealthOptions describes what readiness depends on.
type HealthOptions struct {
	Store       *SessionStore
	MaxSessions int
	PDFEnabled  bool
	TempDir     string
	// WebSocketClients reports connected dashboard clients. Optional.
	WebSocketClients func() int
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	ActiveSessions   int     `json:"active_sessions"`
	WebSocketClients int     `json:"websocket_clients"`
	Goroutines       int     `json:"goroutines"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a new health service
func NewHealthService(opts HealthOptions, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "health_service"))
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}

	logger.Info("HealthService initialized",
		slog.String("version", contracts.Version),
		slog.Bool("pdf_enabled", opts.PDFEnabled),
		slog.String("temp_dir", opts.TempDir))

	return &HealthService{
		store:      opts.Store,
		maxSession: opts.MaxSessions,
		pdfEnabled: opts.PDFEnabled,
		tempDir:    opts.TempDir,
		validator:  validation.NewFileValidator(logger, 0),
		wsClients:  opts.WebSocketClients,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck returns readiness status. The PDF printer is reported but
// does not make the service unready; dashboards work without it.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"sessions": hs.checkSessions(),
			"export":   hs.checkExport(),
			"pdf":      hs.checkPDF(),
		},
	}

	for name, service := range status.Services {
		if name == "pdf" {
			continue
		}
		if service.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "service not ready",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if hs.store != nil {
		stats.ActiveSessions = hs.store.Len()
	}
	if hs.wsClients != nil {
		stats.WebSocketClients = hs.wsClients()
	}
	return stats
}

func (hs *HealthService) checkSessions() ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "session store not initialized",
		}
	}

	n := hs.store.Len()
	if hs.maxSession > 0 && n >= hs.maxSession {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("session limit reached (%d)", hs.maxSession),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d active sessions", n),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

func (hs *HealthService) checkExport() ServiceHealth {
	if err := hs.validator.ValidateOutputDirectory(hs.tempDir); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to temp directory: %v", err),
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "Export workspace is writable",
	}
}

func (hs *HealthService) checkPDF() ServiceHealth {
	if !hs.pdfEnabled {
		return ServiceHealth{
			Status:  "disabled",
			Message: "no PDF printer configured",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "PDF printer configured",
	}
}
