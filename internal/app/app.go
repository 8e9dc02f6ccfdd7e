package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"google.golang.org/api/option"

	"gradereport/internal/config"
	"gradereport/internal/dataprocessing"
	apierrors "gradereport/internal/errors"
	"gradereport/internal/exporter"
	"gradereport/internal/infrastructure"
	customMiddleware "gradereport/internal/middleware"
	"gradereport/internal/report"
	"gradereport/internal/services"
	handlers "gradereport/internal/transport/http"
	"gradereport/internal/validation"
	ws "gradereport/internal/websocket"
	"gradereport/pkg/contracts"
)

const defaultShutdownTimeout = 30 * time.Second

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Sessions      *services.SessionStore
	ReportService *services.ReportService
	HealthService *services.HealthService
	WebSocketHub  *ws.Hub
	FrontendFS    fs.FS // optional single page frontend

	errorHandler *apierrors.ErrorHandler
	pdfEnabled   bool
	stopJanitor  context.CancelFunc
}

// NewApplication loads the configuration and logger from the environment
// and builds the application.
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger, frontendFS)
}

// New wires every component from an explicit configuration.
func New(cfg *config.Config, logger *slog.Logger, frontendFS fs.FS) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("build_time", contracts.BuildTime))

	otelProviders, err := infrastructure.InitializeOTel(
		infrastructure.NewOTelConfig(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		FrontendFS:    frontendFS,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices builds the report pipeline, the session store and the
// services on top of them.
func (a *Application) initializeServices() error {
	cfg := a.Config

	parser := dataprocessing.NewParser(dataprocessing.ParseOptions{
		SheetName:   cfg.Workbook.SheetName,
		SkipRows:    cfg.Workbook.SkipRows,
		WindowStart: cfg.Workbook.WindowStart,
		WindowEnd:   cfg.Workbook.WindowEnd,
	}, a.Logger)
	pipeline := report.NewPipeline(parser, report.NewBuilder(cfg.Export.Title))

	var printer exporter.Printer
	if !cfg.Export.DisablePDF {
		printer = exporter.NewChromePrinter(exporter.ChromeOptions{
			ExecPath:  cfg.Export.ChromePath,
			Headless:  cfg.Export.Headless,
			NoSandbox: cfg.Export.NoSandbox,
			Timeout:   cfg.Export.Timeout,
		}, a.Logger)
		a.pdfEnabled = true
	}
	exp := exporter.NewExporter(printer, cfg.Export.TempDir, a.Logger)

	wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(wsMetrics, a.Logger)

	a.Sessions = services.NewSessionStore(cfg.Upload.SessionTTL, cfg.Upload.MaxSessions, a.Metrics, a.Logger)
	a.Sessions.OnRemove(func(ctx context.Context, id string) {
		a.WebSocketHub.ExpireSession(ctx, id)
	})

	var opener services.SheetsOpener
	if cfg.Sheets.Enabled {
		opener = SheetsOpener(cfg.Sheets)
	}

	a.ReportService, err = services.NewReportService(services.ReportServiceConfig{
		Pipeline:     pipeline,
		Store:        a.Sessions,
		Exporter:     exp,
		CSV:          exporter.NewCSVWriter(a.Logger),
		Validator:    validation.NewFileValidator(a.Logger, cfg.Upload.MaxBytes),
		SheetsOpener: opener,
		Metrics:      a.Metrics,
		Tracer:       a.OTelProviders.Tracer,
		Logger:       a.Logger,
	})
	if err != nil {
		return err
	}

	a.HealthService = services.NewHealthService(services.HealthOptions{
		Store:            a.Sessions,
		MaxSessions:      cfg.Upload.MaxSessions,
		PDFEnabled:       a.pdfEnabled,
		TempDir:          cfg.Export.TempDir,
		WebSocketClients: a.WebSocketHub.ClientCount,
	}, a.Logger)

	return nil
}

// SheetsOpener opens spreadsheets with the configured credentials. A
// credentials file wins over an API key.
func SheetsOpener(cfg config.SheetsConfig) services.SheetsOpener {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return func(ctx context.Context, spreadsheetID string) (dataprocessing.Source, error) {
		return dataprocessing.NewSheetsSource(ctx, spreadsheetID, opts...)
	}
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These don't wrap the ResponseWriter and are safe for the websocket
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	// The live dashboard stays outside the timeout and compression group
	wsHandler := ws.NewHandler(a.WebSocketHub, a.ReportService,
		ws.OptionsFromConfig(a.Config.WebSocket, a.Config.Security.AllowedOrigins),
		a.errorHandler, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Get(config.WebSocketEndpoint+"/sessions/{sessionID}", wsHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}
		r.Use(customMiddleware.BusinessMetricsMiddleware(a.Metrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.errorHandler))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(customMiddleware.Compress(5))

		a.setupAPIRoutes(r)
		if a.FrontendFS != nil {
			a.setupFrontend(r)
		}
	})

	r.Handle(config.MetricsEndpoint, handlers.NewMetricsHandler(a.prometheusHandler(), a.errorHandler))

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)
		})

		// Uploads and PDF export may take a while
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

			sessionHandler := handlers.NewSessionHandler(a.ReportService, a.Logger, a.errorHandler, a.Config.Upload.MaxBytes)
			r.Mount("/uploads", sessionHandler.UploadRoutes())
			r.Mount("/sessions", sessionHandler.SessionRoutes())
		})
	})
}

// setupFrontend serves the frontend with index.html as the fallback for
// client-side routes.
func (a *Application) setupFrontend(r chi.Router) {
	fileServer := http.FileServer(http.FS(a.FrontendFS))
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		name := strings.TrimPrefix(path.Clean(req.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}
		if _, err := fs.Stat(a.FrontendFS, name); err != nil {
			index, err := fs.ReadFile(a.FrontendFS, "index.html")
			if err != nil {
				a.errorHandler.NotFound(w, req)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Write(index)
			return
		}
		fileServer.ServeHTTP(w, req)
	})
}

func (a *Application) prometheusHandler() http.Handler {
	if a.OTelProviders == nil || !strings.EqualFold(a.Config.Telemetry.MetricExporter, "prometheus") {
		return nil
	}
	return a.OTelProviders.PrometheusHTTP
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"If-None-Match",
			customMiddleware.RequestIDHeader,
		},
		AllowCredentials: false,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the session janitor and the HTTP server. Server failures
// call cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level),
		slog.Bool("pdf_enabled", a.pdfEnabled),
		slog.Bool("sheets_enabled", a.Config.Sheets.Enabled))

	janitorCtx, stopJanitor := context.WithCancel(context.WithoutCancel(ctx))
	a.stopJanitor = stopJanitor
	go a.Sessions.Run(janitorCtx, config.SessionSweepInterval)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	url := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	a.Logger.InfoContext(ctx, "Application started successfully", slog.String("address", url))

	if a.Config.Server.OpenBrowser {
		go func() {
			if err := openBrowser(url); err != nil {
				a.Logger.WarnContext(ctx, "Failed to open browser",
					slog.String("url", url),
					slog.String("error", err.Error()))
			}
		}()
	}

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown
	a.WebSocketHub.Stop(shutdownCtx)

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.stopJanitor != nil {
		a.stopJanitor()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck runs the readiness checks once and reports
// every component that is not healthy.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	status := a.HealthService.ReadinessCheck(ctx)

	var warnings []string
	for name, component := range status.Services {
		switch component.Status {
		case "ready", "disabled":
		default:
			warnings = append(warnings, fmt.Sprintf("%s: %s", name, component.Message))
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}

// openBrowser opens url in the default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
