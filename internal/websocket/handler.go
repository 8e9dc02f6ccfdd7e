package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"gradereport/internal/config"
	apierrors "gradereport/internal/errors"
	"gradereport/internal/services"
	"gradereport/internal/validation"
	"gradereport/pkg/contracts/events"
)

// Options configure the live dashboard connections.
type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	PingPeriod      time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
	SendBuffer      int

	// Origins allowed besides the server's own host. "*" allows any.
	AllowedOrigins []string
}

// OptionsFromConfig builds Options from the websocket and CORS settings.
func OptionsFromConfig(cfg config.WebSocketConfig, allowedOrigins []string) Options {
	return Options{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		PingPeriod:      cfg.PingPeriod,
		PongWait:        cfg.PongWait,
		MaxMessageBytes: cfg.MaxMessageBytes,
		AllowedOrigins:  allowedOrigins,
	}
}

func (o Options) withDefaults() Options {
	if o.PongWait <= 0 {
		o.PongWait = config.WebSocketPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 4096
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 16
	}
	return o
}

// Handler upgrades GET /ws/sessions/{sessionID} to a live dashboard
// connection.
type Handler struct {
	hub          *Hub
	service      DashboardService
	opts         Options
	upgrader     websocket.Upgrader
	validator    *validation.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewHandler creates a live dashboard handler.
func NewHandler(hub *Hub, service DashboardService, opts Options, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	h := &Handler{
		hub:          hub,
		service:      service,
		opts:         opts,
		validator:    validation.NewRequestValidator(),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP answers with a problem document when the session does not
// exist; otherwise it upgrades and serves the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "sessionID")
	if err := h.validator.Var(id, "required,uuid4"); err != nil {
		h.errorHandler.HandleError(w, r, services.ErrSessionNotFound)
		return
	}

	sess, err := h.service.Session(ctx, id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
		return
	}

	client := newClient(h, conn, sess.ID, func(err error) *apierrors.ProblemDetails {
		return h.errorHandler.ErrorToProblem(err, r)
	})
	if err := h.hub.Register(ctx, client); err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go client.writePump(ctx)
	h.hub.Send(ctx, client, events.NewMessage(events.MessageTypeConnect, client.id, events.ConnectData{
		SessionID: sess.ID,
		Students:  sess.Dataset.StudentOptions(),
		Subjects:  sess.Dataset.SubjectOptions(),
	}))
	client.readPump(ctx)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, "*") || slices.Contains(h.opts.AllowedOrigins, origin)
}
