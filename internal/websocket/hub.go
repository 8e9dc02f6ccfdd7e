package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gradereport/internal/infrastructure"
	"gradereport/pkg/contracts/events"
)

// ErrHubClosed is returned by Register after Stop.
var ErrHubClosed = errors.New("websocket hub is closed")

// Hub tracks the live dashboard clients. Every client belongs to one
// session; expiring the session disconnects its clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool

	totalConnections int64

	metrics *Metrics
	logger  *slog.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		metrics: metrics,
		logger:  logger.With(slog.String("component", "websocket.hub")),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	h.totalConnections++
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.RecordConnection(ctx)
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", c.id),
		slog.String("session_id", c.sessionID),
		slog.String("remote_addr", c.remoteAddr),
		slog.Int("total_clients", count))
	return nil
}

// Unregister removes a client and closes its send channel. Unregistering a
// client twice is a no-op.
func (h *Hub) Unregister(ctx context.Context, c *Client, reason string) {
	h.mu.Lock()
	removed := h.removeLocked(ctx, c, reason)
	count := len(h.clients)
	h.mu.Unlock()

	if removed {
		h.logger.InfoContext(ctx, "client unregistered",
			slog.String("client_id", c.id),
			slog.String("reason", reason),
			slog.Int("total_clients", count),
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
	}
}

// Send queues a message for one client. It reports false when the client
// is gone or its buffer is full; the message is dropped in both cases.
func (h *Hub) Send(ctx context.Context, c *Client, msg events.WebSocketMessage) bool {
	if msg.TraceID == "" {
		msg.TraceID = infrastructure.GetTraceID(ctx)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "error marshaling message",
			slog.String("message_type", string(msg.Type)),
			slog.String("error", err.Error()))
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		h.metrics.RecordMessage(ctx, "outbound", string(msg.Type), len(data))
		return true
	default:
		h.metrics.RecordDropped(ctx, string(msg.Type))
		h.logger.WarnContext(ctx, "client send buffer full, message dropped",
			slog.String("client_id", c.id),
			slog.String("message_type", string(msg.Type)))
		return false
	}
}

// ExpireSession tells every client of a session that it is gone and
// disconnects them. It returns the number of clients disconnected.
func (h *Hub) ExpireSession(ctx context.Context, sessionID string) int {
	msg := events.NewMessage(events.MessageTypeSessionExpired, "", map[string]string{"session_id": sessionID})
	data, err := json.Marshal(msg)
	if err != nil {
		return 0
	}

	h.mu.Lock()
	n := 0
	for c := range h.clients {
		if c.sessionID != sessionID {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
		h.removeLocked(ctx, c, "session_expired")
		n++
	}
	h.mu.Unlock()

	if n > 0 {
		h.logger.InfoContext(ctx, "session clients disconnected",
			slog.String("session_id", sessionID),
			slog.Int("clients", n))
	}
	return n
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop disconnects every client and rejects new ones.
func (h *Hub) Stop(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		h.removeLocked(ctx, c, "shutdown")
	}
	h.logger.InfoContext(ctx, "hub stopped", slog.Int64("total_connections", h.totalConnections))
}

func (h *Hub) removeLocked(ctx context.Context, c *Client, reason string) bool {
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.RecordDisconnection(ctx, time.Since(c.connectedAt), reason)
	return true
}
