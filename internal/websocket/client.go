package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apierrors "gradereport/internal/errors"
	"gradereport/internal/services"
	"gradereport/internal/validation"
	api "gradereport/pkg/contracts/api/v1"
	"gradereport/pkg/contracts/events"
)

// Time allowed to write a message to the peer
const writeWait = 10 * time.Second

// Client is a middleman between one websocket connection and the hub. The
// read loop answers dashboard requests; the write loop owns the connection
// for writing.
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages, closed by the hub
	send chan []byte

	id          string
	sessionID   string
	remoteAddr  string
	connectedAt time.Time

	opts      Options
	service   DashboardService
	validator *validation.RequestValidator
	problem   func(error) *apierrors.ProblemDetails
	logger    *slog.Logger

	messagesReceived int64
	messagesSent     int64
}

func newClient(h *Handler, conn Connection, sessionID string, problem func(error) *apierrors.ProblemDetails) *Client {
	id := uuid.NewString()
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &Client{
		hub:         h.hub,
		conn:        conn,
		send:        make(chan []byte, h.opts.SendBuffer),
		id:          id,
		sessionID:   sessionID,
		remoteAddr:  remote,
		connectedAt: time.Now(),
		opts:        h.opts,
		service:     h.service,
		validator:   h.validator,
		problem:     problem,
		logger: h.logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
			slog.String("session_id", sessionID)),
	}
}

// readPump reads client messages until the connection fails or closes.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(ctx, c, "closed")
		c.conn.Close()
		c.logger.InfoContext(ctx, "client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived))
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(ctx, "unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}
		c.messagesReceived++
		c.handle(ctx, data)
	}
}

func (c *Client) handle(ctx context.Context, data []byte) {
	var msg events.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ctx, "", fmt.Errorf("%w: malformed message: %w", services.ErrInvalidRequest, err))
		return
	}

	switch msg.Type {
	case events.MessageTypeHeartbeat:
		c.hub.metrics.RecordMessage(ctx, "inbound", string(msg.Type), len(data))
	case events.MessageTypeDashboardRequest:
		c.hub.metrics.RecordMessage(ctx, "inbound", string(msg.Type), len(data))
		var req api.ReportRequest
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				c.sendError(ctx, msg.ID, fmt.Errorf("%w: malformed selection: %w", services.ErrInvalidRequest, err))
				return
			}
		}
		c.dashboard(ctx, msg.ID, req)
	case "":
		c.hub.metrics.RecordMessage(ctx, "inbound", "selection", len(data))
		var req api.ReportRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendError(ctx, msg.ID, fmt.Errorf("%w: malformed selection: %w", services.ErrInvalidRequest, err))
			return
		}
		c.dashboard(ctx, msg.ID, req)
	default:
		c.sendError(ctx, msg.ID, fmt.Errorf("%w: unknown message type %q", services.ErrInvalidRequest, msg.Type))
	}
}

func (c *Client) dashboard(ctx context.Context, requestID string, req api.ReportRequest) {
	if err := c.validator.Struct(req); err != nil {
		c.sendError(ctx, requestID, err)
		return
	}

	start := time.Now()
	resp, err := c.service.Dashboard(ctx, c.sessionID, req)
	c.hub.metrics.RecordDashboard(ctx, time.Since(start), err)
	if errors.Is(err, services.ErrSessionNotFound) {
		// the write loop flushes the notice and closes the connection
		c.hub.ExpireSession(ctx, c.sessionID)
		return
	}
	if err != nil {
		c.sendError(ctx, requestID, err)
		return
	}

	c.hub.Send(ctx, c, events.NewMessage(events.MessageTypeDashboardUpdate, requestID, resp))
}

func (c *Client) sendError(ctx context.Context, requestID string, err error) {
	p := c.problem(err)
	c.logger.WarnContext(ctx, "dashboard request failed",
		slog.String("request_id", requestID),
		slog.Int("status", p.Status),
		slog.String("error", err.Error()))

	c.hub.Send(ctx, c, events.NewMessage(events.MessageTypeError, requestID, events.ErrorData{
		Code:    p.Type,
		Message: p.Title,
		Details: p.Detail,
	}))
}

// writePump writes queued messages and pings until the hub closes the send
// channel or a write fails.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(ctx, "write pump stopped", slog.Int64("messages_sent", c.messagesSent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(ctx, "error writing message", slog.String("error", err.Error()))
				return
			}
			c.messagesSent++

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "failed to send ping", slog.String("error", err.Error()))
				return
			}
		}
	}
}
