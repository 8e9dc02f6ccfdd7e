package websocket

import (
	"context"
	"net"
	"time"

	"gradereport/internal/services"
	api "gradereport/pkg/contracts/api/v1"
)

// Connection is the part of *websocket.Conn the clients use. Tests replace
// it with an in-memory connection.
type Connection interface {
	// WriteMessage writes a message with the given message type and payload
	WriteMessage(messageType int, data []byte) error

	// ReadMessage reads a message from the connection
	ReadMessage() (messageType int, p []byte, err error)

	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error

	// SetReadLimit sets the maximum size for a message read from the connection
	SetReadLimit(limit int64)

	SetPongHandler(h func(appData string) error)
	RemoteAddr() net.Addr
}

// DashboardService recomputes dashboards for a session.
type DashboardService interface {
	Session(ctx context.Context, id string) (services.Session, error)
	Dashboard(ctx context.Context, id string, req api.ReportRequest) (*api.DashboardResponse, error)
}

var _ DashboardService = (*services.ReportService)(nil)
