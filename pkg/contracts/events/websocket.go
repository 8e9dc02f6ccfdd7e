// Package events contains the WebSocket message contracts of the live dashboard.
package events

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client to server: recompute the dashboard for a selection
	MessageTypeDashboardRequest MessageType = "dashboard:request"
	MessageTypeHeartbeat        MessageType = "heartbeat"

	// Server to client
	MessageTypeDashboardUpdate MessageType = "dashboard:update"
	MessageTypeSessionExpired  MessageType = "session:expired"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// ClientMessage is a message sent by the browser. Data carries the
// selection of a dashboard request; a message without a type is read as a
// bare selection.
type ClientMessage struct {
	ID   string          `json:"id,omitempty"`
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ConnectData is sent once after the upgrade.
type ConnectData struct {
	SessionID string   `json:"session_id"`
	Students  []string `json:"students"`
	Subjects  []string `json:"subjects"`
}

// ErrorData describes a request the server could not answer.
type ErrorData struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Fatal   bool        `json:"fatal"`
}

// NewMessage stamps a message with the current time.
func NewMessage(msgType MessageType, id string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			ID:        id,
			Type:      msgType,
			Timestamp: time.Now().UTC(),
		},
		Data: data,
	}
}
