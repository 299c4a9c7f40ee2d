// Package events contains the WebSocket message contracts streamed to
// clients while feature runs execute.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"

	// Run lifecycle messages
	MessageTypeRunProgress  MessageType = "run:progress"
	MessageTypeRunCompleted MessageType = "run:completed"
	MessageTypeRunFailed    MessageType = "run:failed"

	// MessageTypeHeartbeat is sent by clients to keep the connection open.
	MessageTypeHeartbeat MessageType = "heartbeat"
)

// Message is the envelope of every server message.
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// ConnectData greets a newly registered client.
type ConnectData struct {
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
	Version  string `json:"version"`
}

// RunProgress reports one finished event of a run.
type RunProgress struct {
	RunID  string `json:"run_id"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Ticker string `json:"ticker"`
	Status string `json:"status"` // processed|skipped
	Rows   int    `json:"rows"`
	Reason string `json:"reason,omitempty"`
}

// RunCompleted summarizes a finished run.
type RunCompleted struct {
	RunID      string         `json:"run_id"`
	Events     int            `json:"events"`
	Processed  int            `json:"processed"`
	Skipped    int            `json:"skipped"`
	Rows       int            `json:"rows"`
	ByReason   map[string]int `json:"by_reason,omitempty"`
	Outage     bool           `json:"outage"`
	DurationMS int64          `json:"duration_ms"`
	Artifacts  int            `json:"artifacts"`
}

// RunFailed reports a run that ended with an error.
type RunFailed struct {
	RunID string `json:"run_id,omitempty"`
	Error string `json:"error"`
}

// ErrorData describes a protocol error sent to one client.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
