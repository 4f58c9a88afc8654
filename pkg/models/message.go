package models

import "time"

// Message types on the broadcast wire
const (
	TypeConnection   = "connection"
	TypeFixture      = "fixture"
	TypeBroadcast    = "broadcast"
	TypeClear        = "clear"
	TypeNotification = "notification"
)

// Envelope is the minimal shape every broadcast message carries.
type Envelope struct {
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BroadcastFrame wraps an inbound WebSocket frame echoed back to all
// WebSocket clients.
type BroadcastFrame struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// PushMessage is an out-of-band notification broadcast via the push endpoint.
type PushMessage struct {
	Type      string    `json:"type"`
	Message   any       `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse is the diagnostics read returned by the status endpoint.
type StatusResponse struct {
	Status               string    `json:"status"`
	Timestamp            time.Time `json:"timestamp"`
	UptimeSeconds        float64   `json:"uptime"`
	WebSocketConnections int       `json:"websocketConnections"`
	SSEConnections       int       `json:"sseConnections"`
}

// ErrorResponse is the JSON body of a 4xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
