package server

import (
	"time"

	"github.com/teranos/typeglyph/annotate"
)

const (
	// MaxClients is the maximum number of concurrent WebSocket clients
	MaxClients = 64
	// MaxClientMessageQueueSize is the size of per-client message queues
	MaxClientMessageQueueSize = 64
	// ShutdownTimeout is how long Stop waits for goroutines to exit
	ShutdownTimeout = 10 * time.Second

	// DefaultIconSize is used when /icon has no size parameter
	DefaultIconSize = 14
	// MaxIconSize bounds the size parameter of /icon
	MaxIconSize = 256
)

// Message types sent to WebSocket clients
const (
	MsgTypeHello       = "hello"
	MsgTypeRenderTable = "render_table"
	MsgTypeSettings    = "settings"
	MsgTypeError       = "error"
)

// Message types accepted from WebSocket clients
const (
	MsgTypeToggle     = "toggle"
	MsgTypeClearCache = "clear_cache"
	MsgTypeResend     = "resend"
)

// HelloMessage is the first message a client receives
type HelloMessage struct {
	Type    string `json:"type"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Enabled bool   `json:"enabled"`
}

// RenderTableMessage carries one pass's table. An empty Groups map means every
// glyph previously drawn for URI is cleared.
type RenderTableMessage struct {
	Type      string          `json:"type"`
	Table     *annotate.Table `json:"table"`
	Timestamp int64           `json:"timestamp"`
}

// SettingsMessage reports the pipeline switches after a toggle
type SettingsMessage struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// ErrorMessage reports a rejected client request
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClientMessage is any message read from a client
type ClientMessage struct {
	Type string `json:"type"`
	URI  string `json:"uri,omitempty"`
}

// HealthResponse is served on /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Clients int    `json:"clients"`
	Tables  int    `json:"tables"`
	Icons   int    `json:"icons"`
}
