package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/inherit"
)

type fakeControls struct {
	mu       sync.Mutex
	enabled  bool
	cleared  int
	settings annotate.Settings
}

func (f *fakeControls) Toggle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = !f.enabled
	return f.enabled
}

func (f *fakeControls) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeControls) Settings() annotate.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.settings
	s.Enabled = f.enabled
	return s
}

func (f *fakeControls) clearCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func newTestHub(t *testing.T, cfg HubConfig) (*Hub, *httptest.Server) {
	t.Helper()
	cfg.Logger = zap.NewNop().Sugar()
	hub := NewHub(cfg)
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(func() { _ = hub.Stop(context.Background()) })
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func sampleTable(uri string) *annotate.Table {
	table := annotate.NewTable()
	table.URI = uri
	table.Version = 3
	table.PassID = "pass-1"
	table.Groups["Integer>Number>Object"] = &annotate.Group{
		Key:     "Integer>Number>Object",
		Chain:   inherit.Chain{"Integer", "Number", "Object"},
		IconURI: "data:image/svg+xml;utf8,%3Csvg%3E",
		Width:   42,
		Tooltip: "Type: Integer\nInherits: Number → Object",
		Locations: []document.Range{
			{Start: document.Position{Line: 1, Character: 4}, End: document.Position{Line: 1, Character: 9}},
		},
	}
	return table
}

func connect(t *testing.T, hub *Hub, srv *httptest.Server, want int) *websocket.Conn {
	t.Helper()
	conn := dial(t, srv, nil)
	hello := readMessage(t, conn)
	assert.Equal(t, MsgTypeHello, hello["type"])
	require.Eventually(t, func() bool { return hub.ClientCount() == want }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func TestHubBroadcastsTables(t *testing.T) {
	hub, srv := newTestHub(t, HubConfig{})
	first := connect(t, hub, srv, 1)
	second := connect(t, hub, srv, 2)

	doc := document.New("file:///src/calc.ts", "typescript", 3, "")
	require.NoError(t, hub.Render(context.Background(), doc, sampleTable(doc.URI)))

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, MsgTypeRenderTable, msg["type"])
		table := msg["table"].(map[string]interface{})
		assert.Equal(t, doc.URI, table["uri"])
		assert.Equal(t, float64(3), table["version"])
		assert.Contains(t, table["groups"], "Integer>Number>Object")
	}

	cached, ok := hub.Table(doc.URI)
	require.True(t, ok)
	assert.Equal(t, "pass-1", cached.PassID)
}

func TestHubReplaysCachedTables(t *testing.T) {
	hub, srv := newTestHub(t, HubConfig{})

	doc := document.New("file:///src/a.go", "go", 1, "")
	require.NoError(t, hub.Render(context.Background(), doc, sampleTable(doc.URI)))

	conn := dial(t, srv, nil)
	assert.Equal(t, MsgTypeHello, readMessage(t, conn)["type"])

	msg := readMessage(t, conn)
	assert.Equal(t, MsgTypeRenderTable, msg["type"])
	assert.Equal(t, doc.URI, msg["table"].(map[string]interface{})["uri"])
}

func TestHubEmptyTableClears(t *testing.T) {
	hub, srv := newTestHub(t, HubConfig{})
	conn := connect(t, hub, srv, 1)

	doc := document.New("file:///src/a.go", "go", 2, "")
	empty := annotate.NewTable()
	empty.URI = doc.URI
	require.NoError(t, hub.Render(context.Background(), doc, empty))

	msg := readMessage(t, conn)
	assert.Empty(t, msg["table"].(map[string]interface{})["groups"])
}

func TestHubToggle(t *testing.T) {
	controls := &fakeControls{enabled: true}
	hub, srv := newTestHub(t, HubConfig{Controls: controls})
	conn := connect(t, hub, srv, 1)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgTypeToggle}))
	msg := readMessage(t, conn)
	assert.Equal(t, MsgTypeSettings, msg["type"])
	assert.Equal(t, false, msg["enabled"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgTypeClearCache}))
	require.Eventually(t, func() bool { return controls.clearCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	// the hello of a new client reflects the toggled state
	other := dial(t, srv, nil)
	hello := readMessage(t, other)
	assert.Equal(t, false, hello["enabled"])
}

func TestHubRejectsControlsWithoutPipeline(t *testing.T) {
	hub, srv := newTestHub(t, HubConfig{})
	conn := connect(t, hub, srv, 1)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgTypeToggle}))
	msg := readMessage(t, conn)
	assert.Equal(t, MsgTypeError, msg["type"])
	assert.Equal(t, "no pipeline attached", msg["message"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "dance"}))
	msg = readMessage(t, conn)
	assert.Equal(t, "unknown message type: dance", msg["message"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readMessage(t, conn)
	assert.Equal(t, "malformed message", msg["message"])
}

func TestHubResend(t *testing.T) {
	hub, srv := newTestHub(t, HubConfig{})
	conn := connect(t, hub, srv, 1)

	doc := document.New("file:///src/a.go", "go", 1, "")
	require.NoError(t, hub.Render(context.Background(), doc, sampleTable(doc.URI)))
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgTypeResend, URI: doc.URI}))
	msg := readMessage(t, conn)
	assert.Equal(t, MsgTypeRenderTable, msg["type"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgTypeResend, URI: "file:///missing.go"}))
	msg = readMessage(t, conn)
	assert.Equal(t, MsgTypeError, msg["type"])

	hub.Forget(doc.URI)
	_, ok := hub.Table(doc.URI)
	assert.False(t, ok)
}

func TestHubDisconnect(t *testing.T) {
	hub, srv := newTestHub(t, HubConfig{})
	conn := connect(t, hub, srv, 1)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubCheckOrigin(t *testing.T) {
	_, srv := newTestHub(t, HubConfig{AllowedOrigins: []string{"https://editor.example.com"}})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	for _, origin := range []string{"https://editor.example.com", "http://localhost:5173"} {
		conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{origin}})
		require.NoError(t, err, origin)
		_ = conn.Close()
	}
}

func TestCheckOriginMatchesHostExactly(t *testing.T) {
	hub := NewHub(HubConfig{
		Logger:         zap.NewNop().Sugar(),
		AllowedOrigins: []string{"https://editor.example.com", "http://tools.example.com:8080"},
	})
	t.Cleanup(func() { _ = hub.Stop(context.Background()) })

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost", true},
		{"http://localhost:5173", true},
		{"https://127.0.0.1:8443", true},
		{"http://[::1]:3000", true},
		{"vscode-webview://abc123", true},
		{"https://editor.example.com", true},
		{"http://tools.example.com:8080", true},
		{"http://localhost.evil.example", false},
		{"http://127.0.0.1.evil.example", false},
		{"https://editor.example.com.evil.example", false},
		{"http://editor.example.com", false},
		{"http://tools.example.com:9090", false},
		{"ftp://localhost", false},
		{"null", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, hub.checkOrigin(r))
		})
	}
}

func TestHubRenderAfterStop(t *testing.T) {
	hub := NewHub(HubConfig{Logger: zap.NewNop().Sugar()})
	doc := document.New("file:///a.go", "go", 1, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, hub.Render(ctx, doc, annotate.NewTable()), context.Canceled)

	require.NoError(t, hub.Stop(context.Background()))
	require.NoError(t, hub.Stop(context.Background()))

	err := hub.Render(context.Background(), doc, annotate.NewTable())
	assert.True(t, errors.IsServiceUnavailableError(err))
}

func TestHubStartAndStop(t *testing.T) {
	hub := NewHub(HubConfig{Logger: zap.NewNop().Sugar()})

	addr, err := hub.Start("127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, hub.Stop(context.Background()))
	assert.Zero(t, hub.ClientCount())
}
