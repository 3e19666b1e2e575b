// Package server publishes annotation passes to editors and agents.
//
// The Hub pushes every render table to WebSocket clients on /ws and serves
// glyph SVGs on /icon; MCPServer exposes extraction, icons and whole-file
// annotation as Model Context Protocol tools.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/iconcache"
	"github.com/teranos/typeglyph/logger"
)

// Controls are the pipeline switches a client may flip; *annotate.Pipeline satisfies it.
type Controls interface {
	Toggle() bool
	ClearCache()
	Settings() annotate.Settings
}

// HubConfig holds the collaborators of a Hub
type HubConfig struct {
	Icons          *iconcache.Cache
	Controls       Controls // optional; without it toggle and clear_cache are rejected
	AllowedOrigins []string // scheme://host[:port] origins accepted on /ws besides loopback
	Logger         *zap.SugaredLogger
}

// Hub fans render tables out to WebSocket clients. It implements
// annotate.Renderer so a pipeline can publish straight into it.
type Hub struct {
	icons          *iconcache.Cache
	controls       Controls
	allowedOrigins []string
	logger         *zap.SugaredLogger
	upgrader       websocket.Upgrader
	mux            *http.ServeMux

	clients    map[*Client]bool
	tables     map[string]*annotate.Table // last table per document URI, replayed to new clients
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	httpServer *http.Server

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	drops   atomic.Int64
	stopped atomic.Bool
}

var _ annotate.Renderer = (*Hub)(nil)

// NewHub creates a hub and starts its event loop
func NewHub(cfg HubConfig) *Hub {
	if cfg.Icons == nil {
		cfg.Icons = iconcache.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.ComponentLogger("server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		icons:          cfg.Icons,
		controls:       cfg.Controls,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         cfg.Logger,
		clients:        make(map[*Client]bool),
		tables:         make(map[string]*annotate.Table),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		ctx:            ctx,
		cancel:         cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	h.mux = h.routes()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run()
	}()
	return h
}

// Handler returns the HTTP handler serving /ws, /icon, /tables and /healthz
func (h *Hub) Handler() http.Handler {
	return h.mux
}

// Render caches table for its URI and broadcasts it to every client
func (h *Hub) Render(ctx context.Context, doc *document.Document, table *annotate.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.stopped.Load() {
		return errors.Wrap(errors.ErrServiceUnavailable, "hub is stopped")
	}

	h.mu.Lock()
	h.tables[doc.URI] = table
	h.mu.Unlock()

	sent := h.broadcast(RenderTableMessage{
		Type:      MsgTypeRenderTable,
		Table:     table,
		Timestamp: time.Now().Unix(),
	})

	logger.FromContext(ctx, h.logger).Debugw("render table published",
		logger.FieldURI, doc.URI,
		logger.FieldVersion, doc.Version,
		logger.FieldCount, len(table.Groups),
		"clients", sent,
	)
	return nil
}

// Table returns the last table published for uri
func (h *Hub) Table(uri string) (*annotate.Table, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.tables[uri]
	return t, ok
}

// Forget drops the cached table for uri, e.g. when its document closes
func (h *Hub) Forget(uri string) {
	h.mu.Lock()
	delete(h.tables, uri)
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Drops returns how many messages were dropped for slow clients
func (h *Hub) Drops() int64 {
	return h.drops.Load()
}

// run owns client registration until the hub stops
func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Debugw("hub stopping due to context cancellation")
			return
		case client := <-h.register:
			h.handleClientRegister(client)
		case client := <-h.unregister:
			h.removeClient(client, "client disconnected")
		}
	}
}

func (h *Hub) handleClientRegister(client *Client) {
	h.mu.Lock()
	if len(h.clients) >= MaxClients {
		h.mu.Unlock()
		h.logger.Warnw("max clients reached, rejecting connection",
			"client_id", client.id,
			"max_clients", MaxClients,
		)
		client.close()
		return
	}
	h.clients[client] = true
	total := len(h.clients)
	cached := make([]*annotate.Table, 0, len(h.tables))
	for _, t := range h.tables {
		cached = append(cached, t)
	}
	h.mu.Unlock()

	h.logger.Infow("client connected", "client_id", client.id, "total_clients", total)

	// replay so a reconnecting editor redraws without waiting for the next pass
	for _, t := range cached {
		h.sendTo(client, RenderTableMessage{Type: MsgTypeRenderTable, Table: t, Timestamp: time.Now().Unix()})
	}
}

// removeClient unregisters client and closes its queue exactly once
func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	total := len(h.clients)
	client.close()
	h.mu.Unlock()

	h.logger.Infow(reason, "client_id", client.id, "total_clients", total)
}

// broadcast queues msg for every client and returns how many accepted it.
// Clients whose queue is full are disconnected.
func (h *Hub) broadcast(msg interface{}) int {
	var slow []*Client
	sent := 0

	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- msg:
			sent++
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.drops.Add(1)
		h.removeClient(client, "client send queue full, removing client")
	}
	return sent
}

// sendTo queues msg for one registered client
func (h *Hub) sendTo(client *Client, msg interface{}) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- msg:
		return true
	default:
		h.drops.Add(1)
		return false
	}
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr asks for port 0.
func (h *Hub) Start(addr string) (net.Addr, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "failed to listen on %s", addr),
			"set server.address in typeglyph.toml to a free port")
	}

	h.httpServer = &http.Server{
		Handler:           h.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Errorw("HTTP server stopped", logger.FieldError, err)
		}
	}()

	h.logger.Infow("hub listening", logger.FieldAddress, listener.Addr().String())
	return listener.Addr(), nil
}

// Stop closes every client, shuts the HTTP server down and waits for the
// hub's goroutines, giving up after ShutdownTimeout.
func (h *Hub) Stop(ctx context.Context) error {
	if !h.stopped.CompareAndSwap(false, true) {
		return nil
	}
	h.logger.Infow("initiating hub shutdown")

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		_ = client.conn.Close()
	}

	var shutdownErr error
	if h.httpServer != nil {
		if err := h.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = errors.Wrap(err, "HTTP server shutdown")
		}
	}

	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Infow("hub shutdown complete", "drops", h.drops.Load())
	case <-time.After(ShutdownTimeout):
		h.logger.Warnw("hub shutdown timed out", "timeout", ShutdownTimeout)
	}
	return shutdownErr
}
