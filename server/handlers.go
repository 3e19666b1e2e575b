package server

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/version"
)

func (h *Hub) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWebSocket)
	mux.HandleFunc("/icon", h.HandleIcon)
	mux.HandleFunc("/tables", h.HandleTables)
	mux.HandleFunc("/healthz", h.HandleHealth)
	return mux
}

// HandleWebSocket upgrades the connection and registers a client
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.stopped.Load() {
		writeError(w, http.StatusServiceUnavailable, "hub is stopped")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("WebSocket upgrade failed", "error", err.Error(), "remote", r.RemoteAddr)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan interface{}, MaxClientMessageQueueSize),
		id:   fmt.Sprintf("%s_%d", r.RemoteAddr, time.Now().UnixNano()),
	}

	// hello goes out before writePump starts so the two never write concurrently
	info := version.Get()
	hello := HelloMessage{Type: MsgTypeHello, Version: info.Version, Commit: info.Short(), Enabled: true}
	if h.controls != nil {
		hello.Enabled = h.controls.Settings().Enabled
	}
	if err := conn.WriteJSON(hello); err != nil {
		h.logger.Debugw("failed to send hello", "client_id", client.id, "error", err)
	}

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close()
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
}

// HandleIcon serves GET /icon?type=A&type=B&size=14. The default response is
// the composite SVG; format=uri returns the cached data URI and width as JSON.
func (h *Hub) HandleIcon(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	names, size, err := parseIconQuery(r)
	if err != nil {
		writeErrorFor(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(h.icons.SVG(names, size)))
	case "uri":
		_ = writeJSON(w, http.StatusOK, h.icons.Composite(names, size))
	default:
		writeError(w, http.StatusBadRequest, "format must be svg or uri")
	}
}

// parseIconQuery reads repeated type parameters (comma lists allowed) and size
func parseIconQuery(r *http.Request) ([]string, int, error) {
	q := r.URL.Query()

	var names []string
	for _, v := range q["type"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return nil, 0, errors.NewInvalidRequestError("at least one type parameter is required")
	}

	size := DefaultIconSize
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 5 || n > MaxIconSize {
			return nil, 0, errors.NewInvalidRequestError("size must be an integer in [5, %d], got %q", MaxIconSize, raw)
		}
		size = n
	}
	return names, size, nil
}

// HandleTables serves the cached tables: all of them, or ?uri= for one
func (h *Hub) HandleTables(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	if uri := r.URL.Query().Get("uri"); uri != "" {
		t, ok := h.Table(uri)
		if !ok {
			writeErrorFor(w, errors.Wrapf(errors.ErrNotFound, "no table for %s", uri))
			return
		}
		_ = writeJSON(w, http.StatusOK, t)
		return
	}

	h.mu.RLock()
	tables := make([]*annotate.Table, 0, len(h.tables))
	for _, t := range h.tables {
		tables = append(tables, t)
	}
	h.mu.RUnlock()
	sort.Slice(tables, func(i, j int) bool { return tables[i].URI < tables[j].URI })

	_ = writeJSON(w, http.StatusOK, tables)
}

// HandleHealth reports liveness and a few gauges
func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	resp := HealthResponse{
		Status:  "ok",
		Version: version.Get().Version,
		Clients: len(h.clients),
		Tables:  len(h.tables),
		Icons:   h.icons.Len(),
	}
	h.mu.RUnlock()

	if h.stopped.Load() {
		resp.Status = "stopped"
		_ = writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

// checkOrigin accepts requests without an Origin header, loopback origins,
// and configured origins. Origins compare by scheme and host, never by prefix.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme == "vscode-webview" {
		return true
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
	}
	for _, allowed := range h.allowedOrigins {
		a, err := url.Parse(allowed)
		if err != nil || a.Host == "" {
			continue
		}
		if strings.EqualFold(a.Scheme, u.Scheme) && strings.EqualFold(a.Host, u.Host) {
			return true
		}
	}
	return false
}
