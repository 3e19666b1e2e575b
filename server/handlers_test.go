package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/iconcache"
	"github.com/teranos/typeglyph/identicon"
)

func serve(t *testing.T, hub *Hub, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	hub.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleIcon(t *testing.T) {
	hub, _ := newTestHub(t, HubConfig{})

	rec := serve(t, hub, http.MethodGet, "/icon?type=Integer&type=Number&size=20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, identicon.RenderComposite([]string{"Integer", "Number"}, 20).SVG(), rec.Body.String())

	// comma lists are equivalent to repeated parameters
	rec = serve(t, hub, http.MethodGet, "/icon?type=Integer,Number&size=20")
	assert.Equal(t, identicon.RenderComposite([]string{"Integer", "Number"}, 20).SVG(), rec.Body.String())

	rec = serve(t, hub, http.MethodGet, "/icon?type=User")
	assert.Equal(t, identicon.Render("User", DefaultIconSize).SVG(), rec.Body.String())
}

func TestHandleIconURI(t *testing.T) {
	icons := iconcache.New()
	hub, _ := newTestHub(t, HubConfig{Icons: icons})

	rec := serve(t, hub, http.MethodGet, "/icon?type=User&type=Object&format=uri")
	require.Equal(t, http.StatusOK, rec.Code)

	var icon iconcache.Icon
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &icon))
	assert.Equal(t, icons.Composite([]string{"User", "Object"}, DefaultIconSize), icon)
	assert.Equal(t, 28, icon.Width)
	assert.Equal(t, 1, icons.Len())
}

func TestHandleIconErrors(t *testing.T) {
	hub, _ := newTestHub(t, HubConfig{})

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"no type", http.MethodGet, "/icon", http.StatusBadRequest},
		{"blank type", http.MethodGet, "/icon?type=,,", http.StatusBadRequest},
		{"size not a number", http.MethodGet, "/icon?type=A&size=big", http.StatusBadRequest},
		{"size too small", http.MethodGet, "/icon?type=A&size=4", http.StatusBadRequest},
		{"size too large", http.MethodGet, "/icon?type=A&size=1000", http.StatusBadRequest},
		{"bad format", http.MethodGet, "/icon?type=A&format=png", http.StatusBadRequest},
		{"post", http.MethodPost, "/icon?type=A", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, hub, tt.method, tt.target)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleTables(t *testing.T) {
	hub, _ := newTestHub(t, HubConfig{})
	ctx := context.Background()

	for _, uri := range []string{"file:///b.go", "file:///a.go"} {
		require.NoError(t, hub.Render(ctx, document.New(uri, "go", 1, ""), sampleTable(uri)))
	}

	rec := serve(t, hub, http.MethodGet, "/tables")
	require.Equal(t, http.StatusOK, rec.Code)
	var tables []annotate.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tables))
	require.Len(t, tables, 2)
	assert.Equal(t, "file:///a.go", tables[0].URI)
	assert.Equal(t, "file:///b.go", tables[1].URI)

	rec = serve(t, hub, http.MethodGet, "/tables?uri=file:///a.go")
	require.Equal(t, http.StatusOK, rec.Code)
	var one annotate.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, 1, one.Len())

	rec = serve(t, hub, http.MethodGet, "/tables?uri=file:///missing.go")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	icons := iconcache.New()
	icons.Icon("User", 14)
	hub := NewHub(HubConfig{Icons: icons, Logger: zap.NewNop().Sugar()})

	rec := serve(t, hub, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Icons)
	assert.Zero(t, health.Clients)

	require.NoError(t, hub.Stop(context.Background()))
	rec = serve(t, hub, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(t, hub, http.MethodGet, "/ws")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
