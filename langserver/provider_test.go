package langserver

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp/protocol_3_16"
	"go.uber.org/zap"

	"github.com/teranos/typeglyph/document"
)

type recordingClient struct {
	mu        sync.Mutex
	opened    []int
	changed   []int
	deadlines []bool
	hover     *Hover
	symbols   []DocumentSymbol
	highlight []DocumentHighlight
}

func (c *recordingClient) Initialize(context.Context, string) error { return nil }
func (c *recordingClient) Shutdown(context.Context) error           { return nil }

func (c *recordingClient) DidOpen(_ context.Context, _, _ string, version int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened = append(c.opened, version)
	return nil
}

func (c *recordingClient) DidChange(_ context.Context, _ string, version int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changed = append(c.changed, version)
	return nil
}

func (c *recordingClient) recordDeadline(ctx context.Context) {
	_, ok := ctx.Deadline()
	c.mu.Lock()
	c.deadlines = append(c.deadlines, ok)
	c.mu.Unlock()
}

func (c *recordingClient) Hover(ctx context.Context, _ string, _ document.Position) (*Hover, error) {
	c.recordDeadline(ctx)
	return c.hover, nil
}

func (c *recordingClient) DocumentSymbols(ctx context.Context, _ string) ([]DocumentSymbol, error) {
	c.recordDeadline(ctx)
	return c.symbols, nil
}

func (c *recordingClient) DocumentHighlights(ctx context.Context, _ string, _ document.Position) ([]DocumentHighlight, error) {
	c.recordDeadline(ctx)
	return c.highlight, nil
}

func TestProviderSyncsOncePerVersion(t *testing.T) {
	client := &recordingClient{}
	p := NewProvider(client, ProviderOptions{}, zap.NewNop().Sugar())
	ctx := context.Background()

	v1 := document.New("file:///a.go", "go", 1, "package a")
	require.NoError(t, p.Sync(ctx, v1))
	require.NoError(t, p.Sync(ctx, v1))

	v2 := document.New("file:///a.go", "go", 2, "package a\n")
	_, err := p.Hover(ctx, v2, document.Position{})
	require.NoError(t, err)
	_, err = p.Highlights(ctx, v2, document.Position{})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, client.opened)
	assert.Equal(t, []int{2}, client.changed)
}

func TestProviderConvertsResults(t *testing.T) {
	r := document.Range{Start: document.Position{Line: 1, Character: 4}, End: document.Position{Line: 1, Character: 9}}
	client := &recordingClient{
		hover: &Hover{Contents: json.RawMessage(`{"kind":"markdown","value":"let total: number"}`)},
		symbols: []DocumentSymbol{{
			Name: "total", Kind: protocol.SymbolKindVariable, Range: r, SelectionRange: r,
		}},
		highlight: []DocumentHighlight{{Range: r, Kind: protocol.DocumentHighlightKindWrite}},
	}
	p := NewProvider(client, ProviderOptions{Timeout: time.Second}, nil)
	doc := document.New("file:///a.ts", "typescript", 1, "\n    total = 1")
	ctx := context.Background()

	texts, err := p.Hover(ctx, doc, r.Start)
	require.NoError(t, err)
	assert.Equal(t, []string{"let total: number"}, texts)

	symbols, err := p.DocumentSymbols(ctx, doc)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "total", symbols[0].Name)

	ranges, err := p.Highlights(ctx, doc, r.Start)
	require.NoError(t, err)
	assert.Equal(t, []document.Range{r}, ranges)

	assert.Equal(t, []bool{true, true, true}, client.deadlines)
}

func TestProviderNoTimeout(t *testing.T) {
	client := &recordingClient{}
	p := NewProvider(client, ProviderOptions{}, nil)

	texts, err := p.Hover(context.Background(), document.New("file:///a.go", "go", 1, ""), document.Position{})
	require.NoError(t, err)
	assert.Nil(t, texts)
	assert.Equal(t, []bool{false}, client.deadlines)
}

func TestProviderRateLimit(t *testing.T) {
	client := &recordingClient{}
	p := NewProvider(client, ProviderOptions{RequestsPerSecond: 1}, nil)
	doc := document.New("file:///a.go", "go", 1, "")

	_, err := p.Hover(context.Background(), doc, document.Position{})
	require.NoError(t, err)

	// the single burst token is spent; the next wait outlasts this deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Hover(ctx, doc, document.Position{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
