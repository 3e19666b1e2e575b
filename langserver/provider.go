package langserver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/typeglyph/collect"
	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/logger"
)

// ProviderOptions bound the load a pass puts on the server
type ProviderOptions struct {
	RequestsPerSecond float64       // hover and highlight lookups; 0 means unlimited
	Timeout           time.Duration // per request; 0 means none
}

// Provider implements collect.Provider on top of a Client.
type Provider struct {
	client  Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	versions map[string]int // uri -> version last sent to the server
}

var _ collect.Provider = (*Provider)(nil)

// NewProvider wraps client
func NewProvider(client Client, opts ProviderOptions, log *zap.SugaredLogger) *Provider {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(1, int(opts.RequestsPerSecond)))
	}
	if log == nil {
		log = logger.ComponentLogger("langserver")
	}
	return &Provider{
		client:   client,
		limiter:  limiter,
		timeout:  opts.Timeout,
		logger:   log,
		versions: make(map[string]int),
	}
}

// Sync sends doc to the server unless that version was already sent.
func (p *Provider) Sync(ctx context.Context, doc *document.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sent, open := p.versions[doc.URI]
	switch {
	case !open:
		if err := p.client.DidOpen(ctx, doc.URI, doc.LanguageID, doc.Version, doc.Text); err != nil {
			return errors.Wrapf(err, "open %s", doc.URI)
		}
	case sent != doc.Version:
		if err := p.client.DidChange(ctx, doc.URI, doc.Version, doc.Text); err != nil {
			return errors.Wrapf(err, "sync %s to version %d", doc.URI, doc.Version)
		}
	default:
		return nil
	}

	p.versions[doc.URI] = doc.Version
	p.logger.Debugw("document synced", logger.FieldURI, doc.URI, logger.FieldVersion, doc.Version)
	return nil
}

// DocumentSymbols syncs doc and returns its symbol tree
func (p *Provider) DocumentSymbols(ctx context.Context, doc *document.Document) ([]collect.Symbol, error) {
	if err := p.Sync(ctx, doc); err != nil {
		return nil, err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	symbols, err := p.client.DocumentSymbols(ctx, doc.URI)
	if err != nil {
		return nil, err
	}
	return ToCollect(symbols), nil
}

// Hover returns the hover blobs at pos
func (p *Provider) Hover(ctx context.Context, doc *document.Document, pos document.Position) ([]string, error) {
	ctx, cancel, err := p.request(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer cancel()

	h, err := p.client.Hover(ctx, doc.URI, pos)
	if err != nil {
		return nil, err
	}
	return h.Texts(), nil
}

// Highlights returns the ranges highlighted together with pos
func (p *Provider) Highlights(ctx context.Context, doc *document.Document, pos document.Position) ([]document.Range, error) {
	ctx, cancel, err := p.request(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer cancel()

	highlights, err := p.client.DocumentHighlights(ctx, doc.URI, pos)
	if err != nil {
		return nil, err
	}
	ranges := make([]document.Range, len(highlights))
	for i, h := range highlights {
		ranges[i] = h.Range
	}
	return ranges, nil
}

// request syncs doc, waits for a rate-limit token and applies the timeout
func (p *Provider) request(ctx context.Context, doc *document.Document) (context.Context, context.CancelFunc, error) {
	if err := p.Sync(ctx, doc); err != nil {
		return nil, nil, err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "rate limit")
	}
	ctx, cancel := p.withTimeout(ctx)
	return ctx, cancel, nil
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}
