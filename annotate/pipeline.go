package annotate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/typeglyph/collect"
	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/iconcache"
	"github.com/teranos/typeglyph/inherit"
	"github.com/teranos/typeglyph/logger"
)

// Renderer draws a table for a document. It owns disposal of whatever it
// drew for earlier passes.
type Renderer interface {
	Render(ctx context.Context, doc *document.Document, table *Table) error
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(ctx context.Context, doc *document.Document, table *Table) error

func (f RendererFunc) Render(ctx context.Context, doc *document.Document, table *Table) error {
	return f(ctx, doc, table)
}

// Settings are the user-facing switches of a pass
type Settings struct {
	Enabled           bool
	ShowInheritance   bool
	ShowOnDeclaration bool
	ShowOnParameters  bool
	ShowOnUsage       bool
	IconSize          int
	BatchSize         int
	Concurrency       int
}

// DefaultSettings match the glyphs and collect config defaults
func DefaultSettings() Settings {
	collectDefaults := collect.DefaultOptions()
	return Settings{
		Enabled:           true,
		ShowInheritance:   true,
		ShowOnDeclaration: true,
		ShowOnParameters:  true,
		ShowOnUsage:       false,
		IconSize:          14,
		BatchSize:         collectDefaults.BatchSize,
		Concurrency:       collectDefaults.Concurrency,
	}
}

// PipelineConfig holds the collaborators of a Pipeline
type PipelineConfig struct {
	Provider collect.Provider
	Icons    *iconcache.Cache
	Chains   *inherit.Resolver
	Renderer Renderer // optional
	Settings Settings
	Logger   *zap.SugaredLogger
}

// Pipeline runs passes. The icon cache and resolver it holds are the only
// state shared between passes; Settings may change between passes.
type Pipeline struct {
	provider collect.Provider
	icons    *iconcache.Cache
	chains   *inherit.Resolver
	renderer Renderer
	logger   *zap.SugaredLogger

	mu       sync.RWMutex
	settings Settings
}

// NewPipeline creates a pipeline. Missing icon cache or resolver get fresh defaults.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Provider == nil {
		return nil, errors.NewInvalidRequestError("pipeline requires a provider")
	}
	if cfg.Icons == nil {
		cfg.Icons = iconcache.New()
	}
	if cfg.Chains == nil {
		cfg.Chains = inherit.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.ComponentLogger("annotate")
	}
	return &Pipeline{
		provider: cfg.Provider,
		icons:    cfg.Icons,
		chains:   cfg.Chains,
		renderer: cfg.Renderer,
		logger:   cfg.Logger,
		settings: cfg.Settings,
	}, nil
}

// Settings returns the current settings
func (p *Pipeline) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// SetSettings replaces the settings used by the next pass
func (p *Pipeline) SetSettings(s Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = s
}

// Toggle flips the enabled switch, clears the icon cache and reports the new state.
func (p *Pipeline) Toggle() bool {
	p.mu.Lock()
	p.settings.Enabled = !p.settings.Enabled
	enabled := p.settings.Enabled
	p.mu.Unlock()

	p.ClearCache()
	return enabled
}

// ClearCache drops every cached icon
func (p *Pipeline) ClearCache() {
	p.icons.Clear()
}

// Icons exposes the shared icon cache
func (p *Pipeline) Icons() *iconcache.Cache {
	return p.icons
}

// Run performs one pass over doc and hands the table to the renderer. A
// disabled pipeline renders an empty table so earlier drawings are cleared.
// Collaborator failures degrade to fewer groups; only a renderer error is returned.
func (p *Pipeline) Run(ctx context.Context, doc *document.Document) (*Table, error) {
	passID := uuid.NewString()
	ctx = logger.WithPassID(ctx, passID)
	log := logger.FromContext(ctx, p.logger)
	settings := p.Settings()
	start := time.Now()

	table := NewTable()
	if settings.Enabled {
		table = p.build(ctx, log, doc, settings)
	}
	table.URI = doc.URI
	table.Version = doc.Version
	table.PassID = passID

	log.Infow("annotation pass complete",
		logger.FieldURI, doc.URI,
		logger.FieldVersion, doc.Version,
		logger.FieldCount, len(table.Groups),
		logger.FieldTotalCount, table.Len(),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	if p.renderer == nil {
		return table, nil
	}
	if err := p.renderer.Render(ctx, doc, table); err != nil {
		return table, errors.Wrapf(err, "render %s", doc.URI)
	}
	return table, nil
}

func (p *Pipeline) build(ctx context.Context, log *zap.SugaredLogger, doc *document.Document, s Settings) *Table {
	symbols, err := p.provider.DocumentSymbols(ctx, doc)
	if err != nil {
		log.Warnw("document symbols unavailable", logger.FieldURI, doc.URI, logger.FieldError, err)
		return NewTable()
	}

	collector := collect.New(p.provider, doc.LanguageID, collect.Options{
		Declarations: s.ShowOnDeclaration,
		Parameters:   s.ShowOnParameters,
		Usages:       s.ShowOnUsage,
		BatchSize:    s.BatchSize,
		Concurrency:  s.Concurrency,
	}, p.logger)

	observations := collector.Collect(ctx, doc, symbols)
	return NewAdapter(p.icons, p.chains, Options{
		ShowInheritance: s.ShowInheritance,
		IconSize:        s.IconSize,
	}).Build(observations)
}
