// Package collect turns a document's symbol tree into typed observations.
//
// A pass runs in three phases:
//
//	candidates   every CandidateProducer contributes locations, deduped by start position
//	hover        batched, bounded-concurrency hover lookups; first blob that extracts wins
//	usages       optional highlight expansion; usages inherit the declaration's type
//
// A failing collaborator call costs one location, never the pass.
package collect

import (
	"context"
	"time"

	"github.com/tliron/glsp/protocol_3_16"
	"go.uber.org/zap"

	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/hover"
	"github.com/teranos/typeglyph/logger"
)

// Symbol is one node of a document symbol tree
type Symbol struct {
	Name           string              `json:"name"`
	Kind           protocol.SymbolKind `json:"kind"`
	Range          document.Range      `json:"range"`
	SelectionRange document.Range      `json:"selectionRange"`
	Children       []Symbol            `json:"children,omitempty"`
}

// SymbolSource returns the symbol tree of a document
type SymbolSource interface {
	DocumentSymbols(ctx context.Context, doc *document.Document) ([]Symbol, error)
}

// HoverSource returns the raw hover blobs at a position
type HoverSource interface {
	Hover(ctx context.Context, doc *document.Document, pos document.Position) ([]string, error)
}

// HighlightSource returns the ranges highlighted together with a position
type HighlightSource interface {
	Highlights(ctx context.Context, doc *document.Document, pos document.Position) ([]document.Range, error)
}

// Provider is everything a collection pass asks of the host
type Provider interface {
	SymbolSource
	HoverSource
	HighlightSource
}

// Origin records how an observation was found
type Origin int

const (
	OriginDeclaration Origin = iota
	OriginParameter
	OriginUsage
)

func (o Origin) String() string {
	switch o {
	case OriginDeclaration:
		return "declaration"
	case OriginParameter:
		return "parameter"
	case OriginUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// MarshalText renders the origin by name in JSON output
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Observation is one (location, type) fact from a collection pass
type Observation struct {
	Range  document.Range `json:"range"`
	Type   hover.TypeName `json:"type"`
	Origin Origin         `json:"origin"`
}

// Options select what a pass collects and how hard it leans on the provider.
type Options struct {
	Declarations bool
	Parameters   bool
	Usages       bool
	BatchSize    int // lookups per batch
	Concurrency  int // in-flight lookups within a batch
}

// DefaultOptions mirror the glyphs and collect config defaults
func DefaultOptions() Options {
	return Options{
		Declarations: true,
		Parameters:   true,
		Usages:       false,
		BatchSize:    20,
		Concurrency:  8,
	}
}

// Collector runs collection passes for one language. It holds no per-pass
// state and may be reused across documents of that language.
type Collector struct {
	provider   Provider
	strategies []CandidateProducer
	opts       Options
	logger     *zap.SugaredLogger
}

// New creates a collector using the default strategies for language.
func New(provider Provider, language string, opts Options, log *zap.SugaredLogger) *Collector {
	return NewWithStrategies(provider, StrategiesFor(language), opts, log)
}

// NewWithStrategies creates a collector with an explicit strategy list.
func NewWithStrategies(provider Provider, strategies []CandidateProducer, opts Options, log *zap.SugaredLogger) *Collector {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Collector{
		provider:   provider,
		strategies: strategies,
		opts:       opts,
		logger:     log,
	}
}

// Options returns the options the collector was built with
func (c *Collector) Options() Options {
	return c.opts
}

// Collect runs one pass over doc. Observations come back in candidate order,
// followed by usages in the order of their declarations.
func (c *Collector) Collect(ctx context.Context, doc *document.Document, symbols []Symbol) []Observation {
	log := logger.FromContext(ctx, c.logger)
	start := time.Now()

	candidates := c.candidates(doc, symbols)
	observations := c.resolve(ctx, log, doc, candidates)
	declared := len(observations)

	if c.opts.Usages && len(observations) > 0 {
		observations = c.expandUsages(ctx, log, doc, observations)
	}

	log.Debugw("collection pass finished",
		logger.FieldURI, doc.URI,
		logger.FieldLanguage, doc.LanguageID,
		"candidates", len(candidates),
		"declarations", declared,
		"usages", len(observations)-declared,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return observations
}

// candidates merges every strategy's output. The first candidate at a start
// position wins; later ones at the same position are never queried.
func (c *Collector) candidates(doc *document.Document, symbols []Symbol) []Candidate {
	seen := make(map[document.Position]struct{})
	var out []Candidate
	for _, s := range c.strategies {
		for _, cand := range s.Candidates(doc, symbols, c.opts) {
			if _, dup := seen[cand.Range.Start]; dup {
				continue
			}
			seen[cand.Range.Start] = struct{}{}
			out = append(out, cand)
		}
	}
	return out
}

func (c *Collector) resolve(ctx context.Context, log *zap.SugaredLogger, doc *document.Document, candidates []Candidate) []Observation {
	found := make([]*Observation, len(candidates))

	err := forEachBatched(ctx, len(candidates), c.opts.BatchSize, c.opts.Concurrency, func(ctx context.Context, i int) {
		cand := candidates[i]
		blobs, err := c.provider.Hover(ctx, doc, cand.Range.Start)
		if err != nil {
			log.Debugw("hover lookup failed",
				logger.FieldLine, cand.Range.Start.Line,
				logger.FieldColumn, cand.Range.Start.Character,
				logger.FieldError, err,
			)
			return
		}
		for _, blob := range blobs {
			if name, ok := hover.Extract(blob, doc.LanguageID); ok {
				found[i] = &Observation{Range: cand.Range, Type: name, Origin: cand.Origin}
				return
			}
		}
	})
	if err != nil {
		log.Debugw("hover phase interrupted", logger.FieldError, err)
	}

	out := make([]Observation, 0, len(candidates))
	for _, o := range found {
		if o != nil {
			out = append(out, *o)
		}
	}
	return out
}

// expandUsages adds one observation per highlight range not already present,
// typed like the declaration it was highlighted from.
func (c *Collector) expandUsages(ctx context.Context, log *zap.SugaredLogger, doc *document.Document, declared []Observation) []Observation {
	highlights := make([][]document.Range, len(declared))

	err := forEachBatched(ctx, len(declared), c.opts.BatchSize, c.opts.Concurrency, func(ctx context.Context, i int) {
		ranges, err := c.provider.Highlights(ctx, doc, declared[i].Range.Start)
		if err != nil {
			log.Debugw("highlight lookup failed",
				logger.FieldLine, declared[i].Range.Start.Line,
				logger.FieldColumn, declared[i].Range.Start.Character,
				logger.FieldError, err,
			)
			return
		}
		highlights[i] = ranges
	})
	if err != nil {
		log.Debugw("highlight phase interrupted", logger.FieldError, err)
	}

	seen := make(map[document.Position]struct{}, len(declared))
	for _, o := range declared {
		seen[o.Range.Start] = struct{}{}
	}

	out := declared
	for i, ranges := range highlights {
		for _, r := range ranges {
			if _, dup := seen[r.Start]; dup {
				continue
			}
			seen[r.Start] = struct{}{}
			out = append(out, Observation{Range: r, Type: declared[i].Type, Origin: OriginUsage})
		}
	}
	return out
}
