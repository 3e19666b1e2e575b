// Package annotate groups observations into a render table and drives a full
// pass (symbols, collection, grouping, rendering) for one document snapshot.
package annotate

import (
	"sort"
	"strings"

	"github.com/teranos/typeglyph/collect"
	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/iconcache"
	"github.com/teranos/typeglyph/inherit"
)

const (
	// KeySeparator joins chain elements into a group key
	KeySeparator = ">"
	// InheritsArrow joins ancestors in a tooltip
	InheritsArrow = " → "
)

// IconSource renders composite icons; *iconcache.Cache satisfies it.
type IconSource interface {
	Composite(names []string, size int) iconcache.Icon
}

// ChainSource resolves ancestry; *inherit.Resolver satisfies it.
type ChainSource interface {
	ChainFor(name string) inherit.Chain
}

// Options control grouping and icon size
type Options struct {
	ShowInheritance bool
	IconSize        int
}

// Group is every location sharing one glyph
type Group struct {
	Key       string           `json:"key"`
	Chain     inherit.Chain    `json:"chain"`
	IconURI   string           `json:"icon_uri"`
	Width     int              `json:"width"`
	Tooltip   string           `json:"tooltip"`
	Locations []document.Range `json:"locations"`
}

// Table is the output of one pass, handed to a Renderer
type Table struct {
	URI     string            `json:"uri"`
	Version int               `json:"version"`
	PassID  string            `json:"pass_id"`
	Groups  map[string]*Group `json:"groups"`
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{Groups: make(map[string]*Group)}
}

// Keys returns the group keys in sorted order
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.Groups))
	for k := range t.Groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the total number of locations across groups
func (t *Table) Len() int {
	n := 0
	for _, g := range t.Groups {
		n += len(g.Locations)
	}
	return n
}

// Adapter turns observations into a Table
type Adapter struct {
	icons  IconSource
	chains ChainSource
	opts   Options
}

// NewAdapter creates an adapter over shared icon and chain state
func NewAdapter(icons IconSource, chains ChainSource, opts Options) *Adapter {
	return &Adapter{icons: icons, chains: chains, opts: opts}
}

// Build groups observations by chain (inheritance shown) or bare type and
// requests one composite icon per group. Locations keep observation order.
func (a *Adapter) Build(observations []collect.Observation) *Table {
	table := NewTable()
	for _, o := range observations {
		chain := a.chains.ChainFor(string(o.Type))
		key := chain.Self()
		if a.opts.ShowInheritance {
			key = chain.Join(KeySeparator)
		}

		g, ok := table.Groups[key]
		if !ok {
			g = a.newGroup(key, chain)
			table.Groups[key] = g
		}
		g.Locations = append(g.Locations, o.Range)
	}
	return table
}

func (a *Adapter) newGroup(key string, chain inherit.Chain) *Group {
	names := []string(chain)
	if !a.opts.ShowInheritance {
		names = names[:1]
	}
	icon := a.icons.Composite(names, a.opts.IconSize)
	return &Group{
		Key:     key,
		Chain:   chain,
		IconURI: icon.URI,
		Width:   len(names) * a.opts.IconSize,
		Tooltip: Tooltip(chain),
	}
}

// Tooltip describes a chain as "Type: X" with an optional "Inherits:" line
func Tooltip(chain inherit.Chain) string {
	var b strings.Builder
	b.WriteString("Type: ")
	b.WriteString(chain.Self())
	if ancestors := chain.Ancestors(); len(ancestors) > 0 {
		b.WriteString("\nInherits: ")
		b.WriteString(strings.Join(ancestors, InheritsArrow))
	}
	return b.String()
}
