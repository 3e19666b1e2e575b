// Package inherit maps well-known type names to their ancestor chain.
//
// The table stores complete chains, never single-parent links, so lookup is
// one exact-match map read with no transitive walk:
//
//	Integer -> [Integer Number Object]
//	Vec     -> [Vec]          (explicitly empty ancestry)
//	Widget  -> [Widget]       (unknown)
package inherit

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teranos/typeglyph/errors"
)

//go:embed ancestry.yaml
var builtinAncestry []byte

// Chain is a type followed by its ancestors, root-most last.
// Chain[0] is always the name it was resolved from.
type Chain []string

// Self returns the most-derived type
func (c Chain) Self() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// Ancestors returns the chain without its first element
func (c Chain) Ancestors() []string {
	if len(c) < 2 {
		return nil
	}
	return c[1:]
}

// Join concatenates the chain with sep
func (c Chain) Join(sep string) string {
	return strings.Join(c, sep)
}

// Resolver is immutable once built and safe for concurrent use.
type Resolver struct {
	table map[string][]string
}

// Default returns a resolver over the built-in table.
func Default() *Resolver {
	table, err := parseYAML(builtinAncestry)
	if err != nil {
		panic(errors.Wrap(err, "built-in ancestry table"))
	}
	r, err := New(table)
	if err != nil {
		panic(errors.Wrap(err, "built-in ancestry table"))
	}
	return r
}

// New validates table and builds a resolver from it. Each value lists the
// ancestors of its key, most-derived first; a nil or empty list means the
// type has no known ancestry.
func New(table map[string][]string) (*Resolver, error) {
	r := &Resolver{table: make(map[string][]string, len(table))}
	for name, ancestors := range table {
		if err := validate(name, ancestors); err != nil {
			return nil, err
		}
		r.table[name] = append([]string(nil), ancestors...)
	}
	return r, nil
}

func validate(name string, ancestors []string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewInvalidRequestError("ancestry entry with empty type name")
	}
	seen := make(map[string]struct{}, len(ancestors))
	for _, a := range ancestors {
		if a == "" {
			return errors.NewInvalidRequestError("ancestry of %s has an empty entry", name)
		}
		if a == name {
			return errors.NewInvalidRequestError("ancestry of %s references itself", name)
		}
		if _, dup := seen[a]; dup {
			return errors.NewInvalidRequestError("ancestry of %s lists %s twice", name, a)
		}
		seen[a] = struct{}{}
	}
	return nil
}

// LoadFile reads an ancestry table from a .yaml, .yml or .toml file.
func LoadFile(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read ancestry file %s", path)
	}

	var table map[string][]string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		table, err = parseYAML(data)
	case ".toml":
		table, err = parseTOML(data)
	default:
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("unsupported ancestry file extension %q", ext),
			"use a .yaml, .yml or .toml file")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse ancestry file %s", path)
	}
	return New(table)
}

func parseYAML(data []byte) (map[string][]string, error) {
	var table map[string][]string
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrap(err, "yaml")
	}
	return table, nil
}

func parseTOML(data []byte) (map[string][]string, error) {
	var table map[string][]string
	if _, err := toml.Decode(string(data), &table); err != nil {
		return nil, errors.Wrap(err, "toml")
	}
	return table, nil
}

// Merge returns a new resolver holding r's entries overlaid by other's.
// Neither input is modified.
func (r *Resolver) Merge(other *Resolver) *Resolver {
	merged := &Resolver{table: make(map[string][]string, len(r.table)+len(other.table))}
	for k, v := range r.table {
		merged.table[k] = v
	}
	for k, v := range other.table {
		merged.table[k] = v
	}
	return merged
}

// ChainFor returns name followed by its recorded ancestors, or [name] when
// none are recorded. Lookup is exact and case-sensitive.
func (r *Resolver) ChainFor(name string) Chain {
	ancestors := r.table[name]
	chain := make(Chain, 0, 1+len(ancestors))
	chain = append(chain, name)
	return append(chain, ancestors...)
}

// Len reports the number of table entries
func (r *Resolver) Len() int {
	return len(r.table)
}
