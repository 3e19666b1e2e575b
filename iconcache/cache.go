// Package iconcache memoizes rendered identicons for the life of the process.
package iconcache

import (
	"strconv"
	"strings"
	"sync"

	"github.com/teranos/typeglyph/identicon"
)

// keySeparator is not expected to appear inside a type name
const keySeparator = ":"

// compositePrefix keeps composite keys apart from single-icon keys, so a
// one-name composite never aliases the single icon of the same name.
const compositePrefix = "composite" + keySeparator

// Icon is an embeddable rendered glyph and its pixel width
type Icon struct {
	URI   string `json:"uri"`
	Width int    `json:"width"`
}

// Cache is safe for concurrent use. Entries are never evicted except by Clear.
// Two goroutines racing on the same missing key may both render it; the first
// stored value wins and both callers get it.
type Cache struct {
	entries sync.Map // string -> Icon
}

// New creates an empty cache
func New() *Cache {
	return &Cache{}
}

// Icon returns the single glyph for name at size.
func (c *Cache) Icon(name string, size int) Icon {
	return c.load(name+keySeparator+strconv.Itoa(size), func() *identicon.Image {
		return identicon.Render(name, size)
	})
}

// Composite returns one image holding a glyph per name, left to right.
// Order matters: [A B] and [B A] are different entries.
func (c *Cache) Composite(names []string, size int) Icon {
	key := compositePrefix + strings.Join(names, keySeparator) + keySeparator + strconv.Itoa(size)
	return c.load(key, func() *identicon.Image {
		return identicon.RenderComposite(names, size)
	})
}

// SVG returns the raw SVG source for names, bypassing the cache.
func (c *Cache) SVG(names []string, size int) string {
	return identicon.RenderComposite(names, size).SVG()
}

func (c *Cache) load(key string, render func() *identicon.Image) Icon {
	if v, ok := c.entries.Load(key); ok {
		return v.(Icon)
	}
	img := render()
	icon := Icon{URI: identicon.EmbeddableURI(img.SVG()), Width: img.Width}
	actual, _ := c.entries.LoadOrStore(key, icon)
	return actual.(Icon)
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		return true
	})
}

// Len reports the number of cached entries
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
