package iconcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/typeglyph/identicon"
)

func TestIconIdempotent(t *testing.T) {
	c := New()

	first := c.Icon("Foo", 14)
	second := c.Icon("Foo", 14)

	assert.Equal(t, first, second)
	assert.Equal(t, 14, first.Width)
	assert.Equal(t, identicon.EmbeddableURI(identicon.Render("Foo", 14).SVG()), first.URI)
	assert.Equal(t, 1, c.Len())
}

func TestKeysAreDistinct(t *testing.T) {
	c := New()

	c.Icon("Foo", 14)
	c.Icon("Foo", 16)
	c.Composite([]string{"Foo"}, 14)
	c.Composite([]string{"Foo", "Bar"}, 14)
	c.Composite([]string{"Bar", "Foo"}, 14)

	assert.Equal(t, 5, c.Len())
}

func TestComposite(t *testing.T) {
	c := New()
	names := []string{"Integer", "Number", "Object"}

	icon := c.Composite(names, 14)
	assert.Equal(t, 42, icon.Width)
	assert.Equal(t, identicon.EmbeddableURI(identicon.RenderComposite(names, 14).SVG()), icon.URI)

	// a one-name composite renders the same image as the single icon
	assert.Equal(t, c.Icon("Integer", 14).URI, c.Composite([]string{"Integer"}, 14).URI)
}

func TestClear(t *testing.T) {
	c := New()
	before := c.Icon("Foo", 14)
	c.Composite([]string{"A", "B"}, 14)
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Equal(t, before, c.Icon("Foo", 14))
}

func TestConcurrentLookups(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	results := make([]Icon, 32)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Composite([]string{"Integer", "Number"}, 14)
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
	assert.Equal(t, 1, c.Len())
}
