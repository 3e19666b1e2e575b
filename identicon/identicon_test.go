package identicon

import (
	"math"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	t.Run("empty string is the seed", func(t *testing.T) {
		assert.Equal(t, uint32(5381), Hash(""))
	})

	t.Run("single character", func(t *testing.T) {
		// 5381*33 ^ 'a'
		assert.Equal(t, uint32(177573^'a'), Hash("a"))
	})

	t.Run("deterministic", func(t *testing.T) {
		for _, s := range []string{"Integer", "HashMap", "string", "Ærø", "😀"} {
			assert.Equal(t, Hash(s), Hash(s), s)
		}
	})

	t.Run("distinct names usually differ", func(t *testing.T) {
		assert.NotEqual(t, Hash("Number"), Hash("Object"))
		assert.NotEqual(t, Hash("ab"), Hash("ba"))
	})

	t.Run("hashes utf16 code units", func(t *testing.T) {
		// U+1F600 is the surrogate pair D83D DE00
		h := hashSeed
		h = h*33 ^ 0xD83D
		h = h*33 ^ 0xDE00
		assert.Equal(t, h, Hash("😀"))
	})
}

func TestColorFromHashRanges(t *testing.T) {
	inputs := []uint32{0, 1, 29, 30, 359, 360, 0xFFFF, 0x10000, 0x7FFFFFFF, 0x80000000, math.MaxUint32}
	for i := uint32(0); i < 2000; i++ {
		inputs = append(inputs, i*2654435761)
	}

	for _, h := range inputs {
		for _, off := range []uint{ForegroundOffset, BackgroundOffset} {
			c := ColorFromHash(h, off)
			require.GreaterOrEqual(t, c.H, 0)
			require.Less(t, c.H, 360)
			require.GreaterOrEqual(t, c.S, 60)
			require.Less(t, c.S, 90)
			require.GreaterOrEqual(t, c.L, 45)
			require.Less(t, c.L, 65)
		}
	}
}

func TestColorFromHashOffsets(t *testing.T) {
	h := uint32(0x01230456)
	fg := ColorFromHash(h, ForegroundOffset)
	bg := ColorFromHash(h, BackgroundOffset)

	assert.Equal(t, int(h%360), fg.H)
	assert.Equal(t, int((h>>16)%360), bg.H)
	assert.Equal(t, fg.S, bg.S)
	assert.Equal(t, fg.L, bg.L)
	assert.Equal(t, "hsl(10, 62%, 50%)", HSL{H: 10, S: 62, L: 50}.String())
}

func TestPatternFor(t *testing.T) {
	t.Run("symmetry", func(t *testing.T) {
		for _, name := range []string{"Integer", "Number", "Object", "string", "Vec", "HashMap", ""} {
			g := PatternFor(Hash(name))
			for y := 0; y < GridSize; y++ {
				assert.Equal(t, g[y][1], g[y][3], "%s row %d", name, y)
				assert.Equal(t, g[y][0], g[y][4], "%s row %d", name, y)
			}
		}
	})

	t.Run("bit layout", func(t *testing.T) {
		// bit 0 -> (0,0), bit 5 -> (1,2), bit 14 -> (4,2)
		g := PatternFor(1<<0 | 1<<5 | 1<<14)
		assert.True(t, g[0][0])
		assert.True(t, g[0][4])
		assert.True(t, g[1][2])
		assert.True(t, g[4][2])
		assert.Equal(t, 4, g.Count())
	})

	t.Run("only fifteen bits consulted", func(t *testing.T) {
		assert.Equal(t, PatternFor(0x7FFF), PatternFor(0xFFFFFFFF))
		assert.Equal(t, GridSize*GridSize, PatternFor(0x7FFF).Count())
		assert.Zero(t, PatternFor(0xFFFF8000).Count())
	})
}

func TestRender(t *testing.T) {
	img := Render("Integer", 15)

	require.NotEmpty(t, img.Rects)
	assert.Equal(t, 15, img.Width)
	assert.Equal(t, 15, img.Height)

	bg := img.Rects[0]
	assert.Equal(t, 0.3, bg.Opacity)
	assert.Equal(t, 15.0, bg.Width)
	assert.Equal(t, ColorFromHash(Hash("Integer"), BackgroundOffset), bg.Fill)

	grid := PatternFor(Hash("Integer"))
	assert.Len(t, img.Rects, 1+grid.Count())
	for _, r := range img.Rects[1:] {
		assert.Equal(t, 3.0, r.Width)
		assert.Equal(t, ColorFromHash(Hash("Integer"), ForegroundOffset), r.Fill)
		assert.True(t, grid[int(r.Y/3)][int(r.X/3)])
	}
}

func TestRenderCompositeEquivalence(t *testing.T) {
	const size = 14
	names := []string{"Integer", "Number", "Object"}
	composite := RenderComposite(names, size)

	assert.Equal(t, len(names)*size, composite.Width)
	assert.Equal(t, size, composite.Height)

	var expected []Rect
	for i, name := range names {
		for _, r := range Render(name, size).Rects {
			r.X += float64(i * size)
			expected = append(expected, r)
		}
	}
	assert.Equal(t, expected, composite.Rects)

	for _, r := range composite.Rects {
		idx := int(r.X) / size
		assert.LessOrEqual(t, r.X+r.Width, float64((idx+1)*size)+1e-9)
	}
}

func TestRenderCompositeEmpty(t *testing.T) {
	img := RenderComposite(nil, 14)
	assert.Zero(t, img.Width)
	assert.Empty(t, img.Rects)
	assert.Contains(t, img.SVG(), `width="0"`)
}

func TestSVG(t *testing.T) {
	svg := Render("Vec", 14).SVG()

	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" width="14" height="14" viewBox="0 0 14 14">`))
	assert.True(t, strings.HasSuffix(svg, `</svg>`))
	assert.Contains(t, svg, `opacity="0.3"`)
	assert.Contains(t, svg, `width="2.8"`)
	assert.Equal(t, svg, Render("Vec", 14).SVG())
}

func TestEmbeddableURI(t *testing.T) {
	svg := `<svg a='1' b="2">é %</svg>`
	uri := EmbeddableURI(svg)

	require.True(t, strings.HasPrefix(uri, SVGDataURIPrefix))
	payload := strings.TrimPrefix(uri, SVGDataURIPrefix)

	assert.NotContains(t, payload, `'`)
	assert.NotContains(t, payload, `"`)
	assert.NotContains(t, payload, " ")
	assert.Contains(t, payload, "%27")
	assert.Contains(t, payload, "%22")
	assert.Contains(t, payload, "%C3%A9")

	decoded, err := url.PathUnescape(payload)
	require.NoError(t, err)
	assert.Equal(t, svg, decoded)
}
