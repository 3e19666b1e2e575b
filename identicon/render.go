package identicon

import (
	"strconv"
	"strings"
)

// backgroundOpacity is applied to the background rect of every glyph
const backgroundOpacity = 0.3

// Rect is one filled rectangle of a vector image
type Rect struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Fill    HSL     `json:"fill"`
	Opacity float64 `json:"opacity"` // 0 means fully opaque
}

// Image is a vector image made of rects drawn in order
type Image struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Rects  []Rect `json:"rects"`
}

// Render draws the glyph for one type name on a size×size canvas.
func Render(name string, size int) *Image {
	return RenderComposite([]string{name}, size)
}

// RenderComposite draws one glyph per name, left to right, on a shared
// canvas len(names)*size wide. Glyph i occupies [i*size, (i+1)*size) and is
// drawn exactly as Render would draw it, shifted by i*size.
// An empty names slice yields a zero-width image.
func RenderComposite(names []string, size int) *Image {
	img := &Image{Width: len(names) * size, Height: size}
	for i, name := range names {
		img.Rects = appendGlyph(img.Rects, name, size, float64(i*size))
	}
	return img
}

func appendGlyph(rects []Rect, name string, size int, offsetX float64) []Rect {
	h := Hash(name)
	grid := PatternFor(h)
	fg := ColorFromHash(h, ForegroundOffset)
	bg := ColorFromHash(h, BackgroundOffset)

	side := float64(size)
	rects = append(rects, Rect{
		X: offsetX, Y: 0,
		Width: side, Height: side,
		Fill:    bg,
		Opacity: backgroundOpacity,
	})

	cell := side / GridSize
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			if !grid[y][x] {
				continue
			}
			rects = append(rects, Rect{
				X: offsetX + float64(x)*cell, Y: float64(y) * cell,
				Width: cell, Height: cell,
				Fill: fg,
			})
		}
	}
	return rects
}

// SVG encodes the image as standalone SVG source.
func (img *Image) SVG() string {
	var b strings.Builder
	w, h := strconv.Itoa(img.Width), strconv.Itoa(img.Height)
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + w + `" height="` + h +
		`" viewBox="0 0 ` + w + ` ` + h + `">`)
	for _, r := range img.Rects {
		b.WriteString(`<rect x="`)
		b.WriteString(formatFloat(r.X))
		b.WriteString(`" y="`)
		b.WriteString(formatFloat(r.Y))
		b.WriteString(`" width="`)
		b.WriteString(formatFloat(r.Width))
		b.WriteString(`" height="`)
		b.WriteString(formatFloat(r.Height))
		b.WriteString(`" fill="`)
		b.WriteString(r.Fill.String())
		b.WriteString(`"`)
		if r.Opacity > 0 {
			b.WriteString(` opacity="`)
			b.WriteString(formatFloat(r.Opacity))
			b.WriteString(`"`)
		}
		b.WriteString(`/>`)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
