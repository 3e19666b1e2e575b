package identicon

import (
	"fmt"
	"unicode/utf16"
)

const hashSeed uint32 = 5381

// Bit offsets used to derive the two tones of one glyph.
const (
	ForegroundOffset uint = 0
	BackgroundOffset uint = 16
)

// Hash is the djb2-xor hash over the UTF-16 code units of text.
func Hash(text string) uint32 {
	h := hashSeed
	for _, c := range utf16.Encode([]rune(text)) {
		h = ((h << 5) + h) ^ uint32(c)
	}
	return h
}

// HSL is a color in hue/saturation/lightness space.
// Hue in [0,360), saturation in [60,90), lightness in [45,65).
type HSL struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// String renders the color as a CSS hsl() value
func (c HSL) String() string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", c.H, c.S, c.L)
}

// ColorFromHash derives a color from h, reading the hue from h shifted right by bitOffset.
func ColorFromHash(h uint32, bitOffset uint) HSL {
	hue := (int((h>>bitOffset)%360) + 360) % 360
	return HSL{
		H: hue,
		S: 60 + int(h%30),
		L: 45 + int((h>>4)%20),
	}
}
