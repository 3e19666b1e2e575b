package identicon

import "strings"

// SVGDataURIPrefix marks an inline, non-base64 SVG payload
const SVGDataURIPrefix = "data:image/svg+xml;utf8,"

const upperHex = "0123456789ABCDEF"

// EmbeddableURI percent-encodes svg source into a data URI that is safe inside
// both single- and double-quoted attributes.
func EmbeddableURI(svg string) string {
	return SVGDataURIPrefix + escapeComponent(svg)
}

// escapeComponent keeps the unreserved set of encodeURIComponent except the
// apostrophe, and percent-encodes every other byte of the UTF-8 input.
func escapeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '(', ')':
		return true
	}
	return false
}
