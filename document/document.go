// Package document holds the immutable snapshot of a source file that one
// annotation pass works on, and the position math the language-server wire
// format needs: positions are zero-based lines and UTF-16 code-unit columns.
package document

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Position is a zero-based (line, UTF-16 column) pair
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// String renders the position 1-based, the way editors display it
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

// Before reports whether p sorts before q
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Character < q.Character
}

// Range is a half-open [Start, End) span
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether pos lies inside r
func (r Range) Contains(pos Position) bool {
	return !pos.Before(r.Start) && pos.Before(r.End)
}

// Document is a read-only snapshot of one document version.
type Document struct {
	URI        string
	LanguageID string
	Version    int
	Text       string

	lineStarts []int // byte offset of each line start
}

// New builds a snapshot and indexes its line starts.
func New(uri, languageID string, version int, text string) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{
		URI:        uri,
		LanguageID: languageID,
		Version:    version,
		Text:       text,
		lineStarts: starts,
	}
}

// LineCount returns the number of lines (a trailing newline opens an empty last line)
func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// Line returns line n without its terminator, or "" when out of range
func (d *Document) Line(n int) string {
	if n < 0 || n >= len(d.lineStarts) {
		return ""
	}
	start := d.lineStarts[n]
	end := len(d.Text)
	if n+1 < len(d.lineStarts) {
		end = d.lineStarts[n+1] - 1
	}
	return strings.TrimSuffix(d.Text[start:end], "\r")
}

// OffsetAt converts a position to a byte offset, clamping to the line and text bounds.
func (d *Document) OffsetAt(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(d.lineStarts) {
		return len(d.Text)
	}
	i := d.lineStarts[pos.Line]
	need := pos.Character
	for i < len(d.Text) && need > 0 {
		r, size := utf8.DecodeRuneInString(d.Text[i:])
		if r == '\n' || r == '\r' {
			break
		}
		need -= utf16Len(r)
		i += size
	}
	return i
}

// PositionAt converts a byte offset to a position, clamping to the text bounds.
func (d *Document) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.Text) {
		offset = len(d.Text)
	}
	line := sort.Search(len(d.lineStarts), func(i int) bool {
		return d.lineStarts[i] > offset
	}) - 1

	col := 0
	for k := d.lineStarts[line]; k < offset; {
		r, size := utf8.DecodeRuneInString(d.Text[k:])
		if r == '\n' {
			break
		}
		if r != '\r' {
			col += utf16Len(r)
		}
		k += size
	}
	return Position{Line: line, Character: col}
}

// RangeOf returns the range covering bytes [start, end)
func (d *Document) RangeOf(start, end int) Range {
	return Range{Start: d.PositionAt(start), End: d.PositionAt(end)}
}

// TextIn returns the text covered by r
func (d *Document) TextIn(r Range) string {
	start, end := d.OffsetAt(r.Start), d.OffsetAt(r.End)
	if end < start {
		return ""
	}
	return d.Text[start:end]
}

func utf16Len(r rune) int {
	if r == utf8.RuneError {
		return 1
	}
	return len(utf16.Encode([]rune{r}))
}
