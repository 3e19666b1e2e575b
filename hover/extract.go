// Package hover salvages a canonical type name from the free-text hover
// payload a language server returns.
//
// Extraction runs in three stages:
//
//  1. Isolate: keep only the fenced code blocks of a markdown payload.
//  2. Capture: try the ordered rules of the language family, first match wins.
//  3. Normalize: strip modifiers and decoration, keep the last namespace segment.
//
// Nothing here returns an error. A payload that does not yield a type is
// reported as ("", false) and callers treat that as "no glyph".
package hover

import (
	"regexp"
	"strings"
)

// TypeName is a canonical short type name: never empty, never a keyword,
// with generic, array, pointer and namespace decoration removed.
type TypeName string

func (t TypeName) String() string { return string(t) }

// fencePattern matches a code fence with an optional info string on the opening line
var fencePattern = regexp.MustCompile("(?s)```[^\\n`]*\\n(.*?)```")

// Extract returns the type named by a hover payload produced for a document
// in the given language.
func Extract(text, language string) (TypeName, bool) {
	return ExtractFamily(text, FamilyFor(language))
}

// ExtractFamily is Extract with the language family already resolved.
func ExtractFamily(text string, family Family) (TypeName, bool) {
	code := Isolate(text)
	if strings.TrimSpace(code) == "" {
		return "", false
	}

	set := familyRules(family)
	for _, r := range set.rules {
		candidate, ok := r.capture(code)
		if !ok {
			continue
		}
		if set.fixup != nil {
			candidate = set.fixup(candidate)
		}
		if name, ok := Normalize(candidate); ok {
			return name, true
		}
	}
	return "", false
}

// Isolate returns the concatenated contents of every fenced code block in
// text, or text itself when there are none.
func Isolate(text string) string {
	blocks := fencePattern.FindAllStringSubmatch(text, -1)
	if len(blocks) == 0 {
		return text
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, strings.TrimRight(b[1], "\r\n"))
	}
	return strings.Join(parts, "\n")
}
