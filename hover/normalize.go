package hover

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	identifierShape = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
	leadingArray    = regexp.MustCompile(`^\[[0-9A-Za-z_]*\]`)
	leadingAnnot    = regexp.MustCompile(`^@[\w.]+(?:\([^)]*\))?\s*`)
)

// Normalize reduces a raw captured type spelling to its canonical short name.
//
// Leading modifiers, annotations, slice markers and pointer markers are
// removed until none remain; a Go map type collapses to "map". Generic
// arguments and index suffixes are cut, trailing pointer and nullability
// markers trimmed, and only the last namespace segment is kept. The result
// must look like an identifier and must not be a keyword.
func Normalize(candidate string) (TypeName, bool) {
	s := stripLeading(strings.TrimSpace(candidate))

	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "*&?! \t")
	s = lastSegment(s)
	s = strings.TrimSpace(s)

	if s == "" || !identifierShape.MatchString(s) || IsKeyword(s) {
		return "", false
	}
	return TypeName(s), true
}

func stripLeading(s string) string {
	for {
		before := s
		s = strings.TrimLeftFunc(s, unicode.IsSpace)

		if strings.HasPrefix(s, "map[") {
			return "map"
		}
		if m := leadingAnnot.FindString(s); m != "" {
			s = s[len(m):]
		}
		if m := leadingArray.FindString(s); m != "" {
			s = s[len(m):]
		}
		s = strings.TrimPrefix(s, "...")
		s = strings.TrimLeft(s, "*&^")
		s = stripModifier(s)

		if s == before {
			return s
		}
	}
}

// stripModifier removes one leading modifier word when more text follows it
func stripModifier(s string) string {
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end <= 0 {
		return s
	}
	if _, ok := modifiers[toLower(s[:end])]; !ok {
		return s
	}
	rest := strings.TrimLeftFunc(s[end:], unicode.IsSpace)
	if rest == "" {
		return s
	}
	return rest
}

// lastSegment keeps the text after the final "::", "." or "\" separator
func lastSegment(s string) string {
	cut := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '.' || s[i] == '\\':
			cut = i + 1
		case s[i] == ':' && i+1 < len(s) && s[i+1] == ':':
			cut = i + 2
			i++
		}
	}
	return s[cut:]
}

func toLower(s string) string {
	return strings.ToLower(s)
}
