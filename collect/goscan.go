package collect

import (
	"regexp"
	"strings"

	"github.com/tliron/glsp/protocol_3_16"

	"github.com/teranos/typeglyph/document"
)

// GoSignatureScan recovers what gopls leaves out of its symbol tree:
// receivers and parameters from each func declaration's parenthesised lists,
// which may span lines, and ":=" or "var" locals inside the body.
type GoSignatureScan struct{}

func (GoSignatureScan) Name() string { return "go-signature-scan" }

var (
	identifier = regexp.MustCompile(`^[A-Za-z_]\w*`)
	namedParam = regexp.MustCompile(`^([A-Za-z_]\w*)\s+\S`)
	shortDecl  = regexp.MustCompile(`(?:^|[^\w.])([A-Za-z_]\w*(?:\s*,\s*[A-Za-z_]\w*)*)\s*:=`)
	varDecl    = regexp.MustCompile(`\bvar\s+([A-Za-z_]\w*(?:\s*,\s*[A-Za-z_]\w*)*)\s`)
	varBlock   = regexp.MustCompile(`\bvar\s*\(`)
	specNames  = regexp.MustCompile(`^[A-Za-z_]\w*(?:\s*,\s*[A-Za-z_]\w*)*`)
)

// goTypeWords start a type spelling, never a parameter name
var goTypeWords = map[string]struct{}{
	"chan": {}, "map": {}, "func": {}, "struct": {}, "interface": {},
}

func (GoSignatureScan) Candidates(doc *document.Document, symbols []Symbol, opts Options) []Candidate {
	if !opts.Parameters && !opts.Declarations {
		return nil
	}
	var out []Candidate
	var walk func(syms []Symbol)
	walk = func(syms []Symbol) {
		for i := range syms {
			s := &syms[i]
			if s.Kind == protocol.SymbolKindFunction || s.Kind == protocol.SymbolKindMethod {
				out = append(out, scanFunc(doc, s.Range, opts)...)
			}
			walk(s.Children)
		}
	}
	walk(symbols)
	return out
}

// span is a name found at a byte offset of the document text
type span struct {
	offset int
	name   string
}

func scanFunc(doc *document.Document, r document.Range, opts Options) []Candidate {
	start, end := doc.OffsetAt(r.Start), doc.OffsetAt(r.End)
	if end <= start {
		return nil
	}
	text := blankComments(doc.Text[start:end])

	params, bodyAt := scanSignature(text)

	var out []Candidate
	if opts.Parameters {
		for _, p := range params {
			out = append(out, candidateAt(doc, start+p.offset, p.name, OriginParameter))
		}
	}
	if opts.Declarations && bodyAt >= 0 {
		for _, l := range scanLocals(text[bodyAt:]) {
			out = append(out, candidateAt(doc, start+bodyAt+l.offset, l.name, OriginDeclaration))
		}
	}
	return out
}

func candidateAt(doc *document.Document, offset int, name string, origin Origin) Candidate {
	return Candidate{Range: doc.RangeOf(offset, offset+len(name)), Origin: origin}
}

// scanSignature returns receiver and parameter names of the func declaration
// at the head of text, plus the offset of the body's opening brace or -1.
func scanSignature(text string) ([]span, int) {
	p := strings.Index(text, "func")
	if p < 0 {
		return nil, -1
	}
	p = skipSpace(text, p+len("func"))

	var names []span
	if p < len(text) && text[p] == '(' {
		end := matchClose(text, p)
		if end < 0 {
			return nil, -1
		}
		names = append(names, paramNames(text[p+1:end], p+1)...)
		p = skipSpace(text, end+1)
	}

	p += len(identifier.FindString(text[p:]))
	p = skipSpace(text, p)
	if p < len(text) && text[p] == '[' {
		end := matchClose(text, p)
		if end < 0 {
			return names, -1
		}
		p = skipSpace(text, end+1)
	}

	if p >= len(text) || text[p] != '(' {
		return names, -1
	}
	end := matchClose(text, p)
	if end < 0 {
		return names, -1
	}
	names = append(names, paramNames(text[p+1:end], p+1)...)

	return names, bodyStart(text, end+1)
}

// paramNames splits a parameter list on top-level commas. A lone identifier
// is a name only when some other entry of the list pairs a name with a type,
// as in "a, b int"; otherwise it is an unnamed parameter's type.
func paramNames(list string, base int) []span {
	type entry struct {
		offset int
		name   string
		typed  bool
		lone   bool
	}
	var entries []entry
	anyTyped := false

	for _, tok := range splitTopLevel(list) {
		trimmed := strings.TrimLeft(tok.text, " \t\r\n")
		off := base + tok.offset + len(tok.text) - len(trimmed)
		trimmed = strings.TrimRight(trimmed, " \t\r\n")
		if trimmed == "" {
			continue
		}

		if m := namedParam.FindStringSubmatch(trimmed); m != nil {
			if _, isType := goTypeWords[m[1]]; !isType {
				entries = append(entries, entry{offset: off, name: m[1], typed: true})
				anyTyped = true
				continue
			}
		}
		if identifier.FindString(trimmed) == trimmed {
			entries = append(entries, entry{offset: off, name: trimmed, lone: true})
		}
	}

	if !anyTyped {
		return nil
	}
	var out []span
	for _, e := range entries {
		if e.name == "_" {
			continue
		}
		if e.typed || e.lone {
			out = append(out, span{offset: e.offset, name: e.name})
		}
	}
	return out
}

type token struct {
	offset int
	text   string
}

func splitTopLevel(list string) []token {
	var out []token
	depth, from := 0, 0
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, token{offset: from, text: list[from:i]})
				from = i + 1
			}
		}
	}
	return append(out, token{offset: from, text: list[from:]})
}

// scanLocals finds names introduced by ":=", "var" and grouped "var (...)"
// in a function body.
func scanLocals(body string) []span {
	var out []span
	for _, re := range []*regexp.Regexp{shortDecl, varDecl} {
		for _, m := range re.FindAllStringSubmatchIndex(body, -1) {
			out = append(out, splitNames(body[m[2]:m[3]], m[2])...)
		}
	}
	for _, m := range varBlock.FindAllStringIndex(body, -1) {
		open := m[1] - 1
		end := matchClose(body, open)
		if end < 0 {
			continue
		}
		out = append(out, groupedVarNames(body[open+1:end], open+1)...)
	}
	return out
}

// groupedVarNames takes the leading name list of each line of a var block
func groupedVarNames(block string, base int) []span {
	var out []span
	for _, line := range strings.SplitAfter(block, "\n") {
		trimmed := strings.TrimLeft(line, " \t\r")
		lead := len(line) - len(trimmed)
		if names := specNames.FindString(trimmed); names != "" {
			out = append(out, splitNames(names, base+lead)...)
		}
		base += len(line)
	}
	return out
}

func splitNames(group string, base int) []span {
	var out []span
	for _, tok := range strings.Split(group, ",") {
		lead := len(tok) - len(strings.TrimLeft(tok, " \t"))
		name := strings.TrimSpace(tok)
		if name != "" && name != "_" {
			out = append(out, span{offset: base + lead, name: name})
		}
		base += len(tok) + 1
	}
	return out
}

// matchClose returns the index of the bracket closing the one at open, or -1
func matchClose(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// bodyStart finds the first top-level '{' at or after from
func bodyStart(text string, from int) int {
	depth := 0
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '{':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func skipSpace(text string, p int) int {
	for p < len(text) && (text[p] == ' ' || text[p] == '\t' || text[p] == '\r' || text[p] == '\n') {
		p++
	}
	return p
}

// blankComments replaces comments and the contents of string and rune literals with spaces so offsets
// into the result still index the original text.
func blankComments(src string) string {
	b := []byte(src)
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/':
			for i < len(b) && b[i] != '\n' {
				b[i] = ' '
				i++
			}
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			j := i
			for j < len(b) && !(b[j] == '*' && j+1 < len(b) && b[j+1] == '/') {
				if b[j] != '\n' {
					b[j] = ' '
				}
				j++
			}
			for k := j; k < len(b) && k < j+2; k++ {
				b[k] = ' '
			}
			i = j + 1
		case b[i] == '"' || b[i] == '\'' || b[i] == '`':
			quote := b[i]
			j := i + 1
			for j < len(b) && b[j] != quote {
				if quote != '`' && b[j] == '\\' {
					b[j] = ' '
					j++
				}
				if j < len(b) && b[j] != '\n' {
					b[j] = ' '
				}
				j++
			}
			i = j
		}
	}
	return string(b)
}
