package collect

import (
	"github.com/tliron/glsp/protocol_3_16"

	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/hover"
)

// Candidate is a location whose hover text will be queried
type Candidate struct {
	Range  document.Range
	Origin Origin
}

// CandidateProducer proposes locations to query for one document.
// Producers may overlap; the collector dedups by start position.
type CandidateProducer interface {
	Name() string
	Candidates(doc *document.Document, symbols []Symbol, opts Options) []Candidate
}

// StrategiesFor returns the producers used for a language tag, in priority order.
func StrategiesFor(language string) []CandidateProducer {
	if hover.FamilyFor(language) == hover.FamilyGo {
		return []CandidateProducer{SymbolWalk{}, GoSignatureScan{}}
	}
	return []CandidateProducer{SymbolWalk{}}
}

// SymbolWalk reads candidates straight from the symbol tree, depth-first.
// A value-like child of a callable that starts inside the callable's
// parenthesised parameter list is taken as a parameter; any other value-like
// symbol is a declaration. Without document text the list cannot be located,
// and a child on the callable's own name line counts as a parameter.
type SymbolWalk struct{}

func (SymbolWalk) Name() string { return "symbol-walk" }

func (SymbolWalk) Candidates(doc *document.Document, symbols []Symbol, opts Options) []Candidate {
	var out []Candidate
	var walk func(syms []Symbol, parent *Symbol, params paramList)
	walk = func(syms []Symbol, parent *Symbol, params paramList) {
		for i := range syms {
			s := &syms[i]
			if isValueKind(s.Kind) && s.Name != "" {
				if parent != nil && isCallable(parent.Kind) && params.contains(doc, s, parent) {
					if opts.Parameters {
						out = append(out, Candidate{Range: s.SelectionRange, Origin: OriginParameter})
					}
				} else if opts.Declarations {
					out = append(out, Candidate{Range: s.SelectionRange, Origin: OriginDeclaration})
				}
			}
			var childParams paramList
			if isCallable(s.Kind) {
				childParams = parameterList(doc, s)
			}
			walk(s.Children, s, childParams)
		}
	}
	walk(symbols, nil, paramList{})
	return out
}

// paramList is the byte span between a callable's parameter parentheses
type paramList struct {
	open, close int
	found       bool
}

func (p paramList) contains(doc *document.Document, child, parent *Symbol) bool {
	if !p.found {
		return child.SelectionRange.Start.Line == parent.SelectionRange.Start.Line
	}
	off := doc.OffsetAt(child.SelectionRange.Start)
	return off > p.open && off < p.close
}

// parameterList locates the first '(' after the callable's name and its
// matching ')'. A '{', ';' or '=' reached first means there is no list.
func parameterList(doc *document.Document, callable *Symbol) paramList {
	if doc == nil {
		return paramList{}
	}
	from := doc.OffsetAt(callable.SelectionRange.End)
	to := doc.OffsetAt(callable.Range.End)
	if to <= from {
		return paramList{}
	}
	text := blankComments(doc.Text[from:to])
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{', ';', '=':
			return paramList{}
		case '(':
			end := matchClose(text, i)
			if end < 0 {
				return paramList{}
			}
			return paramList{open: from + i, close: from + end, found: true}
		}
	}
	return paramList{}
}

func isValueKind(k protocol.SymbolKind) bool {
	switch k {
	case protocol.SymbolKindVariable, protocol.SymbolKindConstant,
		protocol.SymbolKindField, protocol.SymbolKindProperty:
		return true
	}
	return false
}

func isCallable(k protocol.SymbolKind) bool {
	switch k {
	case protocol.SymbolKindFunction, protocol.SymbolKindMethod, protocol.SymbolKindConstructor:
		return true
	}
	return false
}
