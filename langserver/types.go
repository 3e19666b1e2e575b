package langserver

import (
	"encoding/json"

	"github.com/tliron/glsp/protocol_3_16"

	"github.com/teranos/typeglyph/collect"
	"github.com/teranos/typeglyph/document"
)

// DocumentSymbol is one node of a hierarchical documentSymbol result
type DocumentSymbol struct {
	Name           string              `json:"name"`
	Detail         string              `json:"detail,omitempty"`
	Kind           protocol.SymbolKind `json:"kind"`
	Range          document.Range      `json:"range"`
	SelectionRange document.Range      `json:"selectionRange"`
	Children       []DocumentSymbol    `json:"children,omitempty"`
}

// symbolInformation is the flat documentSymbol result older servers send
type symbolInformation struct {
	Name     string              `json:"name"`
	Kind     protocol.SymbolKind `json:"kind"`
	Location struct {
		URI   string         `json:"uri"`
		Range document.Range `json:"range"`
	} `json:"location"`
}

// decodeSymbols accepts either DocumentSymbol[] or SymbolInformation[]
func decodeSymbols(raw json.RawMessage) ([]DocumentSymbol, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if len(probe) == 0 {
		return nil, nil
	}
	if _, flat := probe[0]["location"]; !flat {
		var symbols []DocumentSymbol
		err := json.Unmarshal(raw, &symbols)
		return symbols, err
	}

	var infos []symbolInformation
	if err := json.Unmarshal(raw, &infos); err != nil {
		return nil, err
	}
	symbols := make([]DocumentSymbol, len(infos))
	for i, s := range infos {
		symbols[i] = DocumentSymbol{
			Name:           s.Name,
			Kind:           s.Kind,
			Range:          s.Location.Range,
			SelectionRange: s.Location.Range,
		}
	}
	return symbols, nil
}

// ToCollect converts a symbol tree to the collector's model
func ToCollect(symbols []DocumentSymbol) []collect.Symbol {
	if len(symbols) == 0 {
		return nil
	}
	out := make([]collect.Symbol, len(symbols))
	for i, s := range symbols {
		out[i] = collect.Symbol{
			Name:           s.Name,
			Kind:           s.Kind,
			Range:          s.Range,
			SelectionRange: s.SelectionRange,
			Children:       ToCollect(s.Children),
		}
	}
	return out
}

// DocumentHighlight is one range of a documentHighlight result
type DocumentHighlight struct {
	Range document.Range                 `json:"range"`
	Kind  protocol.DocumentHighlightKind `json:"kind,omitempty"`
}

// Hover represents hover information at a position
type Hover struct {
	Contents json.RawMessage `json:"contents"`
	Range    *document.Range `json:"range,omitempty"`
}

// markedString is the {language, value} form of a MarkedString
type markedString struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// Texts flattens hover contents into text blobs. MarkupContent yields its
// value, a plain MarkedString itself, a {language, value} MarkedString a
// fenced block, and an array one blob per element.
func (h *Hover) Texts() []string {
	if h == nil || len(h.Contents) == 0 || string(h.Contents) == "null" {
		return nil
	}
	return contentTexts(h.Contents)
}

func contentTexts(raw json.RawMessage) []string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return nonEmpty(str)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, contentTexts(item)...)
		}
		return out
	}

	var markup protocol.MarkupContent
	if err := json.Unmarshal(raw, &markup); err == nil && markup.Kind != "" {
		return nonEmpty(markup.Value)
	}

	var marked markedString
	if err := json.Unmarshal(raw, &marked); err == nil && marked.Value != "" {
		if marked.Language == "" {
			return []string{marked.Value}
		}
		return []string{"```" + marked.Language + "\n" + marked.Value + "\n```"}
	}
	return nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// lspPosition converts a document position to the wire type
func lspPosition(p document.Position) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(p.Line),
		Character: protocol.UInteger(p.Character),
	}
}

func positionParams(uri string, p document.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     lspPosition(p),
	}
}
