package hover

import (
	"regexp"
	"strings"
)

// Family groups languages whose servers emit the same hover grammar
type Family int

const (
	FamilyGeneric Family = iota
	FamilyTypeScript
	FamilyJava
	FamilyPython
	FamilyCSharp
	FamilyGo
	FamilyRust
	FamilyKotlin
	FamilyC
)

var familyNames = map[Family]string{
	FamilyGeneric:    "generic",
	FamilyTypeScript: "typescript",
	FamilyJava:       "java",
	FamilyPython:     "python",
	FamilyCSharp:     "csharp",
	FamilyGo:         "go",
	FamilyRust:       "rust",
	FamilyKotlin:     "kotlin",
	FamilyC:          "c",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// languageFamilies maps editor language identifiers to a family
var languageFamilies = map[string]Family{
	"typescript":      FamilyTypeScript,
	"typescriptreact": FamilyTypeScript,
	"javascript":      FamilyTypeScript,
	"javascriptreact": FamilyTypeScript,
	"ts":              FamilyTypeScript,
	"tsx":             FamilyTypeScript,
	"js":              FamilyTypeScript,
	"jsx":             FamilyTypeScript,
	"java":            FamilyJava,
	"python":          FamilyPython,
	"py":              FamilyPython,
	"csharp":          FamilyCSharp,
	"c#":              FamilyCSharp,
	"cs":              FamilyCSharp,
	"go":              FamilyGo,
	"golang":          FamilyGo,
	"rust":            FamilyRust,
	"rs":              FamilyRust,
	"kotlin":          FamilyKotlin,
	"kt":              FamilyKotlin,
	"c":               FamilyC,
	"cpp":             FamilyC,
	"c++":             FamilyC,
	"objective-c":     FamilyC,
	"objective-cpp":   FamilyC,
	"cuda":            FamilyC,
}

// FamilyFor resolves a language tag. Unknown tags get FamilyGeneric.
func FamilyFor(language string) Family {
	if f, ok := languageFamilies[strings.ToLower(strings.TrimSpace(language))]; ok {
		return f
	}
	return FamilyGeneric
}

// Families lists every family in declaration order
func Families() []Family {
	return []Family{
		FamilyGeneric, FamilyTypeScript, FamilyJava, FamilyPython, FamilyCSharp,
		FamilyGo, FamilyRust, FamilyKotlin, FamilyC,
	}
}

// rule captures a raw type candidate in group 1 of re.
// A rule with a guard is skipped when the guard rejects the text.
type rule struct {
	re    *regexp.Regexp
	guard func(string) bool
}

func (r rule) capture(text string) (string, bool) {
	if r.guard != nil && !r.guard(text) {
		return "", false
	}
	m := r.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

type ruleSet struct {
	rules []rule
	fixup func(string) string
}

func rules(patterns ...string) []rule {
	out := make([]rule, len(patterns))
	for i, p := range patterns {
		out[i] = rule{re: regexp.MustCompile(p)}
	}
	return out
}

// Shared fallbacks
const (
	bareColonPattern   = `:\s*([A-Za-z_$][^=\n,;)|]*)`
	leadingTypePattern = `(?m)^\s*([A-Za-z_$][\w$.:<>\[\]]*)\s+[A-Za-z_$][\w$]*\s*$`
)

var (
	tsKinds = `property|parameter|var|let|const|local var|variable|field|getter|setter|enum member|alias`
	pyKinds = `variable|parameter|property|field|constant|type alias|class variable|instance variable`
	csKinds = `local variable|local constant|field|parameter|property|constant|range variable|discard`
)

var families = map[Family]ruleSet{
	FamilyTypeScript: {
		rules: rules(
			`\((?:`+tsKinds+`)\)\s+[\w$.#]+\??\s*:\s*([^|=;\n]+)`,
			`\b(?:let|const|var)\s+[\w$]+\??\s*:\s*([^|=;\n]+)`,
			`:\s*([A-Z][\w$.]*(?:<[^\n]*>)?)`,
		),
	},
	FamilyJava: {
		rules: rules(
			// "Type name - context" where the type may hold commas and nested brackets
			`(?m)^(.+?)\s+[\w$]+\s+-\s+.*$`,
			`(?m)^(.+)\s+[\w$]+\s*$`,
		),
	},
	FamilyPython: {
		rules: rules(
			`\((?:`+pyKinds+`)\)\s+[\w.]+\s*:\s*([^|=\n]+)`,
			`:\s*([^|=,)\n]+)`,
		),
		fixup: func(s string) string {
			return strings.Trim(strings.TrimSpace(s), `"'`)
		},
	},
	FamilyCSharp: {
		rules: rules(
			`(?m)\((?:`+csKinds+`)\)\s+(.+?)\s+@?[\w.]+(?:\s*\{[^}\n]*\})?\s*$`,
			`(?m)^\s*(.+?)\s+@?[A-Za-z_]\w*\s*(?:[;={].*)?$`,
		),
	},
	FamilyGo: {
		rules: rules(
			`(?m)^\s*(?:var|field|const)\s+\w+\s+([^=\n]+?)\s*(?:=[^\n]*?)?\s*(?://[^\n]*)?$`,
		),
		fixup: goFixup,
	},
	FamilyRust: {
		rules: rules(
			`(?:\blet\s+(?:mut\s+)?|\bfield\s+)\w+\s*:\s*([^=\n]+)`,
			`(?:^|[^:]):\s*([^:\s=][^=\n]*)`,
		),
		fixup: rustFixup,
	},
	FamilyKotlin: {
		rules: rules(
			"\\b(?:val|var)\\s+[\\w`]+\\s*:\\s*([^=\\n]+)",
			`:\s*([^=,)\n]+)`,
		),
	},
	FamilyC: {
		rules: []rule{
			{
				re:    regexp.MustCompile(`(?m)^\s*(?:(?:public|private|protected):\s*)?([A-Za-z_][\w:<>, ]*?[\w>])[\s*&]+~?[A-Za-z_][\w:]*\s*\(`),
				guard: hasParenPair,
			},
			{
				re: regexp.MustCompile(`(?m)^\s*(?:(?:public|private|protected):\s*)?([A-Za-z_][\w:<>, ]*?[\w>])[\s*&]+[A-Za-z_]\w*\s*(?:[=;\[{].*)?$`),
			},
		},
	},
	FamilyGeneric: {
		rules: rules(bareColonPattern, leadingTypePattern),
	},
}

func familyRules(f Family) ruleSet {
	if set, ok := families[f]; ok {
		return set
	}
	return families[FamilyGeneric]
}

func hasParenPair(text string) bool {
	open := strings.Index(text, "(")
	return open >= 0 && strings.Contains(text[open:], ")")
}

var goChanPrefixes = []string{"<-chan ", "chan<- ", "chan "}

// goFixup drops gopls spellings that carry no type identity of their own
func goFixup(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "untyped ")
	for _, p := range goChanPrefixes {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

var rustLifetime = regexp.MustCompile(`'[A-Za-z_]\w*\s*`)

func rustFixup(s string) string {
	return rustLifetime.ReplaceAllString(s, "")
}
