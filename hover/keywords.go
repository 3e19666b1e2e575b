package hover

// denylist holds lower-cased words that are never reported as a type.
// "map" is deliberately absent: it is the collapsed form of Go map types.
var denylist = map[string]struct{}{}

// modifiers are stripped when they lead a candidate and are followed by more text
var modifiers = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"const", "let", "var", "val", "function", "func", "def", "fn",
		"class", "struct", "interface", "type", "enum", "union",
		"public", "private", "protected", "internal", "static", "final",
		"readonly", "abstract", "override", "virtual", "async", "await",
		"void", "return", "new", "this", "self", "super",
		"mut", "pub", "impl", "dyn", "extern", "volatile", "unsigned", "signed",
		"inline", "constexpr", "field", "property", "parameter", "variable",
		"method", "module", "package", "import", "namespace", "using",
		"null", "undefined", "none", "nil", "true", "false",
	} {
		denylist[w] = struct{}{}
	}

	for _, w := range []string{
		"public", "private", "protected", "internal", "static", "final",
		"readonly", "abstract", "override", "virtual", "sealed", "partial",
		"const", "volatile", "mutable", "register", "extern", "inline", "constexpr",
		"unsigned", "signed", "struct", "class", "enum", "union", "typename",
		"mut", "dyn", "impl", "ref", "out", "params", "lateinit", "transient",
		"keyof", "unique",
	} {
		modifiers[w] = struct{}{}
	}
}

// IsKeyword reports whether word is on the denylist, ignoring case
func IsKeyword(word string) bool {
	_, ok := denylist[toLower(word)]
	return ok
}
