package guide

// SymbolKind tells how a symbol consumes input
type SymbolKind uint8

const (
	// SymbolByteRange consumes a single byte within [Lo, Hi]
	SymbolByteRange SymbolKind = iota

	// SymbolCharClass consumes one UTF-8 encoded codepoint that
	// belongs to the class `Class`
	SymbolCharClass

	// SymbolRuleRef expands the rule `Rule` between `Min` and
	// `Max` times.  `Max` is -1 when unbounded.
	SymbolRuleRef
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolByteRange:
		return "ByteRange"
	case SymbolCharClass:
		return "CharClass"
	case SymbolRuleRef:
		return "RuleRef"
	default:
		return "Unknown"
	}
}

// Symbol is an element of an alternative.  Which fields are
// meaningful depends on its Kind.
type Symbol struct {
	Kind SymbolKind

	Lo, Hi byte

	Class int32

	Rule     int32
	Min, Max int32
}

// consumes reports whether the symbol reads input directly instead
// of delegating to another rule
func (s Symbol) consumes() bool {
	return s.Kind != SymbolRuleRef
}

// Alternative is a sequence of symbols
type Alternative []Symbol

// Rule is a named alternation of sequences
type Rule struct {
	Name         string
	Alternatives []Alternative
}

// Grammar is the immutable representation consumed by Compile.
// Character classes are stored once and referenced by index from the
// symbols that use them.
type Grammar struct {
	Rules   []Rule
	Classes []CharClass
	Root    int32
}

// RuleByName returns the index of the rule named `name`
func (g *Grammar) RuleByName(name string) (int32, bool) {
	for i, r := range g.Rules {
		if r.Name == name {
			return int32(i), true
		}
	}
	return 0, false
}

// RootName returns the name of the entry rule
func (g *Grammar) RootName() string {
	if int(g.Root) < len(g.Rules) && g.Root >= 0 {
		return g.Rules[g.Root].Name
	}
	return ""
}
