package guide

import "fmt"

// GrammarBuilder assembles a Grammar programmatically.  Rules may be
// referenced before they're defined, AddRule returns the same id for
// the same name.
//
//	b := NewGrammarBuilder()
//	root := b.AddRule("root")
//	b.AddAlternative(root, b.Literal("true"))
//	b.AddAlternative(root, b.Literal("false"))
//	g, err := b.Build("root")
type GrammarBuilder struct {
	rules   []Rule
	ids     map[string]int32
	defined []bool
	classes []CharClass
}

func NewGrammarBuilder() *GrammarBuilder {
	return &GrammarBuilder{ids: make(map[string]int32)}
}

// AddRule declares the rule `name` if it's not known yet and returns
// its id.
func (b *GrammarBuilder) AddRule(name string) int32 {
	if id, ok := b.ids[name]; ok {
		return id
	}
	id := int32(len(b.rules))
	b.rules = append(b.rules, Rule{Name: name})
	b.defined = append(b.defined, false)
	b.ids[name] = id
	return id
}

// AddAlternative appends to `rule` the sequence made of all the
// `parts` concatenated.  No parts produce the empty alternative.
func (b *GrammarBuilder) AddAlternative(rule int32, parts ...Alternative) {
	var alt Alternative
	for _, p := range parts {
		alt = append(alt, p...)
	}
	if alt == nil {
		alt = Alternative{}
	}
	b.rules[rule].Alternatives = append(b.rules[rule].Alternatives, alt)
	b.defined[rule] = true
}

// Literal matches the bytes of `s` verbatim
func (b *GrammarBuilder) Literal(s string) Alternative {
	alt := make(Alternative, 0, len(s))
	for i := 0; i < len(s); i++ {
		alt = append(alt, Symbol{Kind: SymbolByteRange, Lo: s[i], Hi: s[i]})
	}
	return alt
}

func (b *GrammarBuilder) Byte(c byte) Alternative {
	return Alternative{{Kind: SymbolByteRange, Lo: c, Hi: c}}
}

func (b *GrammarBuilder) ByteRange(lo, hi byte) Alternative {
	return Alternative{{Kind: SymbolByteRange, Lo: lo, Hi: hi}}
}

// Class matches one codepoint within (or outside of, when `negated`)
// the given ranges.  Equal classes share storage.
func (b *GrammarBuilder) Class(negated bool, ranges ...RuneRange) Alternative {
	cc := NewCharClass(negated, ranges...)
	for i := range b.classes {
		if b.classes[i].Equal(&cc) {
			return Alternative{{Kind: SymbolCharClass, Class: int32(i)}}
		}
	}
	b.classes = append(b.classes, cc)
	return Alternative{{Kind: SymbolCharClass, Class: int32(len(b.classes) - 1)}}
}

// Ref expands `rule` exactly once
func (b *GrammarBuilder) Ref(rule int32) Alternative {
	return b.Repeat(rule, 1, 1)
}

// RefName is a shortcut for referencing a rule by its name
func (b *GrammarBuilder) RefName(name string) Alternative {
	return b.Ref(b.AddRule(name))
}

// Repeat expands `rule` at least `lo` and at most `hi` times.  Pass
// -1 as `hi` for no upper bound.
func (b *GrammarBuilder) Repeat(rule int32, lo, hi int32) Alternative {
	return Alternative{{Kind: SymbolRuleRef, Rule: rule, Min: lo, Max: hi}}
}

func (b *GrammarBuilder) Optional(rule int32) Alternative { return b.Repeat(rule, 0, 1) }
func (b *GrammarBuilder) Star(rule int32) Alternative     { return b.Repeat(rule, 0, -1) }
func (b *GrammarBuilder) Plus(rule int32) Alternative     { return b.Repeat(rule, 1, -1) }

// Build finishes the grammar with `root` as its entry rule and runs
// the structural validation on it.
func (b *GrammarBuilder) Build(root string) (*Grammar, error) {
	id, ok := b.ids[root]
	if !ok {
		return nil, &GrammarError{Rule: root, Message: "root rule is not defined"}
	}
	for i, d := range b.defined {
		if !d {
			return nil, &GrammarError{
				Rule:    b.rules[i].Name,
				Message: "referenced but never defined",
			}
		}
	}
	g := &Grammar{
		Rules:   make([]Rule, len(b.rules)),
		Classes: append([]CharClass(nil), b.classes...),
		Root:    id,
	}
	for i, r := range b.rules {
		alts := make([]Alternative, len(r.Alternatives))
		for j, a := range r.Alternatives {
			alts[j] = append(Alternative{}, a...)
		}
		g.Rules[i] = Rule{Name: r.Name, Alternatives: alts}
	}
	if err := Validate(g); err != nil {
		return nil, fmt.Errorf("build grammar: %w", err)
	}
	return g, nil
}
