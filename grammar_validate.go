package guide

import (
	"fmt"
	"strings"
)

// Validate checks the structural invariants the matching engine
// relies upon: indices within bounds, sane repetition bounds, no
// rule without alternatives and no left recursion.
func Validate(g *Grammar) error {
	if g == nil {
		return &GrammarError{Message: "nil grammar"}
	}
	if len(g.Rules) == 0 {
		return &GrammarError{Message: "grammar has no rules"}
	}
	if g.Root < 0 || int(g.Root) >= len(g.Rules) {
		return &GrammarError{Message: fmt.Sprintf("root rule index %d out of range", g.Root)}
	}
	for _, r := range g.Rules {
		if len(r.Alternatives) == 0 {
			return &GrammarError{Rule: r.Name, Message: "rule has no alternatives"}
		}
		for _, alt := range r.Alternatives {
			for _, s := range alt {
				if err := validateSymbol(g, s); err != nil {
					return &GrammarError{Rule: r.Name, Message: err.Error()}
				}
			}
		}
	}
	if cycle := findLeftRecursion(g, nullableRules(g)); cycle != nil {
		names := make([]string, len(cycle))
		for i, id := range cycle {
			names[i] = g.Rules[id].Name
		}
		return &GrammarError{
			Rule:    names[0],
			Message: "left recursion through " + strings.Join(names, " -> "),
		}
	}
	return nil
}

func validateSymbol(g *Grammar, s Symbol) error {
	switch s.Kind {
	case SymbolByteRange:
		if s.Lo > s.Hi {
			return fmt.Errorf("inverted byte range [%#x-%#x]", s.Lo, s.Hi)
		}
	case SymbolCharClass:
		if s.Class < 0 || int(s.Class) >= len(g.Classes) {
			return fmt.Errorf("character class index %d out of range", s.Class)
		}
	case SymbolRuleRef:
		if s.Rule < 0 || int(s.Rule) >= len(g.Rules) {
			return fmt.Errorf("rule index %d out of range", s.Rule)
		}
		if s.Min < 0 {
			return fmt.Errorf("negative repetition minimum %d", s.Min)
		}
		if s.Max == 0 || (s.Max != -1 && s.Max < s.Min) {
			return fmt.Errorf("invalid repetition bounds {%d,%d}", s.Min, s.Max)
		}
	default:
		return fmt.Errorf("unknown symbol kind %d", s.Kind)
	}
	return nil
}

// nullableRules computes which rules can match the empty string
func nullableRules(g *Grammar) []bool {
	nullable := make([]bool, len(g.Rules))
	for changed := true; changed; {
		changed = false
		for i, r := range g.Rules {
			if nullable[i] {
				continue
			}
			for _, alt := range r.Alternatives {
				if altNullable(alt, nullable, len(alt)) {
					nullable[i] = true
					changed = true
					break
				}
			}
		}
	}
	return nullable
}

// altNullable reports whether the first `n` symbols of `alt` can all
// match the empty string
func altNullable(alt Alternative, nullable []bool, n int) bool {
	for _, s := range alt[:n] {
		if !symbolNullable(s, nullable) {
			return false
		}
	}
	return true
}

func symbolNullable(s Symbol, nullable []bool) bool {
	return s.Kind == SymbolRuleRef && (s.Min == 0 || nullable[s.Rule])
}

// findLeftRecursion returns the rules forming a cycle in the left
// corner graph, or nil if there's none.  An edge goes from a rule to
// every rule it references after a nullable prefix.
func findLeftRecursion(g *Grammar, nullable []bool) []int32 {
	edges := make([][]int32, len(g.Rules))
	for i, r := range g.Rules {
		for _, alt := range r.Alternatives {
			for _, s := range alt {
				if s.Kind != SymbolRuleRef {
					break
				}
				edges[i] = append(edges[i], s.Rule)
				if !symbolNullable(s, nullable) {
					break
				}
			}
		}
	}

	const (
		white = iota
		grey
		black
	)
	var (
		color = make([]int, len(g.Rules))
		stack []int32
		visit func(int32) []int32
	)
	visit = func(id int32) []int32 {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range edges[id] {
			switch color[next] {
			case grey:
				for i, s := range stack {
					if s == next {
						return append(append([]int32{}, stack[i:]...), next)
					}
				}
			case white:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}
	for i := range g.Rules {
		if color[i] == white {
			if cycle := visit(int32(i)); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
