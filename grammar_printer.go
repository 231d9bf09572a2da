package guide

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clarete/guide/ascii"
)

type GrammarFormatToken int

const (
	GrammarFormatToken_None GrammarFormatToken = iota
	GrammarFormatToken_Rule
	GrammarFormatToken_Operator
	GrammarFormatToken_Literal
	GrammarFormatToken_Class
)

// FormatFunc decorates a piece of printed output given what it is
type FormatFunc[T any] func(input string, token T) string

var grammarPrinterTheme = map[GrammarFormatToken]string{
	GrammarFormatToken_None:     ascii.Reset,
	GrammarFormatToken_Rule:     ascii.DefaultTheme.Rule,
	GrammarFormatToken_Operator: ascii.DefaultTheme.Operator,
	GrammarFormatToken_Literal:  ascii.DefaultTheme.Literal,
	GrammarFormatToken_Class:    ascii.DefaultTheme.Class,
}

// String prints the grammar in a BNF-like notation, one rule per
// line, root first.
func (g *Grammar) String() string {
	return g.prettyString(func(input string, _ GrammarFormatToken) string {
		return input
	})
}

// HighlightString is String with ANSI colors
func (g *Grammar) HighlightString() string {
	return g.prettyString(func(input string, token GrammarFormatToken) string {
		return grammarPrinterTheme[token] + input + grammarPrinterTheme[GrammarFormatToken_None]
	})
}

func (g *Grammar) prettyString(format FormatFunc[GrammarFormatToken]) string {
	var s strings.Builder

	order := make([]int, 0, len(g.Rules))
	order = append(order, int(g.Root))
	for i := range g.Rules {
		if i != int(g.Root) {
			order = append(order, i)
		}
	}

	for _, i := range order {
		r := g.Rules[i]
		s.WriteString(format(r.Name, GrammarFormatToken_Rule))
		s.WriteString(format(" ::= ", GrammarFormatToken_Operator))
		for j, alt := range r.Alternatives {
			if j > 0 {
				s.WriteString(format(" | ", GrammarFormatToken_Operator))
			}
			g.writeAlternative(&s, alt, format)
		}
		s.WriteString("\n")
	}
	return s.String()
}

func (g *Grammar) writeAlternative(s *strings.Builder, alt Alternative, format FormatFunc[GrammarFormatToken]) {
	if len(alt) == 0 {
		s.WriteString(format(`""`, GrammarFormatToken_Literal))
		return
	}
	var (
		lit   []byte
		first = true
	)
	sep := func() {
		if !first {
			s.WriteString(" ")
		}
		first = false
	}
	flush := func() {
		if len(lit) == 0 {
			return
		}
		sep()
		s.WriteString(format(strconv.Quote(string(lit)), GrammarFormatToken_Literal))
		lit = lit[:0]
	}
	for _, sym := range alt {
		switch sym.Kind {
		case SymbolByteRange:
			if sym.Lo == sym.Hi {
				lit = append(lit, sym.Lo)
				continue
			}
			flush()
			sep()
			s.WriteString(format(fmt.Sprintf(`[\x%02x-\x%02x]`, sym.Lo, sym.Hi), GrammarFormatToken_Class))
		case SymbolCharClass:
			flush()
			sep()
			s.WriteString(format(g.Classes[sym.Class].String(), GrammarFormatToken_Class))
		case SymbolRuleRef:
			flush()
			sep()
			s.WriteString(format(g.Rules[sym.Rule].Name, GrammarFormatToken_Rule))
			if suffix := repeatSuffix(sym.Min, sym.Max); suffix != "" {
				s.WriteString(format(suffix, GrammarFormatToken_Operator))
			}
		}
	}
	flush()
}

func repeatSuffix(lo, hi int32) string {
	switch {
	case lo == 1 && hi == 1:
		return ""
	case lo == 0 && hi == 1:
		return "?"
	case lo == 0 && hi == -1:
		return "*"
	case lo == 1 && hi == -1:
		return "+"
	case hi == -1:
		return fmt.Sprintf("{%d,}", lo)
	case lo == hi:
		return fmt.Sprintf("{%d}", lo)
	default:
		return fmt.Sprintf("{%d,%d}", lo, hi)
	}
}
