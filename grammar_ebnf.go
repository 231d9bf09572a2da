package guide

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/ebnf"
)

// ParseEBNF reads a grammar written in the EBNF dialect understood by
// golang.org/x/exp/ebnf and lowers it into a Grammar rooted at the
// production `start`.
//
//	json  = value .
//	value = "true" | "false" | "null" | digit { digit } .
//	digit = "0" … "9" .
//
// Groups, options and repetitions become auxiliary rules referenced
// with the matching repetition bounds.  Ranges become character
// classes and alternations made only of single characters or ranges
// are folded into a single class.
func ParseEBNF(name string, src io.Reader, start string) (*Grammar, error) {
	grammar, err := ebnf.Parse(name, src)
	if err != nil {
		return nil, &GrammarError{Message: fmt.Sprintf("parse %s: %s", name, err)}
	}
	if err := ebnf.Verify(grammar, start); err != nil {
		return nil, &GrammarError{Message: fmt.Sprintf("verify %s: %s", name, err)}
	}

	l := &ebnfLowering{
		builder: NewGrammarBuilder(),
		names:   make(map[string]bool, len(grammar)),
		aux:     make(map[string]int),
	}
	names := make([]string, 0, len(grammar))
	for n := range grammar {
		names = append(names, n)
		l.names[n] = true
	}
	sort.Strings(names)

	// declare every production first so ids follow the sorted
	// order instead of the order references are found
	for _, n := range names {
		l.builder.AddRule(n)
	}
	for _, n := range names {
		l.production = n
		if err := l.lowerRule(l.builder.AddRule(n), grammar[n].Expr); err != nil {
			return nil, &GrammarError{Rule: n, Message: err.Error()}
		}
	}
	return l.builder.Build(start)
}

// ParseEBNFString is ParseEBNF for grammars held in memory
func ParseEBNFString(src, start string) (*Grammar, error) {
	return ParseEBNF("grammar", strings.NewReader(src), start)
}

type ebnfLowering struct {
	builder    *GrammarBuilder
	names      map[string]bool
	aux        map[string]int
	production string
}

// lowerRule adds to `rule` one alternative per branch of `expr`
func (l *ebnfLowering) lowerRule(rule int32, expr ebnf.Expression) error {
	if alt, ok := expr.(ebnf.Alternative); ok {
		if ranges, ok := charAlternative(alt); ok {
			l.builder.AddAlternative(rule, l.builder.Class(false, ranges...))
			return nil
		}
		for _, branch := range alt {
			seq, err := l.lowerSequence(branch)
			if err != nil {
				return err
			}
			l.builder.AddAlternative(rule, seq)
		}
		return nil
	}
	seq, err := l.lowerSequence(expr)
	if err != nil {
		return err
	}
	l.builder.AddAlternative(rule, seq)
	return nil
}

// lowerSequence returns the symbols matching `expr` in place
func (l *ebnfLowering) lowerSequence(expr ebnf.Expression) (Alternative, error) {
	switch e := expr.(type) {
	case nil:
		return Alternative{}, nil

	case ebnf.Sequence:
		var seq Alternative
		for _, item := range e {
			part, err := l.lowerSequence(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, part...)
		}
		return seq, nil

	case ebnf.Alternative:
		if ranges, ok := charAlternative(e); ok {
			return l.builder.Class(false, ranges...), nil
		}
		rule, err := l.auxRule(e)
		if err != nil {
			return nil, err
		}
		return l.builder.Ref(rule), nil

	case *ebnf.Name:
		return l.builder.RefName(e.String), nil

	case *ebnf.Token:
		return l.builder.Literal(e.String), nil

	case *ebnf.Range:
		lo, hi, err := rangeBounds(e)
		if err != nil {
			return nil, err
		}
		if hi < utf8.RuneSelf {
			return l.builder.ByteRange(byte(lo), byte(hi)), nil
		}
		return l.builder.Class(false, RuneRange{lo, hi}), nil

	case *ebnf.Group:
		return l.lowerSequence(e.Body)

	case *ebnf.Option:
		rule, err := l.bodyRule(e.Body)
		if err != nil {
			return nil, err
		}
		return l.builder.Optional(rule), nil

	case *ebnf.Repetition:
		rule, err := l.bodyRule(e.Body)
		if err != nil {
			return nil, err
		}
		return l.builder.Star(rule), nil

	default:
		return nil, fmt.Errorf("unsupported expression %T", expr)
	}
}

// bodyRule returns the rule to be repeated for an option or a
// repetition.  Bodies that are a plain name reuse that rule.
func (l *ebnfLowering) bodyRule(body ebnf.Expression) (int32, error) {
	if n, ok := body.(*ebnf.Name); ok {
		return l.builder.AddRule(n.String), nil
	}
	if g, ok := body.(*ebnf.Group); ok {
		return l.bodyRule(g.Body)
	}
	return l.auxRule(body)
}

func (l *ebnfLowering) auxRule(body ebnf.Expression) (int32, error) {
	var name string
	for {
		l.aux[l.production]++
		name = fmt.Sprintf("%s_%d", l.production, l.aux[l.production])
		if !l.names[name] {
			break
		}
	}
	l.names[name] = true
	rule := l.builder.AddRule(name)
	return rule, l.lowerRule(rule, body)
}

// charAlternative returns the ranges of an alternation where every
// branch matches exactly one character
func charAlternative(alt ebnf.Alternative) ([]RuneRange, bool) {
	ranges := make([]RuneRange, 0, len(alt))
	for _, branch := range alt {
		switch e := branch.(type) {
		case *ebnf.Token:
			r, size := utf8.DecodeRuneInString(e.String)
			if size == 0 || size != len(e.String) || r == utf8.RuneError {
				return nil, false
			}
			ranges = append(ranges, RuneRange{r, r})
		case *ebnf.Range:
			lo, hi, err := rangeBounds(e)
			if err != nil {
				return nil, false
			}
			ranges = append(ranges, RuneRange{lo, hi})
		default:
			return nil, false
		}
	}
	return ranges, true
}

func rangeBounds(r *ebnf.Range) (rune, rune, error) {
	lo, n := utf8.DecodeRuneInString(r.Begin.String)
	if n == 0 || n != len(r.Begin.String) {
		return 0, 0, fmt.Errorf("range start must be a single character: %q", r.Begin.String)
	}
	hi, n := utf8.DecodeRuneInString(r.End.String)
	if n == 0 || n != len(r.End.String) {
		return 0, 0, fmt.Errorf("range end must be a single character: %q", r.End.String)
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("inverted range %q … %q", r.Begin.String, r.End.String)
	}
	return lo, hi, nil
}
