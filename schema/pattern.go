package schema

import (
	"fmt"
	"regexp/syntax"
	"strconv"
	"strings"
	"unicode"
)

// pattern returns a string expression whose body matches the regular
// expression `re`.  The expression is anchored at both ends, and
// characters that need escaping in JSON are matched in escaped form.
func (g *generator) pattern(re, location string) (string, error) {
	parsed, err := syntax.Parse(re, syntax.Perl)
	if err != nil {
		return "", fmt.Errorf("schema: pattern at %s: %w", location, err)
	}
	body, err := regexExpr(parsed.Simplify(), location)
	if err != nil {
		return "", err
	}
	return seq(`"\""`, body, `"\""`), nil
}

func regexExpr(re *syntax.Regexp, location string) (string, error) {
	switch re.Op {
	case syntax.OpEmptyMatch, syntax.OpBeginText, syntax.OpEndText, syntax.OpBeginLine, syntax.OpEndLine:
		return "", nil

	case syntax.OpNoMatch:
		return "", &UnsupportedError{Keyword: "pattern: " + re.String(), Location: location}

	case syntax.OpLiteral:
		parts := make([]string, len(re.Rune))
		for i, r := range re.Rune {
			if re.Flags&syntax.FoldCase != 0 {
				parts[i] = classExpr(foldRanges(r))
			} else {
				parts[i] = classExpr([]rune{r, r})
			}
		}
		return seq(parts...), nil

	case syntax.OpCharClass:
		return classExpr(re.Rune), nil

	case syntax.OpAnyCharNotNL:
		return classExpr([]rune{0, '\n' - 1, '\n' + 1, unicode.MaxRune}), nil

	case syntax.OpAnyChar:
		return classExpr([]rune{0, unicode.MaxRune}), nil

	case syntax.OpCapture:
		return regexExpr(re.Sub[0], location)

	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest:
		sub, err := regexExpr(re.Sub[0], location)
		if err != nil || sub == "" {
			return "", err
		}
		switch re.Op {
		case syntax.OpStar:
			return "{ " + sub + " }", nil
		case syntax.OpPlus:
			return sub + " { " + sub + " }", nil
		default:
			return "[ " + sub + " ]", nil
		}

	case syntax.OpConcat:
		parts := make([]string, 0, len(re.Sub))
		for _, sub := range re.Sub {
			part, err := regexExpr(sub, location)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return seq(parts...), nil

	case syntax.OpAlternate:
		alts := make([]string, 0, len(re.Sub))
		nullable := false
		for _, sub := range re.Sub {
			alt, err := regexExpr(sub, location)
			if err != nil {
				return "", err
			}
			if alt == "" {
				nullable = true
				continue
			}
			alts = append(alts, alt)
		}
		switch {
		case len(alts) == 0:
			return "", nil
		case nullable:
			return "[ " + strings.Join(alts, " | ") + " ]", nil
		default:
			return "( " + strings.Join(alts, " | ") + " )", nil
		}
	}
	return "", &UnsupportedError{Keyword: "pattern: " + re.Op.String(), Location: location}
}

// foldRanges returns the ranges of every case of `r`
func foldRanges(r rune) []rune {
	ranges := []rune{r, r}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		ranges = append(ranges, f, f)
	}
	return ranges
}

// jsonEscapes holds the short escapes of control characters, the
// others use the `\u00XX` form
var jsonEscapes = map[rune]string{
	'"':  `\"`,
	'\\': `\\`,
	'\b': `\b`,
	'\f': `\f`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

// classExpr matches one character out of `ranges`, pairs of
// inclusive bounds as used by regexp/syntax.  Surrogates are skipped
// and characters JSON requires to be escaped are matched escaped.
func classExpr(ranges []rune) string {
	var alts []string
	plain := func(lo, hi rune) {
		switch {
		case lo > hi:
		case lo == hi:
			alts = append(alts, strconv.Quote(string(lo)))
		default:
			alts = append(alts, strconv.Quote(string(lo))+" … "+strconv.Quote(string(hi)))
		}
	}
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		for r := lo; r <= min(hi, 0x1F); r++ {
			alts = append(alts, strconv.Quote(escapeRune(r)))
		}
		lo = max(lo, 0x20)

		// split around the quote, the backslash and the surrogates
		for _, cut := range [][2]rune{{'"', '"'}, {'\\', '\\'}, {0xD800, 0xDFFF}} {
			if lo > hi || hi < cut[0] || lo > cut[1] {
				continue
			}
			plain(lo, cut[0]-1)
			if cut[0] == cut[1] {
				alts = append(alts, strconv.Quote(escapeRune(cut[0])))
			}
			lo = cut[1] + 1
		}
		plain(lo, hi)
	}
	if len(alts) == 1 {
		return alts[0]
	}
	return "( " + strings.Join(alts, " | ") + " )"
}

func escapeRune(r rune) string {
	if e, ok := jsonEscapes[r]; ok {
		return e
	}
	if r < 0x20 {
		return fmt.Sprintf(`\u%04x`, r)
	}
	return string(r)
}
