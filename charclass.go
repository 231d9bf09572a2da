package guide

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// RuneRange is an inclusive range of codepoints
type RuneRange struct {
	Lo, Hi rune
}

// CharClass is a set of codepoints matched as one UTF-8 encoded
// character.  The ranges are kept sorted and merged so membership is
// a binary search.  ASCII membership is answered by a bitmap, which
// is the common case for grammars derived from JSON and friends.
type CharClass struct {
	Ranges  []RuneRange
	Negated bool

	ascii [16]byte
}

// NewCharClass creates a class from an arbitrary list of ranges.
// Ranges may overlap or come out of order, they are normalized here.
func NewCharClass(negated bool, ranges ...RuneRange) CharClass {
	rs := make([]RuneRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Lo > r.Hi {
			r.Lo, r.Hi = r.Hi, r.Lo
		}
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Lo == rs[j].Lo {
			return rs[i].Hi < rs[j].Hi
		}
		return rs[i].Lo < rs[j].Lo
	})
	merged := rs[:0]
	for _, r := range rs {
		if n := len(merged); n > 0 && r.Lo <= merged[n-1].Hi+1 {
			merged[n-1].Hi = max(merged[n-1].Hi, r.Hi)
			continue
		}
		merged = append(merged, r)
	}
	cc := CharClass{Ranges: merged, Negated: negated}
	for c := rune(0); c < utf8.RuneSelf; c++ {
		if cc.inRanges(c) != negated {
			cc.ascii[c>>3] |= 1 << (c & 7)
		}
	}
	return cc
}

func (cc *CharClass) inRanges(r rune) bool {
	i := sort.Search(len(cc.Ranges), func(i int) bool { return cc.Ranges[i].Hi >= r })
	return i < len(cc.Ranges) && cc.Ranges[i].Lo <= r
}

// Contains reports whether the codepoint `r` belongs to the class
func (cc *CharClass) Contains(r rune) bool {
	if r >= 0 && r < utf8.RuneSelf {
		return cc.ascii[r>>3]&(1<<(r&7)) != 0
	}
	return cc.inRanges(r) != cc.Negated
}

// Intersects reports whether at least one codepoint within [lo, hi]
// belongs to the class.
func (cc *CharClass) Intersects(lo, hi rune) bool {
	i := sort.Search(len(cc.Ranges), func(i int) bool { return cc.Ranges[i].Hi >= lo })
	if !cc.Negated {
		return i < len(cc.Ranges) && cc.Ranges[i].Lo <= hi
	}
	// ranges are merged, so [lo, hi] is fully excluded only when a
	// single range covers it
	covered := i < len(cc.Ranges) && cc.Ranges[i].Lo <= lo && cc.Ranges[i].Hi >= hi
	return !covered
}

// Equal compares the normalized form of two classes
func (cc *CharClass) Equal(other *CharClass) bool {
	if cc.Negated != other.Negated || len(cc.Ranges) != len(other.Ranges) {
		return false
	}
	for i, r := range cc.Ranges {
		if r != other.Ranges[i] {
			return false
		}
	}
	return true
}

func (cc *CharClass) String() string {
	var s strings.Builder
	s.WriteByte('[')
	if cc.Negated {
		s.WriteByte('^')
	}
	for _, r := range cc.Ranges {
		s.WriteString(escapeClassRune(r.Lo))
		if r.Hi != r.Lo {
			s.WriteByte('-')
			s.WriteString(escapeClassRune(r.Hi))
		}
	}
	s.WriteByte(']')
	return s.String()
}

func escapeClassRune(r rune) string {
	switch r {
	case '\\', ']', '-', '^':
		return `\` + string(r)
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	}
	if r < 0x20 || r == 0x7f {
		return fmt.Sprintf(`\x%02x`, r)
	}
	if r > 0xffff {
		return fmt.Sprintf(`\U%08x`, r)
	}
	if r >= 0x80 && !utf8.ValidRune(r) {
		return fmt.Sprintf(`\u%04x`, r)
	}
	return string(r)
}

// utf8Partial holds the bytes of a codepoint that is only partially
// consumed.  Its zero value means no pending bytes.
type utf8Partial struct {
	buf [3]byte
	n   uint8
}

// utf8SeqLen returns the expected length of the sequence started by
// the lead byte `b`, or zero if `b` can't start a sequence.
func utf8SeqLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b >= 0xC2 && b <= 0xDF:
		return 2
	case b >= 0xE0 && b <= 0xEF:
		return 3
	case b >= 0xF0 && b <= 0xF4:
		return 4
	default:
		return 0
	}
}

// utf8SecondRange returns the range accepted for the byte following
// the lead byte `b`.  Restricted ranges exclude overlong encodings,
// surrogates and codepoints past U+10FFFF.
func utf8SecondRange(b byte) (byte, byte) {
	switch b {
	case 0xE0:
		return 0xA0, 0xBF
	case 0xED:
		return 0x80, 0x9F
	case 0xF0:
		return 0x90, 0xBF
	case 0xF4:
		return 0x80, 0x8F
	default:
		return 0x80, 0xBF
	}
}

// step feeds `b` into the partial sequence.  When the sequence is
// complete `done` is true and `r` holds the decoded codepoint.  `ok`
// is false when `b` can't continue a well formed sequence.
func (p utf8Partial) step(b byte) (next utf8Partial, r rune, done, ok bool) {
	if p.n == 0 {
		switch utf8SeqLen(b) {
		case 0:
			return p, 0, false, false
		case 1:
			return p, rune(b), true, true
		}
		next.buf[0] = b
		next.n = 1
		return next, 0, false, true
	}
	lo, hi := byte(0x80), byte(0xBF)
	if p.n == 1 {
		lo, hi = utf8SecondRange(p.buf[0])
	}
	if b < lo || b > hi {
		return p, 0, false, false
	}
	need := utf8SeqLen(p.buf[0])
	if int(p.n)+1 == need {
		var seq [4]byte
		copy(seq[:], p.buf[:p.n])
		seq[p.n] = b
		r, _ = utf8.DecodeRune(seq[:need])
		return utf8Partial{}, r, true, true
	}
	next = p
	next.buf[p.n] = b
	next.n++
	return next, 0, false, true
}

// interval returns the smallest and largest codepoints that can still
// be produced by completing the partial sequence.
func (p utf8Partial) interval() (rune, rune) {
	need := utf8SeqLen(p.buf[0])
	var lo, hi [4]byte
	copy(lo[:], p.buf[:p.n])
	copy(hi[:], p.buf[:p.n])
	for i := int(p.n); i < need; i++ {
		l, h := byte(0x80), byte(0xBF)
		if i == 1 {
			l, h = utf8SecondRange(p.buf[0])
		}
		lo[i], hi[i] = l, h
	}
	rlo, _ := utf8.DecodeRune(lo[:need])
	rhi, _ := utf8.DecodeRune(hi[:need])
	return rlo, rhi
}

// matchClassByte tests if the byte `b` can be consumed by a class
// while the pending prefix is `p`.  It returns the new pending prefix
// and whether the codepoint has been completed.
func matchClassByte(cc *CharClass, p utf8Partial, b byte) (next utf8Partial, done, ok bool) {
	next, r, done, ok := p.step(b)
	if !ok {
		return p, false, false
	}
	if done {
		return next, true, cc.Contains(r)
	}
	lo, hi := next.interval()
	return next, false, cc.Intersects(lo, hi)
}
