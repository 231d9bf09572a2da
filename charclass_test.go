package guide

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCharClassNormalizes(t *testing.T) {
	cc := NewCharClass(false,
		RuneRange{'c', 'e'},
		RuneRange{'a', 'b'},
		RuneRange{'x', 'x'},
		RuneRange{'z', 'y'},
	)
	want := []RuneRange{{'a', 'e'}, {'x', 'z'}}
	if diff := cmp.Diff(want, cc.Ranges); diff != "" {
		t.Errorf("ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestCharClassContains(t *testing.T) {
	tests := []struct {
		name      string
		class     CharClass
		contains  []rune
		doesntHas []rune
	}{
		{
			name:      "ascii",
			class:     NewCharClass(false, RuneRange{'a', 'z'}, RuneRange{'_', '_'}),
			contains:  []rune{'a', 'm', 'z', '_'},
			doesntHas: []rune{'A', '0', 'é', '日'},
		},
		{
			name:      "unicode",
			class:     NewCharClass(false, RuneRange{'α', 'ω'}, RuneRange{'é', 'é'}),
			contains:  []rune{'α', 'β', 'ω', 'é'},
			doesntHas: []rune{'a', 'è', 'Ω'},
		},
		{
			name:      "negated",
			class:     NewCharClass(true, RuneRange{'"', '"'}, RuneRange{'\\', '\\'}, RuneRange{0, 0x1f}),
			contains:  []rune{'a', ' ', '日', 0x10FFFF},
			doesntHas: []rune{'"', '\\', '\n', 0},
		},
		{
			name:      "any",
			class:     NewCharClass(true),
			contains:  []rune{0, 'a', 'é', '日', 0x10FFFF},
			doesntHas: []rune{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, r := range tc.contains {
				assert.True(t, tc.class.Contains(r), "%s should contain %q", tc.class.String(), r)
			}
			for _, r := range tc.doesntHas {
				assert.False(t, tc.class.Contains(r), "%s should not contain %q", tc.class.String(), r)
			}
		})
	}
}

func TestCharClassIntersects(t *testing.T) {
	lower := NewCharClass(false, RuneRange{'a', 'z'})
	assert.True(t, lower.Intersects('a', 'b'))
	assert.True(t, lower.Intersects(0, 'a'))
	assert.False(t, lower.Intersects(0x80, 0x7FF))
	assert.False(t, lower.Intersects('A', 'Z'))

	notLower := NewCharClass(true, RuneRange{'a', 'z'})
	assert.False(t, notLower.Intersects('a', 'z'))
	assert.False(t, notLower.Intersects('c', 'd'))
	assert.True(t, notLower.Intersects('a', '{'))
	assert.True(t, notLower.Intersects(0x80, 0x7FF))
}

func TestCharClassString(t *testing.T) {
	tests := []struct {
		class    CharClass
		expected string
	}{
		{NewCharClass(true, RuneRange{'\\', '\\'}, RuneRange{'"', '"'}), `[^"\\]`},
		{NewCharClass(false, RuneRange{'a', 'c'}, RuneRange{'x', 'x'}), `[a-cx]`},
		{NewCharClass(false, RuneRange{'\t', '\n'}, RuneRange{'-', '-'}), `[\t-\n\-]`},
		{NewCharClass(false, RuneRange{'α', 'ω'}), `[α-ω]`},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, tc.class.String())
	}
}

func TestUTF8PartialStep(t *testing.T) {
	var p utf8Partial

	next, r, done, ok := p.step('a')
	require.True(t, ok)
	require.True(t, done)
	assert.Equal(t, 'a', r)
	assert.Equal(t, utf8Partial{}, next)

	// é is C3 A9
	next, _, done, ok = p.step(0xC3)
	require.True(t, ok)
	require.False(t, done)
	assert.Equal(t, uint8(1), next.n)

	next, r, done, ok = next.step(0xA9)
	require.True(t, ok)
	require.True(t, done)
	assert.Equal(t, 'é', r)
	assert.Equal(t, utf8Partial{}, next)

	// 日 is E6 97 A5
	p = utf8Partial{}
	for i, b := range []byte{0xE6, 0x97} {
		p, _, done, ok = p.step(b)
		require.True(t, ok, "byte %d", i)
		require.False(t, done, "byte %d", i)
	}
	_, r, done, ok = p.step(0xA5)
	require.True(t, ok)
	require.True(t, done)
	assert.Equal(t, '日', r)
}

func TestUTF8PartialRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"continuation as lead", []byte{0x80}},
		{"overlong two bytes", []byte{0xC0}},
		{"overlong C1", []byte{0xC1}},
		{"lead past U+10FFFF", []byte{0xF5}},
		{"overlong three bytes", []byte{0xE0, 0x80}},
		{"surrogate", []byte{0xED, 0xA0}},
		{"overlong four bytes", []byte{0xF0, 0x80}},
		{"past U+10FFFF", []byte{0xF4, 0x90}},
		{"ascii instead of continuation", []byte{0xC3, 'a'}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var (
				p  utf8Partial
				ok bool
			)
			for i, b := range tc.input {
				p, _, _, ok = p.step(b)
				if i < len(tc.input)-1 {
					require.True(t, ok, "byte %d should be accepted", i)
				}
			}
			assert.False(t, ok)
		})
	}
}

func TestUTF8PartialInterval(t *testing.T) {
	tests := []struct {
		prefix []byte
		lo, hi rune
	}{
		{[]byte{0xC3}, 0xC0, 0xFF},
		{[]byte{0xE0}, 0x800, 0xFFF},
		{[]byte{0xED}, 0xD000, 0xD7FF},
		{[]byte{0xE6, 0x97}, 0x65C0, 0x65FF},
		{[]byte{0xF0}, 0x10000, 0x3FFFF},
		{[]byte{0xF4}, 0x100000, 0x10FFFF},
		{[]byte{0xF0, 0x9F, 0x98}, 0x1F600, 0x1F63F},
	}
	for _, tc := range tests {
		var p utf8Partial
		for _, b := range tc.prefix {
			var ok bool
			p, _, _, ok = p.step(b)
			require.True(t, ok)
		}
		lo, hi := p.interval()
		assert.Equal(t, tc.lo, lo, "lo for % x", tc.prefix)
		assert.Equal(t, tc.hi, hi, "hi for % x", tc.prefix)
	}
}

func TestMatchClassByte(t *testing.T) {
	greek := NewCharClass(false, RuneRange{'α', 'ω'}) // CE B1 .. CF 89

	p, done, ok := matchClassByte(&greek, utf8Partial{}, 0xCE)
	require.True(t, ok)
	require.False(t, done)

	_, _, ok = matchClassByte(&greek, p, 0x80)
	assert.False(t, ok, "U+0380 is before α")

	_, done, ok = matchClassByte(&greek, p, 0xB1)
	assert.True(t, ok)
	assert.True(t, done)

	_, _, ok = matchClassByte(&greek, utf8Partial{}, 0xC3)
	assert.False(t, ok, "no latin-1 codepoint is greek")

	_, _, ok = matchClassByte(&greek, utf8Partial{}, 'a')
	assert.False(t, ok)

	notQuote := NewCharClass(true, RuneRange{'"', '"'})
	_, done, ok = matchClassByte(&notQuote, utf8Partial{}, 0xE6)
	assert.True(t, ok)
	assert.False(t, done)
	_, _, ok = matchClassByte(&notQuote, utf8Partial{}, '"')
	assert.False(t, ok)
}
