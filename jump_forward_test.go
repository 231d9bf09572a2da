package guide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindJumpForward(t *testing.T) {
	tests := []struct {
		name     string
		grammar  string
		prefix   string
		maxBytes int
		expected string
	}{
		{"literal", `start = "hello world" .`, "", 4096, "hello world"},
		{"after a prefix", `start = "hello world" .`, "hel", 4096, "lo world"},
		{"choice at the start", `start = "yes" | "no" .`, "", 4096, ""},
		{"shared prefix", `start = "value: " ( "yes" | "no" ) .`, "", 4096, "value: "},
		{"capped", `start = "hello world" .`, "", 3, "hel"},
		{"disabled", `start = "hello world" .`, "", 0, ""},
		{"stops where the root can end", `start = "ab" [ "cd" ] .`, "", 4096, "ab"},
		{"multi byte", `start = "日本" .`, "", 4096, "日本"},
		{"incomplete codepoint is trimmed", `start = "a日本" .`, "", 5, "a日"},
		{"classes sharing a lead byte", `start = "[" ( "Ā" … "Ŀ" ) "]" .`, "", 4096, "["},
		{"forced by a nested rule", `start = "(" inner ")" . inner = "in" .`, "", 4096, "(in)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(parseGrammar(t, tc.grammar, "start"))
			st := feed(t, e, tc.prefix)
			require.NotNil(t, st)

			out, err := findJumpForward(e, st, tc.maxBytes)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(out))

			// the jump-forward string is always a valid continuation
			assert.NotNil(t, feed(t, e, tc.prefix+string(out)))
		})
	}
}

// TestFindJumpForwardSingleCodepointClass covers classes admitting a
// single codepoint, which the EBNF front end never produces
func TestFindJumpForwardSingleCodepointClass(t *testing.T) {
	b := NewGrammarBuilder()
	root := b.AddRule("root")
	b.AddAlternative(root,
		b.Literal("["),
		b.Class(false, RuneRange{'x', 'x'}),
		b.Class(false, RuneRange{'é', 'é'}),
		b.Literal("]"),
	)
	g, err := b.Build("root")
	require.NoError(t, err)

	e := newTestEngine(g)
	st := feed(t, e, "")
	require.NotNil(t, st)
	out, err := findJumpForward(e, st, 4096)
	require.NoError(t, err)
	assert.Equal(t, "[xé]", string(out))
	assert.True(t, feed(t, e, string(out)).canEnd)
}

func TestTrimIncompleteRune(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"abc", "abc"},
		{"a\xe6", "a"},
		{"a\xe6\x97", "a"},
		{"a\xe6\x97\xa5", "a\xe6\x97\xa5"},
		{"\xf0\x9f\x98", ""},
		{"é", "é"},
		{"a\xc3", "a"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, string(trimIncompleteRune([]byte(tc.input))), "input %q", tc.input)
	}
}

func TestMatcherFindJumpForward(t *testing.T) {
	cg := compileTestGrammar(t, `root = "{\"name\": \"" name "\"}" . name = "a" | "b" .`, "root",
		[]string{"<eos>", "{", `"`, "a", "b", "}", `{"name": "`, `"}`})
	cfg := NewConfig()
	cfg.SetInt("matcher.max_rollback_tokens", 2)
	m, err := NewGrammarMatcher(cg, cfg)
	require.NoError(t, err)

	jump, err := m.FindJumpForwardString()
	require.NoError(t, err)
	assert.Equal(t, `{"name": "`, jump)

	ok, err := m.AcceptString(jump)
	require.NoError(t, err)
	require.True(t, ok)

	jump, err = m.FindJumpForwardString()
	require.NoError(t, err)
	assert.Empty(t, jump, "`a` and `b` are both possible")

	acceptAll(t, m, 4)
	jump, err = m.FindJumpForwardString()
	require.NoError(t, err)
	assert.Equal(t, `"}`, jump)

	ok, err = m.AcceptString(jump)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, AwaitingStop, m.State())

	jump, err = m.FindJumpForwardString()
	require.NoError(t, err)
	assert.Empty(t, jump)

	acceptAll(t, m, 0)
	_, err = m.FindJumpForwardString()
	assert.ErrorIs(t, err, ErrTerminated)
}
