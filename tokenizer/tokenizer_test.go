package tokenizer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarete/guide"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		surface  string
		typ      VocabType
		expected string
	}{
		{"raw", "hello ▁", Raw, "hello ▁"},
		{"metaspace", "▁hello▁world", ByteFallback, " hello world"},
		{"fallback byte", "<0xE6>", ByteFallback, "\xe6"},
		{"fallback lowercase hex", "<0x0a>", ByteFallback, "\n"},
		{"not a fallback byte", "<0xZZ>", ByteFallback, "<0xZZ>"},
		{"byte level space", "Ġhello", ByteLevel, " hello"},
		{"byte level newline", "Ċ", ByteLevel, "\n"},
		{"byte level printable", "{\"", ByteLevel, "{\""},
		{"byte level split codepoint", "æĹ", ByteLevel, "\xe6\x97"},
		{"byte level latin", "Ã©", ByteLevel, "é"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, []byte(tc.expected), Decode(tc.surface, tc.typ))
		})
	}
}

func TestByteLevelTable(t *testing.T) {
	seen := make(map[rune]bool)
	for b := 0; b < 256; b++ {
		r := byteToRune[b]
		assert.False(t, seen[r], "rune %q is used twice", r)
		seen[r] = true
		assert.Equal(t, byte(b), runeToByte[r])
	}
	assert.Equal(t, 'Ġ', byteToRune[' '])
	assert.Equal(t, 'Ċ', byteToRune['\n'])
	assert.Equal(t, 'a', byteToRune['a'])

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	assert.Equal(t, all, Decode(Encode(all, ByteLevel), ByteLevel))
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "▁a▁b", Encode([]byte(" a b"), ByteFallback))
	assert.Equal(t, "<0xE6>", Encode([]byte{0xe6}, ByteFallback))
	assert.Equal(t, "abc", Encode([]byte("abc"), Raw))
}

func TestVocabType(t *testing.T) {
	for _, typ := range []VocabType{Raw, ByteFallback, ByteLevel} {
		parsed, err := ParseVocabType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	_, err := ParseVocabType("wordpiece")
	assert.Error(t, err)
	assert.Equal(t, "VocabType(9)", VocabType(9).String())
}

const bpeTokenizer = `{
  "version": "1.0",
  "added_tokens": [
    {"id": 0, "content": "<|endoftext|>", "special": true},
    {"id": 6, "content": "<|im_start|>", "special": true},
    {"id": 7, "content": "Ġhello", "special": false}
  ],
  "pre_tokenizer": {"type": "ByteLevel", "add_prefix_space": false},
  "decoder": {"type": "ByteLevel"},
  "model": {
    "type": "BPE",
    "vocab": {"<|endoftext|>": 0, "{\"": 1, "Ġ": 2, "Ċ": 3, "æĹ": 4, "¥": 5},
    "merges": []
  }
}`

const unigramTokenizer = `{
  "added_tokens": [
    {"id": 2, "content": "</s>", "special": true}
  ],
  "decoder": {
    "type": "Sequence",
    "decoders": [
      {"type": "Replace", "pattern": {"String": "▁"}, "content": " "},
      {"type": "ByteFallback"},
      {"type": "Fuse"}
    ]
  },
  "model": {
    "type": "Unigram",
    "byte_fallback": true,
    "vocab": [["<unk>", 0.0], ["<s>", 0.0], ["</s>", 0.0], ["▁true", -1.5], ["<0xE6>", -9.0], ["\"", -2.0]]
  }
}`

func TestParseHuggingFace(t *testing.T) {
	t.Run("bpe", func(t *testing.T) {
		info, err := ParseHuggingFace([]byte(bpeTokenizer))
		require.NoError(t, err)
		assert.Equal(t, ByteLevel, info.Type)
		assert.Equal(t, []int32{0, 6}, info.Special)
		expected := []string{"<|endoftext|>", `{"`, "Ġ", "Ċ", "æĹ", "¥", "<|im_start|>", "Ġhello"}
		if diff := cmp.Diff(expected, info.Tokens); diff != "" {
			t.Errorf("tokens mismatch (-want +got):\n%s", diff)
		}

		v, err := info.Vocabulary()
		require.NoError(t, err)
		assert.Equal(t, []int32{0}, v.StopTokens())
		assert.True(t, v.IsSpecial(6))
		assert.Equal(t, []byte(" "), v.Token(2))
		assert.Equal(t, []byte("\n"), v.Token(3))
		assert.Equal(t, []byte("\xe6\x97"), v.Token(4))
		assert.Equal(t, []byte("\xa5"), v.Token(5))
		assert.Equal(t, []byte(" hello"), v.Token(7))
	})

	t.Run("unigram", func(t *testing.T) {
		info, err := ParseHuggingFace([]byte(unigramTokenizer))
		require.NoError(t, err)
		assert.Equal(t, ByteFallback, info.Type)
		assert.Equal(t, []int32{2}, info.Special)

		v, err := info.Vocabulary(guide.WithVocabSize(8), guide.WithSpecialTokens(0, 1))
		require.NoError(t, err)
		assert.Equal(t, 8, v.Size())
		assert.Equal(t, []int32{2}, v.StopTokens())
		assert.True(t, v.IsSpecial(0))
		assert.True(t, v.IsSpecial(7))
		assert.Equal(t, []byte(" true"), v.Token(3))
		assert.Equal(t, []byte{0xe6}, v.Token(4))
	})

	t.Run("raw", func(t *testing.T) {
		info, err := ParseHuggingFace([]byte(`{"model": {"type": "WordLevel", "vocab": {"a": 0, "c": 2}}}`))
		require.NoError(t, err)
		assert.Equal(t, Raw, info.Type)
		assert.Equal(t, []string{"a", "", "c"}, info.Tokens)
		assert.Empty(t, info.Special)
	})
}

func TestParseHuggingFaceErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no model", `{"version": "1.0"}`},
		{"vocab is a string", `{"model": {"vocab": "nope"}}`},
		{"negative id", `{"model": {"vocab": {"a": -1}}}`},
		{"id isn't a number", `{"model": {"vocab": {"a": "x"}}}`},
		{"piece without a string", `{"model": {"vocab": [[1, 0.0]]}}`},
		{"added token without id", `{"model": {"vocab": {"a": 0}}, "added_tokens": [{"content": "b"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHuggingFace([]byte(tc.input))
			assert.Error(t, err)
		})
	}

	_, err := ParseHuggingFace([]byte(`{}`))
	assert.True(t, errors.Is(err, ErrNoVocabulary))
}

func TestLoadHuggingFace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	require.NoError(t, os.WriteFile(path, []byte(bpeTokenizer), 0o644))

	info, err := LoadHuggingFace(path)
	require.NoError(t, err)
	assert.Len(t, info.Tokens, 8)

	_, err = LoadHuggingFace(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// TestMatcherOverByteLevelVocabulary drives a matcher with tokens that
// split a codepoint, the way byte level vocabularies do
func TestMatcherOverByteLevelVocabulary(t *testing.T) {
	info, err := ParseHuggingFace([]byte(bpeTokenizer))
	require.NoError(t, err)
	v, err := info.Vocabulary()
	require.NoError(t, err)

	g, err := guide.ParseEBNFString(`root = "{\"" "日" .`, "root")
	require.NoError(t, err)
	cg, err := guide.Compile(g, v)
	require.NoError(t, err)
	m, err := guide.NewGrammarMatcher(cg, nil)
	require.NoError(t, err)

	for _, id := range []int32{1, 4, 5} {
		ok, err := m.AcceptToken(id)
		require.NoError(t, err)
		require.True(t, ok, "token %d", id)
	}
	assert.Equal(t, guide.AwaitingStop, m.State())
}
