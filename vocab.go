package guide

import (
	"fmt"
	"slices"
)

// Vocabulary holds the decoded bytes of every token a model may
// produce, along with the ids that have a special meaning.  Token ids
// are indices into the vocabulary.
type Vocabulary struct {
	tokens  [][]byte
	size    int
	stop    []int32
	special map[int32]bool
}

type VocabularyOption func(*Vocabulary)

// WithStopTokens sets the ids that end generation.  When absent, the
// vocabulary detects them by name, see DetectStopTokens.
func WithStopTokens(ids ...int32) VocabularyOption {
	return func(v *Vocabulary) { v.stop = append([]int32{}, ids...) }
}

// WithSpecialTokens marks ids that never match grammar content, e.g.
// `<s>` or `<|im_start|>`.
func WithSpecialTokens(ids ...int32) VocabularyOption {
	return func(v *Vocabulary) {
		for _, id := range ids {
			v.special[id] = true
		}
	}
}

// WithVocabSize sets the number of rows of the logits, which may be
// larger than the number of decoded tokens.  Padding ids are treated
// as special tokens.
func WithVocabSize(size int) VocabularyOption {
	return func(v *Vocabulary) { v.size = size }
}

// NewVocabulary creates a vocabulary out of the decoded token bytes
func NewVocabulary(tokens [][]byte, opts ...VocabularyOption) (*Vocabulary, error) {
	v := &Vocabulary{
		tokens:  tokens,
		size:    len(tokens),
		special: make(map[int32]bool),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.size < len(tokens) {
		return nil, &ConfigError{
			Key:     "vocab_size",
			Message: fmt.Sprintf("%d is smaller than the %d decoded tokens", v.size, len(tokens)),
		}
	}
	if v.stop == nil {
		v.stop = DetectStopTokens(tokens)
	}
	for _, id := range v.stop {
		if id < 0 || int(id) >= v.size {
			return nil, &ConfigError{
				Key:     "stop_tokens",
				Message: fmt.Sprintf("token id %d is out of the vocabulary range [0, %d)", id, v.size),
			}
		}
	}
	for id := len(tokens); id < v.size; id++ {
		v.special[int32(id)] = true
	}
	return v, nil
}

// NewVocabularyFromStrings is NewVocabulary for vocabularies whose
// tokens are already plain text
func NewVocabularyFromStrings(tokens []string, opts ...VocabularyOption) (*Vocabulary, error) {
	bs := make([][]byte, len(tokens))
	for i, t := range tokens {
		bs[i] = []byte(t)
	}
	return NewVocabulary(bs, opts...)
}

// wellKnownStopTokens lists the end of sequence markers used by the
// most common model families
var wellKnownStopTokens = []string{
	"</s>",
	"<|endoftext|>",
	"<|eot_id|>",
	"<|im_end|>",
	"<|end|>",
	"<eos>",
	"<|end_of_text|>",
}

// DetectStopTokens returns the ids of the tokens named after a well
// known end of sequence marker
func DetectStopTokens(tokens [][]byte) []int32 {
	ids := []int32{}
	for i, t := range tokens {
		if slices.Contains(wellKnownStopTokens, string(t)) {
			ids = append(ids, int32(i))
		}
	}
	return ids
}

// Size returns the number of ids, including padding
func (v *Vocabulary) Size() int { return v.size }

// Token returns the bytes of the token `id`, nil for padding ids
func (v *Vocabulary) Token(id int32) []byte {
	if int(id) < len(v.tokens) && id >= 0 {
		return v.tokens[id]
	}
	return nil
}

// StopTokens returns a copy of the stop token ids
func (v *Vocabulary) StopTokens() []int32 { return slices.Clone(v.stop) }

func (v *Vocabulary) IsSpecial(id int32) bool { return v.special[id] }

func (v *Vocabulary) IsStop(id int32) bool { return slices.Contains(v.stop, id) }
