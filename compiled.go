package guide

import (
	"bytes"
	"fmt"
	"sort"
)

// CompiledGrammar bundles a validated grammar with the vocabulary it
// constrains.  It holds no mutable state and can be shared by any
// number of matchers running on different goroutines.
type CompiledGrammar struct {
	grammar  *Grammar
	vocab    *Vocabulary
	nullable []bool

	// sorted holds the ids of the tokens that may match grammar
	// content, ordered by their bytes
	sorted []sortedToken

	// maxTokenLen is the length of the longest token in `sorted`
	maxTokenLen int
}

type sortedToken struct {
	id int32

	// lcp is the length of the longest common prefix with the
	// previous entry of the sorted list
	lcp int32
}

// Compile validates `g` and prepares the vocabulary trie used to
// compute token masks.
func Compile(g *Grammar, vocab *Vocabulary) (*CompiledGrammar, error) {
	if vocab == nil {
		return nil, &ConfigError{Key: "vocabulary", Message: "nil vocabulary"}
	}
	if err := Validate(g); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	cg := &CompiledGrammar{
		grammar:  g,
		vocab:    vocab,
		nullable: nullableRules(g),
	}

	for id, tok := range vocab.tokens {
		if cg.excluded(int32(id)) {
			continue
		}
		cg.sorted = append(cg.sorted, sortedToken{id: int32(id)})
		cg.maxTokenLen = max(cg.maxTokenLen, len(tok))
	}
	sort.SliceStable(cg.sorted, func(i, j int) bool {
		return bytes.Compare(vocab.tokens[cg.sorted[i].id], vocab.tokens[cg.sorted[j].id]) < 0
	})
	for i := 1; i < len(cg.sorted); i++ {
		prev := vocab.tokens[cg.sorted[i-1].id]
		curr := vocab.tokens[cg.sorted[i].id]
		cg.sorted[i].lcp = int32(commonPrefixLen(prev, curr))
	}
	return cg, nil
}

// excluded reports whether token `id` can never be matched against
// the grammar, either because it's a stop or special token, or
// because it has no bytes at all.
func (cg *CompiledGrammar) excluded(id int32) bool {
	return cg.vocab.IsSpecial(id) || cg.vocab.IsStop(id) || len(cg.vocab.Token(id)) == 0
}

func (cg *CompiledGrammar) Grammar() *Grammar       { return cg.grammar }
func (cg *CompiledGrammar) Vocabulary() *Vocabulary { return cg.vocab }

func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
