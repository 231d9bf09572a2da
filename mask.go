package guide

import (
	"math"
)

// computeMask returns the packed mask of the tokens admissible from
// `st`.  The sorted vocabulary is walked keeping one state per prefix
// depth, so tokens sharing a prefix with the previous one only replay
// the bytes that differ.  Once a prefix is rejected, every following
// token that shares it is skipped without replaying anything.
//
// Stop tokens are not handled here, the caller sets them according to
// its own stop token list.
func computeMask(cg *CompiledGrammar, e *engine, st *automatonState, words int) ([]int32, error) {
	var (
		mask       = make([]int32, words)
		states     = make([]*automatonState, cg.maxTokenLen+1)
		valid      = 0
		rejectedAt = math.MaxInt
	)
	states[0] = st

	for _, entry := range cg.sorted {
		tok := cg.vocab.tokens[entry.id]
		lcp := int(entry.lcp)

		// `valid` is the depth up to which `states` matches the
		// prefix of the current token
		valid = min(valid, lcp)
		if lcp >= rejectedAt {
			continue
		}
		rejectedAt = math.MaxInt

		accepted := true
		for i := valid; i < len(tok); i++ {
			next, err := e.advance(states[i], tok[i])
			if err != nil {
				return nil, err
			}
			if next == nil {
				rejectedAt = i + 1
				accepted = false
				break
			}
			states[i+1] = next
			valid = i + 1
		}
		if accepted {
			setBit(mask, entry.id)
		}
	}
	return mask, nil
}
