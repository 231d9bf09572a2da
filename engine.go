package guide

import (
	"errors"
	"fmt"

	"github.com/clarete/guide/logutil"
)

// engine runs the pushdown automaton described by a grammar one byte
// at a time.  It holds no state of its own, every call takes and
// returns immutable automaton states.
type engine struct {
	grammar  *Grammar
	maxDepth int
}

func newEngine(g *Grammar, maxDepth int) *engine {
	return &engine{grammar: g, maxDepth: maxDepth}
}

// start returns the state before any input is consumed
func (e *engine) start() (*automatonState, error) {
	var (
		root     = e.grammar.Root
		worklist = make([]path, 0, len(e.grammar.Rules[root].Alternatives))
	)
	for i := range e.grammar.Rules[root].Alternatives {
		worklist = append(worklist, path{{Rule: root, Alt: int32(i)}})
	}
	return e.closure(worklist)
}

// advance consumes the byte `b` from every path of `st`.  It returns
// nil when no path accepts the byte, or when accepting it would need
// more than `maxDepth` frames.
func (e *engine) advance(st *automatonState, b byte) (*automatonState, error) {
	var worklist []path
	for _, p := range st.paths {
		f := p.top()
		sym := e.grammar.Rules[f.Rule].Alternatives[f.Alt][f.Pos]
		switch sym.Kind {
		case SymbolByteRange:
			if b < sym.Lo || b > sym.Hi {
				continue
			}
			f.Pos++
		case SymbolCharClass:
			partial, done, ok := matchClassByte(&e.grammar.Classes[sym.Class], f.Partial, b)
			if !ok {
				continue
			}
			f.Partial = partial
			if done {
				f.Pos++
				f.Partial = utf8Partial{}
			}
		}
		worklist = append(worklist, p.replaceTop(f))
	}
	if len(worklist) == 0 {
		return nil, nil
	}
	next, err := e.closure(worklist)
	if errors.Is(err, errStackDepth) {
		logutil.Trace("byte rejected", "byte", b, "error", err)
		return nil, nil
	}
	if err != nil || next.dead() {
		return nil, err
	}
	return next, nil
}

// advanceBytes consumes all of `input`, returning nil as soon as a
// byte is rejected
func (e *engine) advanceBytes(st *automatonState, input []byte) (*automatonState, error) {
	var err error
	for _, b := range input {
		if st, err = e.advance(st, b); st == nil || err != nil {
			return nil, err
		}
	}
	return st, nil
}

// closure walks every path in `worklist` until it's paused at a
// symbol that reads input.  Completed alternatives return to their
// parent, which counts the repetition, and rule references fork one
// path per alternative of the referenced rule.  Paths already seen
// are dropped, which is also what stops loops over nullable rules.
func (e *engine) closure(worklist []path) (*automatonState, error) {
	var (
		visited = make(map[string]struct{})
		paths   []path
		keys    []string
		canEnd  bool
	)
	for len(worklist) > 0 {
		p := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if len(p) == 0 {
			canEnd = true
			continue
		}
		key := p.key()
		if _, ok := visited[key]; ok {
			continue
		}
		visited[key] = struct{}{}

		f := p.top()
		alt := e.grammar.Rules[f.Rule].Alternatives[f.Alt]

		if int(f.Pos) == len(alt) {
			// alternative completed, count one more repetition of
			// the reference that called it
			parent := p.pop()
			if len(parent) == 0 {
				canEnd = true
				continue
			}
			pf := parent.top()
			ref := e.grammar.Rules[pf.Rule].Alternatives[pf.Alt][pf.Pos]
			pf.Count++
			if ref.Max == -1 && pf.Count > ref.Min {
				pf.Count = ref.Min
			}
			worklist = append(worklist, parent.replaceTop(pf))
			continue
		}

		sym := alt[f.Pos]
		if sym.consumes() {
			paths = append(paths, p)
			keys = append(keys, key)
			continue
		}

		if f.Count >= sym.Min {
			skip := f
			skip.Pos++
			skip.Count = 0
			worklist = append(worklist, p.replaceTop(skip))
		}
		if sym.Max != -1 && f.Count >= sym.Max {
			continue
		}

		// the last repetition of a reference at the end of an
		// alternative doesn't need its caller anymore
		base := p
		if int(f.Pos) == len(alt)-1 && sym.Max != -1 && f.Count+1 >= sym.Max {
			base = p.pop()
		}
		if len(base)+1 > e.maxDepth {
			return nil, &InternalError{
				Message: fmt.Sprintf("derivation of rule `%s` exceeds the maximum stack depth of %d",
					e.grammar.Rules[sym.Rule].Name, e.maxDepth),
				Err: errStackDepth,
			}
		}
		for i := range e.grammar.Rules[sym.Rule].Alternatives {
			worklist = append(worklist, base.push(Frame{Rule: sym.Rule, Alt: int32(i)}))
		}
	}
	return newAutomatonState(paths, keys, canEnd), nil
}

// nextBytes returns the set of bytes accepted by at least one path
func (e *engine) nextBytes(st *automatonState) byteSet {
	var set byteSet
	for _, p := range st.paths {
		f := p.top()
		sym := e.grammar.Rules[f.Rule].Alternatives[f.Alt][f.Pos]
		switch sym.Kind {
		case SymbolByteRange:
			for b := int(sym.Lo); b <= int(sym.Hi); b++ {
				set.add(byte(b))
			}
		case SymbolCharClass:
			cc := &e.grammar.Classes[sym.Class]
			for b := 0; b < 256; b++ {
				if _, _, ok := matchClassByte(cc, f.Partial, byte(b)); ok {
					set.add(byte(b))
				}
			}
		}
	}
	return set
}

// byteSet is a bitmap with one bit per byte value
type byteSet [4]uint64

func (s *byteSet) add(b byte)      { s[b>>6] |= 1 << (b & 63) }
func (s *byteSet) has(b byte) bool { return s[b>>6]&(1<<(b&63)) != 0 }

// single returns the only byte of the set, if it holds exactly one
func (s *byteSet) single() (byte, bool) {
	var (
		found byte
		n     int
	)
	for i := 0; i < 256; i++ {
		if s.has(byte(i)) {
			found = byte(i)
			n++
			if n > 1 {
				return 0, false
			}
		}
	}
	return found, n == 1
}
