package guide

import (
	"sort"
	"strings"
)

// Frame is one level of a partial derivation.  It points at the
// symbol `Pos` of the alternative `Alt` of rule `Rule`.  `Count`
// holds how many times the rule reference at `Pos` has been
// completed, and `Partial` the bytes of a codepoint being matched by
// a character class at `Pos`.
type Frame struct {
	Rule    int32
	Alt     int32
	Pos     int32
	Count   int32
	Partial utf8Partial
}

// path is a stack of frames with the innermost derivation on top.
// Paths are never modified in place, every operation returns a new
// slice, so states can share them freely.
type path []Frame

func (p path) top() Frame {
	return p[len(p)-1]
}

// push returns a copy of the path with `f` on top
func (p path) push(f Frame) path {
	np := make(path, len(p)+1)
	copy(np, p)
	np[len(p)] = f
	return np
}

// replaceTop returns a copy of the path with its top swapped by `f`
func (p path) replaceTop(f Frame) path {
	np := make(path, len(p))
	copy(np, p)
	np[len(p)-1] = f
	return np
}

// pop returns the path without its top.  The capacity is clipped so
// appending to the result never writes over the shared array.
func (p path) pop() path {
	n := len(p) - 1
	return p[:n:n]
}

// key encodes the path into a string usable as a map key
func (p path) key() string {
	var s strings.Builder
	s.Grow(len(p) * 20)
	for _, f := range p {
		writeInt32(&s, f.Rule)
		writeInt32(&s, f.Alt)
		writeInt32(&s, f.Pos)
		writeInt32(&s, f.Count)
		s.WriteByte(f.Partial.n)
		s.Write(f.Partial.buf[:])
	}
	return s.String()
}

func writeInt32(s *strings.Builder, v int32) {
	s.WriteByte(byte(v))
	s.WriteByte(byte(v >> 8))
	s.WriteByte(byte(v >> 16))
	s.WriteByte(byte(v >> 24))
}

// automatonState is the set of derivation paths alive after the
// input consumed so far.  Every path is paused at a symbol that reads
// input.  `canEnd` is set when the root rule can be complete at this
// point.
type automatonState struct {
	paths  []path
	keys   []string
	canEnd bool
}

// newAutomatonState sorts paths by key so equal sets of paths always
// yield the same signature.  Keys must be unique.
func newAutomatonState(paths []path, keys []string, canEnd bool) *automatonState {
	st := &automatonState{paths: paths, keys: keys, canEnd: canEnd}
	sort.Sort(st)
	return st
}

func (st *automatonState) Len() int           { return len(st.paths) }
func (st *automatonState) Less(i, j int) bool { return st.keys[i] < st.keys[j] }
func (st *automatonState) Swap(i, j int) {
	st.paths[i], st.paths[j] = st.paths[j], st.paths[i]
	st.keys[i], st.keys[j] = st.keys[j], st.keys[i]
}

// dead reports whether no input can ever be accepted from here and
// the root can't end either
func (st *automatonState) dead() bool {
	return len(st.paths) == 0 && !st.canEnd
}

// signature identifies the state exactly.  Two states with the same
// signature admit the same continuations.
func (st *automatonState) signature() string {
	var s strings.Builder
	if st.canEnd {
		s.WriteByte(1)
	} else {
		s.WriteByte(0)
	}
	for _, k := range st.keys {
		writeInt32(&s, int32(len(k)))
		s.WriteString(k)
	}
	return s.String()
}
