package guide

import (
	"github.com/emirpasic/gods/lists/doublylinkedlist"
)

// history keeps the states that preceded the most recent accepted
// steps, oldest first.  When full, pushing evicts the oldest entry.
type history struct {
	states   *doublylinkedlist.List
	capacity int
}

func newHistory(capacity int) *history {
	return &history{states: doublylinkedlist.New(), capacity: capacity}
}

// push records `st` as the state prior to a new step
func (h *history) push(st *automatonState) {
	if h.capacity == 0 {
		return
	}
	if h.states.Size() == h.capacity {
		h.states.Remove(0)
	}
	h.states.Add(st)
}

// rollback returns the state as of `n` steps ago and forgets every
// step after it.  `n` must be between 1 and len().
func (h *history) rollback(n int) *automatonState {
	idx := h.states.Size() - n
	v, _ := h.states.Get(idx)
	for h.states.Size() > idx {
		h.states.Remove(h.states.Size() - 1)
	}
	return v.(*automatonState)
}

func (h *history) len() int { return h.states.Size() }

func (h *history) clear() { h.states.Clear() }
