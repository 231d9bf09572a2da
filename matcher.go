package guide

import (
	"fmt"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/clarete/guide/logutil"
)

// TerminationState tells whether a matcher still takes input
type TerminationState int

const (
	// Active means the grammar needs more input before it can end
	Active TerminationState = iota

	// AwaitingStop means the root rule is complete, so a stop
	// token is accepted, but more content may still follow
	AwaitingStop

	// Terminated means a stop token was accepted, or that the root
	// rule completed and the matcher was told not to wait for a
	// stop token.  Only Reset leaves this state.
	Terminated
)

func (s TerminationState) String() string {
	switch s {
	case Active:
		return "active"
	case AwaitingStop:
		return "awaiting-stop"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("TerminationState(%d)", int(s))
	}
}

// GrammarMatcher tracks the tokens generated so far and tells which
// tokens may come next.  A matcher must be used by one goroutine at a
// time, but any number of matchers may share a CompiledGrammar.
type GrammarMatcher struct {
	compiled *CompiledGrammar
	engine   *engine

	stop                 []int32
	terminateWithoutStop bool
	maxRollback          int
	jumpMaxBytes         int
	words                int

	initial      *automatonState
	state        *automatonState
	stopAccepted bool
	history      *history
	masks        *lru.Cache[string, []int32]

	log logutil.Scope
}

// matchers numbers the matchers created, for logging
var matchers atomic.Uint64

// NewGrammarMatcher creates a matcher at the start of `g`.  The
// relevant settings of `cfg` are read once here, a nil `cfg` uses the
// defaults of NewConfig.
func NewGrammarMatcher(g *CompiledGrammar, cfg *Config) (*GrammarMatcher, error) {
	if g == nil {
		return nil, &ConfigError{Key: "grammar", Message: "the grammar must be compiled before creating a matcher"}
	}
	if cfg == nil {
		cfg = NewConfig()
	}
	m := &GrammarMatcher{
		compiled:             g,
		terminateWithoutStop: cfg.GetBool("matcher.terminate_without_stop_token"),
		maxRollback:          cfg.GetInt("matcher.max_rollback_tokens"),
		jumpMaxBytes:         cfg.GetInt("jump_forward.max_bytes"),
		log:                  logutil.NewScope("matcher", matchers.Add(1)),
	}
	if m.maxRollback < 0 {
		return nil, &ConfigError{Key: "matcher.max_rollback_tokens", Message: "must not be negative"}
	}
	if m.jumpMaxBytes < 0 {
		return nil, &ConfigError{Key: "jump_forward.max_bytes", Message: "must not be negative"}
	}
	depth := cfg.GetInt("matcher.max_stack_depth")
	if depth <= 0 {
		return nil, &ConfigError{Key: "matcher.max_stack_depth", Message: "must be positive"}
	}

	if cfg.Has("matcher.override_stop_tokens") {
		for _, id := range cfg.GetInts("matcher.override_stop_tokens") {
			if id < 0 || id >= g.vocab.Size() {
				return nil, &ConfigError{
					Key:     "matcher.override_stop_tokens",
					Message: fmt.Sprintf("token id %d is out of the vocabulary range [0, %d)", id, g.vocab.Size()),
				}
			}
			m.stop = append(m.stop, int32(id))
		}
	} else {
		m.stop = g.vocab.StopTokens()
	}
	slices.Sort(m.stop)
	m.stop = slices.Compact(m.stop)
	if len(m.stop) == 0 && !m.terminateWithoutStop {
		return nil, &ConfigError{
			Key:     "matcher.override_stop_tokens",
			Message: "no stop tokens available and matcher.terminate_without_stop_token is false",
		}
	}

	if size := cfg.GetInt("matcher.mask_cache_size"); size > 0 {
		cache, err := lru.New[string, []int32](size)
		if err != nil {
			return nil, fmt.Errorf("mask cache: %w", err)
		}
		m.masks = cache
	} else if size < 0 {
		return nil, &ConfigError{Key: "matcher.mask_cache_size", Message: "must not be negative"}
	}

	m.engine = newEngine(g.grammar, depth)
	initial, err := m.engine.start()
	if err != nil {
		return nil, err
	}
	_, m.words = BitmaskShape(1, g.vocab.Size())
	m.initial = initial
	m.state = initial
	m.history = newHistory(m.maxRollback)
	return m, nil
}

// State returns where the matcher is in its lifecycle
func (m *GrammarMatcher) State() TerminationState {
	switch {
	case m.stopAccepted:
		return Terminated
	case m.state.canEnd && m.terminateWithoutStop:
		return Terminated
	case m.state.canEnd:
		return AwaitingStop
	default:
		return Active
	}
}

func (m *GrammarMatcher) IsTerminated() bool {
	return m.State() == Terminated
}

// AcceptToken advances the matcher over the bytes of token `id`.  It
// returns false, leaving the matcher untouched, when the grammar
// rejects the token.  Errors are reserved for misuse: a terminated
// matcher or an id out of the vocabulary.
func (m *GrammarMatcher) AcceptToken(id int32) (bool, error) {
	if m.IsTerminated() {
		return false, ErrTerminated
	}
	if id < 0 || int(id) >= m.compiled.vocab.Size() {
		return false, fmt.Errorf("%w: %d not in [0, %d)", ErrTokenOutOfRange, id, m.compiled.vocab.Size())
	}

	if m.isStop(id) {
		if !m.state.canEnd {
			m.log.Trace("stop token rejected", "id", id, "state", m.State())
			return false, nil
		}
		m.history.push(m.state)
		m.stopAccepted = true
		m.log.Trace("stop token accepted", "id", id)
		return true, nil
	}
	if m.compiled.excluded(id) {
		m.log.Trace("token can't match grammar content", "id", id)
		return false, nil
	}

	tok := m.compiled.vocab.Token(id)
	next, err := m.engine.advanceBytes(m.state, tok)
	if err != nil {
		return false, err
	}
	if next == nil {
		m.log.Trace("token rejected", "id", id, "bytes", string(tok))
		return false, nil
	}
	m.history.push(m.state)
	m.state = next
	m.log.Trace("token accepted", "id", id, "bytes", string(tok), "paths", len(next.paths), "state", m.State())
	return true, nil
}

// AcceptString advances the matcher over `s` as a single step, all
// or nothing.  It's used to insert jump-forward strings.  The empty
// string is always accepted and doesn't count as a step.
func (m *GrammarMatcher) AcceptString(s string) (bool, error) {
	if m.IsTerminated() {
		return false, ErrTerminated
	}
	if s == "" {
		return true, nil
	}
	next, err := m.engine.advanceBytes(m.state, []byte(s))
	if err != nil {
		return false, err
	}
	if next == nil {
		m.log.Trace("string rejected", "input", s)
		return false, nil
	}
	m.history.push(m.state)
	m.state = next
	m.log.Trace("string accepted", "input", s, "paths", len(next.paths), "state", m.State())
	return true, nil
}

// FillNextTokenBitmask writes to row `index` of `b` the mask of the
// tokens that may come next.  The matcher isn't modified.
func (m *GrammarMatcher) FillNextTokenBitmask(b *TokenBitmask, index int) error {
	if m.IsTerminated() {
		return ErrTerminated
	}
	if err := b.check(index, m.compiled.vocab.Size()); err != nil {
		return err
	}
	mask, err := m.nextMask()
	if err != nil {
		return err
	}
	row := b.Row(index)
	n := copy(row, mask)
	clear(row[n:])
	return nil
}

// nextMask returns the mask of the current state, which must not be
// modified by the caller
func (m *GrammarMatcher) nextMask() ([]int32, error) {
	var sig string
	if m.masks != nil {
		sig = m.state.signature()
		if mask, ok := m.masks.Get(sig); ok {
			return mask, nil
		}
	}
	mask, err := computeMask(m.compiled, m.engine, m.state, m.words)
	if err != nil {
		return nil, err
	}
	for _, id := range m.stop {
		if m.state.canEnd {
			setBit(mask, id)
		} else {
			clearBit(mask, id)
		}
	}
	if m.masks != nil {
		m.log.Debug("token mask computed", "paths", len(m.state.paths), "can_end", m.state.canEnd, "cached", m.masks.Len())
		m.masks.Add(sig, mask)
	}
	return mask, nil
}

// FindJumpForwardString returns the longest string the grammar forces
// from the current state.  The matcher isn't modified.
func (m *GrammarMatcher) FindJumpForwardString() (string, error) {
	if m.IsTerminated() {
		return "", ErrTerminated
	}
	out, err := findJumpForward(m.engine, m.state, m.jumpMaxBytes)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Rollback undoes the last `n` accepted steps.  It fails if `n` is
// larger than the number of steps kept, which is bounded by
// `matcher.max_rollback_tokens`.  Terminated matchers can't roll back.
func (m *GrammarMatcher) Rollback(n int) error {
	if m.IsTerminated() {
		return ErrTerminated
	}
	if n < 0 || n > m.history.len() {
		return &RollbackError{Requested: n, Available: m.history.len(), Max: m.maxRollback}
	}
	if n == 0 {
		return nil
	}
	m.state = m.history.rollback(n)
	m.log.Trace("rolled back", "steps", n, "available", m.history.len(), "state", m.State())
	return nil
}

// Reset brings the matcher back to the start of the grammar and
// forgets its history.  Cached masks are kept.
func (m *GrammarMatcher) Reset() {
	m.state = m.initial
	m.stopAccepted = false
	m.history.clear()
}

func (m *GrammarMatcher) MaxRollbackTokens() int { return m.maxRollback }

// StopTokenIDs returns the tokens that terminate the matcher
func (m *GrammarMatcher) StopTokenIDs() []int32 { return slices.Clone(m.stop) }

func (m *GrammarMatcher) isStop(id int32) bool {
	_, found := slices.BinarySearch(m.stop, id)
	return found
}
