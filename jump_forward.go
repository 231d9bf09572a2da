package guide

// findJumpForward returns the longest continuation of `st` that the
// grammar forces.  It stops where more than one byte is possible,
// where the root can end or after `maxBytes` bytes.  A codepoint left
// incomplete at the end is dropped from the result.
func findJumpForward(e *engine, st *automatonState, maxBytes int) ([]byte, error) {
	var out []byte
	for len(out) < maxBytes && !st.canEnd {
		set := e.nextBytes(st)
		b, ok := set.single()
		if !ok {
			break
		}
		next, err := e.advance(st, b)
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		out = append(out, b)
		st = next
	}
	return trimIncompleteRune(out), nil
}

// trimIncompleteRune drops a trailing multi byte sequence that's
// missing continuation bytes
func trimIncompleteRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-3; i-- {
		if b[i] < 0x80 {
			return b
		}
		if n := utf8SeqLen(b[i]); n > 1 {
			if len(b)-i < n {
				return b[:i]
			}
			return b
		}
	}
	return b
}
