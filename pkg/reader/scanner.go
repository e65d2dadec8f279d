// Package reader turns heterogeneous vendor byte streams into one canonical
// sequence of callbacks plus a final ReadResult. Framers split the raw body
// into complete wire units; per-family decoders interpret them.
package reader

// Scanner extracts complete top-level JSON objects from an incrementally fed
// byte stream. It tracks brace depth together with string and escape state,
// so braces inside string literals never affect balancing. Bytes between
// objects (array punctuation, commas, whitespace) are discarded. Feed only
// slices at brace boundaries, which are ASCII, so multi-byte UTF-8 sequences
// are never split.
type Scanner struct {
	buf      []byte
	depth    int
	inString bool
	escaped  bool
}

// Feed appends p to the scanner state and returns every complete top-level
// object now available, in order. A trailing partial object stays buffered
// for the next call.
func (s *Scanner) Feed(p []byte) [][]byte {
	var units [][]byte
	for _, b := range p {
		if s.depth == 0 {
			if b == '{' {
				s.depth = 1
				s.buf = append(s.buf, b)
			}
			continue
		}
		s.buf = append(s.buf, b)
		if s.inString {
			switch {
			case s.escaped:
				s.escaped = false
			case b == '\\':
				s.escaped = true
			case b == '"':
				s.inString = false
			}
			continue
		}
		switch b {
		case '"':
			s.inString = true
		case '{':
			s.depth++
		case '}':
			s.depth--
			if s.depth == 0 {
				unit := make([]byte, len(s.buf))
				copy(unit, s.buf)
				units = append(units, unit)
				s.buf = s.buf[:0]
			}
		}
	}
	return units
}

// Pending returns the number of bytes buffered for an incomplete object.
func (s *Scanner) Pending() int {
	return len(s.buf)
}

// Reset discards all buffered state.
func (s *Scanner) Reset() {
	s.buf = s.buf[:0]
	s.depth = 0
	s.inString = false
	s.escaped = false
}
