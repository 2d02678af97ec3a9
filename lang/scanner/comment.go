package scanner

// comment consumes a comment body; the leading "--" has already been
// consumed by the caller. It handles both short "-- ..." line comments and
// long "--[[ ... ]]"/"--[=[ ... ]=]" comments. The result is discarded by
// Scan: comments never become a Lexeme.
func (s *Scanner) comment() {
	save := s.snapshot()
	if s.advanceIf('[') {
		var level int
		for s.advanceIf('=') {
			level++
		}
		if s.advanceIf('[') {
			s.longComment(level)
			return
		}
		s.restore(save)
	}

	for s.cur != '\n' && s.cur != eof {
		s.advance()
	}
}

func (s *Scanner) longComment(level int) {
	// opening sequence already consumed: '-', '-', '[', level '='s, '['
	startOff, startLine, startCol := s.off-(level+4), s.line, s.col-(level+4)
	s.sb.Reset()

	closeLevel := -1
	closeStartOff := 0
	for s.cur != eof {
		if s.advanceIf(']') {
			closeStartOff = s.off - 1
			closeLevel = 0
			for s.advanceIf('=') {
				closeLevel++
			}
			if !s.advanceIf(']') {
				closeLevel = -1
			}
			if closeLevel > -1 && closeLevel == level {
				break
			}
			closeLevel = -1
			s.sb.Write(s.src[closeStartOff:s.off])
			continue
		}
		s.sb.WriteRune(s.cur)
		s.advance()
	}

	if closeLevel == -1 {
		s.error(startOff, startLine, startCol, "long comment not terminated")
	}
}
