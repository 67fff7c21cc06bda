package scanner

import (
	"strconv"

	"github.com/noxlang/nox/lang/token"
)

// number scans a decimal integer literal starting at the current character.
func (s *Scanner) number(pos token.Pos) int64 {
	start := s.off
	for isDigit(s.cur) {
		s.advance()
	}
	lit := string(s.src[start:s.off])
	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		s.error(pos, "integer literal value out of range")
	}
	return v
}
