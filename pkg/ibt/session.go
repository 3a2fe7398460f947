package ibt

import (
	"fmt"
	"strings"
)

// Placeholder replaces bytes of the session block that are not printable text.
const Placeholder = '?'

// ParseSessionInfo renders the session text block located by the header.
//
// The range read is [offset-1, offset+length). Reference captures have not confirmed
// whether the header offset is 1-based, so the extra leading byte is kept.
func ParseSessionInfo(buf []byte, offset, length uint32) (string, error) {
	if offset == 0 {
		return "", fmt.Errorf("session info offset 0: %w", ErrOutOfBounds)
	}
	start := uint64(offset) - 1
	end := uint64(offset) + uint64(length)
	if end > uint64(len(buf)) {
		return "", fmt.Errorf("session info [%d,%d) exceeds %d bytes: %w", start, end, len(buf), ErrOutOfBounds)
	}

	var b strings.Builder
	b.Grow(int(end - start))
	for _, c := range buf[start:end] {
		if isPrintable(c) {
			b.WriteByte(c)
		} else {
			b.WriteByte(Placeholder)
		}
	}
	return b.String(), nil
}

func isPrintable(c byte) bool {
	switch {
	case c >= 0x20 && c <= 0x7e:
		return true
	case c == '\n', c == '\r', c == '\t':
		return true
	}
	return false
}
