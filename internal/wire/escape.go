package wire

import (
	"bytes"
	"fmt"

	"github.com/wagiedev/assuan-go/internal/errors"
)

const hexDigits = "0123456789ABCDEF"

// needsEscape reports whether b may not appear literally in an argument.
func needsEscape(b byte) bool {
	return b == '\r' || b == '\n' || b == '%' || b == ' '
}

// Escape percent-escapes CR, LF, '%' and space using uppercase hex digits.
// All other bytes pass through unchanged. The result never shares memory
// with src.
func Escape(src []byte) []byte {
	n := 0

	for _, b := range src {
		if needsEscape(b) {
			n++
		}
	}

	if n == 0 {
		return bytes.Clone(src)
	}

	dst := make([]byte, 0, len(src)+2*n)

	for _, b := range src {
		if needsEscape(b) {
			dst = append(dst, '%', hexDigits[b>>4], hexDigits[b&0x0F])

			continue
		}

		dst = append(dst, b)
	}

	return dst
}

// Unescape decodes every %XX sequence in src. Hex digits of either case are
// accepted.
func Unescape(src []byte) ([]byte, error) {
	dst := make([]byte, 0, len(src))

	for i := 0; i < len(src); i++ {
		if src[i] != '%' {
			dst = append(dst, src[i])

			continue
		}

		if i+2 >= len(src) {
			return nil, fmt.Errorf("%w at offset %d: truncated", errors.ErrMalformedEscape, i)
		}

		hi, okHi := unhex(src[i+1])
		lo, okLo := unhex(src[i+2])

		if !okHi || !okLo {
			return nil, fmt.Errorf("%w at offset %d: %q", errors.ErrMalformedEscape, i, src[i:i+3])
		}

		dst = append(dst, hi<<4|lo)
		i += 2
	}

	return dst, nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}

	return 0, false
}
