package wire

import (
	"fmt"
	"strings"

	"github.com/wagiedev/assuan-go/internal/errors"
)

// MaxLineLength is the longest line, without its terminating LF, an Assuan
// peer is required to accept.
const MaxLineLength = 1000

// ValidateName rejects command names that would break the request framing.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", errors.ErrInvalidCommandName)
	}

	if i := strings.IndexAny(name, " \r\n%"); i >= 0 {
		return fmt.Errorf("%w: %q contains %q at offset %d", errors.ErrInvalidCommandName, name, name[i], i)
	}

	return nil
}

// EncodeCommand frames name and args into one request line ending in LF.
func EncodeCommand(name string, args ...[]byte) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	line := make([]byte, 0, len(name)+1+16*len(args))
	line = append(line, name...)

	for _, arg := range args {
		line = append(line, ' ')
		line = append(line, Escape(arg)...)
	}

	if len(line) > MaxLineLength {
		return nil, fmt.Errorf("%w: %s request is %d bytes, limit %d",
			errors.ErrLineTooLong, name, len(line), MaxLineLength)
	}

	return append(line, '\n'), nil
}
