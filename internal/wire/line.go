package wire

import (
	"bytes"
	"fmt"

	"github.com/wagiedev/assuan-go/internal/errors"
)

// LineKind identifies the type of a response line.
type LineKind int

const (
	// LineOK terminates a call successfully.
	LineOK LineKind = iota + 1
	// LineErr terminates a call with a remote failure.
	LineErr
	// LineData carries a chunk of the call's payload.
	LineData
	// LineStatus carries a progress or status notification.
	LineStatus
	// LineComment is ignored.
	LineComment
	// LineInquire asks the client for more data.
	LineInquire
)

func (k LineKind) String() string {
	switch k {
	case LineOK:
		return "OK"
	case LineErr:
		return "ERR"
	case LineData:
		return "D"
	case LineStatus:
		return "S"
	case LineComment:
		return "#"
	case LineInquire:
		return "INQUIRE"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// Terminal reports whether the line ends the current call.
func (k LineKind) Terminal() bool {
	return k == LineOK || k == LineErr
}

// Line is one classified response line. Payload aliases the input slice.
type Line struct {
	Kind    LineKind
	Payload []byte
}

var (
	prefixOK      = []byte("OK")
	prefixErr     = []byte("ERR ")
	prefixData    = []byte("D ")
	prefixStatus  = []byte("S ")
	prefixComment = []byte("#")
	prefixInquire = []byte("INQUIRE")
)

// ParseLine classifies a response line whose LF has already been removed.
// The checks run in a fixed priority order; the first match wins.
func ParseLine(line []byte) (Line, error) {
	switch {
	case bytes.HasPrefix(line, prefixOK):
		return Line{Kind: LineOK, Payload: line[len(prefixOK):]}, nil
	case bytes.HasPrefix(line, prefixErr):
		return Line{Kind: LineErr, Payload: line[len(prefixErr):]}, nil
	case bytes.HasPrefix(line, prefixData):
		return Line{Kind: LineData, Payload: line[len(prefixData):]}, nil
	case bytes.HasPrefix(line, prefixStatus):
		return Line{Kind: LineStatus, Payload: line[len(prefixStatus):]}, nil
	case bytes.HasPrefix(line, prefixComment):
		return Line{Kind: LineComment, Payload: line[len(prefixComment):]}, nil
	case bytes.HasPrefix(line, prefixInquire):
		return Line{Kind: LineInquire, Payload: bytes.TrimLeft(line[len(prefixInquire):], " ")}, nil
	}

	return Line{}, fmt.Errorf("%w: %q", errors.ErrUnsupportedResponse, truncate(line, 64))
}

// SplitStatus splits a status payload into its keyword and raw arguments.
func SplitStatus(payload []byte) (keyword string, args []byte) {
	kw, rest, _ := bytes.Cut(payload, []byte(" "))

	return string(kw), rest
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}

	return b[:n]
}
