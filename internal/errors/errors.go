package errors

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AssuanError is the base interface for all errors produced by this module.
type AssuanError interface {
	error
	IsAssuanError() bool
}

// Compile-time verification that all error types implement AssuanError.
var (
	_ AssuanError = (*Error)(nil)
	_ AssuanError = (*SocketNotFoundError)(nil)
	_ AssuanError = (*AgentNotFoundError)(nil)
	_ AssuanError = (*ProcessError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrSessionClosed indicates the session has been closed and cannot be reused.
	ErrSessionClosed = errors.New("session closed: sessions are single-use, create a new one")

	// ErrSessionBroken indicates an earlier transport or protocol failure left
	// the stream position unknown.
	ErrSessionBroken = errors.New("session broken by an earlier failure")

	// ErrCallInProgress indicates a second call was issued while one was in flight.
	ErrCallInProgress = errors.New("call already in progress")

	// ErrUnsupportedInquire indicates the peer asked for data with INQUIRE.
	ErrUnsupportedInquire = errors.New("received unsupported INQUIRE message")

	// ErrUnsupportedResponse indicates a response line with an unknown prefix.
	ErrUnsupportedResponse = errors.New("unsupported assuan response")

	// ErrMalformedEscape indicates a bad percent escape sequence.
	ErrMalformedEscape = errors.New("malformed percent escape")

	// ErrLineTooLong indicates a line over the protocol's length limit.
	ErrLineTooLong = errors.New("line too long")

	// ErrInvalidCommandName indicates a command name that cannot be framed.
	ErrInvalidCommandName = errors.New("invalid command name")
)

// Kind classifies an Error.
type Kind int

const (
	// KindTransport is a read or write failure on the channel. Fatal to the session.
	KindTransport Kind = iota + 1
	// KindHandshake is a greeting that was not a single bare OK line.
	KindHandshake
	// KindProtocol is a line the client cannot interpret. Fatal to the session.
	KindProtocol
	// KindRemote is a well-formed ERR line. The session stays usable.
	KindRemote
	// KindInvalidCommand is a command rejected before anything was written.
	KindInvalidCommand
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHandshake:
		return "handshake"
	case KindProtocol:
		return "protocol"
	case KindRemote:
		return "remote"
	case KindInvalidCommand:
		return "invalid command"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Error is the single tagged error type returned by sessions.
type Error struct {
	Kind Kind
	// Op is the command being executed, or "handshake".
	Op string
	// Message is the peer's text for KindRemote, verbatim.
	Message string
	// Code is the leading decimal error code of a remote message, 0 if absent.
	Code uint32
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("assuan")

	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}

	b.WriteString(": ")
	e.describe(&b)

	return b.String()
}

// describe writes the kind and cause. A directly nested *Error for the same
// op is described without repeating its prefix.
func (e *Error) describe(b *strings.Builder) {
	b.WriteString(e.Kind.String())

	switch {
	case e.Kind == KindRemote:
		b.WriteString(" error: ")
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(" failure: ")

		if inner, ok := e.Err.(*Error); ok && inner.Op == e.Op {
			inner.describe(b)

			return
		}

		b.WriteString(e.Err.Error())
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsAssuanError implements AssuanError.
func (e *Error) IsAssuanError() bool { return true }

// ErrorCode returns the 16-bit libgpg-error code part of Code.
func (e *Error) ErrorCode() uint32 { return e.Code & 0xFFFF }

// ErrorSource returns the libgpg-error source part of Code.
func (e *Error) ErrorSource() uint32 { return (e.Code >> 24) & 0x7F }

// Remote builds a KindRemote error from the text following "ERR ".
func Remote(op, message string) *Error {
	return &Error{
		Kind:    KindRemote,
		Op:      op,
		Message: message,
		Code:    parseCode(message),
	}
}

// parseCode reads the leading decimal number of an ERR message.
func parseCode(message string) uint32 {
	end := strings.IndexByte(message, ' ')
	if end < 0 {
		end = len(message)
	}

	code, err := strconv.ParseUint(message[:end], 10, 32)
	if err != nil {
		return 0
	}

	return uint32(code)
}

// IsRemote reports whether err is a remote failure, after which the session
// may still be used.
func IsRemote(err error) bool {
	e, ok := errors.AsType[*Error](err)

	return ok && e.Kind == KindRemote
}

// IsFatal reports whether err leaves the session unusable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if e, ok := errors.AsType[*Error](err); ok {
		return e.Kind != KindRemote && e.Kind != KindInvalidCommand
	}

	// Returned before anything was written; the stream is untouched.
	switch {
	case errors.Is(err, ErrCallInProgress),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// SocketNotFoundError indicates no agent socket was found.
type SocketNotFoundError struct {
	SearchedPaths []string
}

func (e *SocketNotFoundError) Error() string {
	return fmt.Sprintf("agent socket not found in: %v", e.SearchedPaths)
}

// IsAssuanError implements AssuanError.
func (e *SocketNotFoundError) IsAssuanError() bool { return true }

// AgentNotFoundError indicates the gpg-agent binary was not found.
type AgentNotFoundError struct {
	SearchedPaths []string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("gpg-agent not found in: %v", e.SearchedPaths)
}

// IsAssuanError implements AssuanError.
func (e *AgentNotFoundError) IsAssuanError() bool { return true }

// ProcessError indicates a spawned server process failed.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("agent process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsAssuanError implements AssuanError.
func (e *ProcessError) IsAssuanError() bool { return true }
