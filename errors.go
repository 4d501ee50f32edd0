package assuan

import "github.com/wagiedev/assuan-go/internal/errors"

// Re-export error types from internal package

// Error is the tagged error returned by Session calls.
type Error = errors.Error

// ErrorKind classifies an Error.
type ErrorKind = errors.Kind

// Error kinds.
const (
	// KindTransport is a read or write failure on the channel. Fatal to the session.
	KindTransport = errors.KindTransport
	// KindHandshake is a greeting that was not a single bare OK line.
	KindHandshake = errors.KindHandshake
	// KindProtocol is a line the client cannot interpret. Fatal to the session.
	KindProtocol = errors.KindProtocol
	// KindRemote is an ERR line from the server. The session stays usable.
	KindRemote = errors.KindRemote
	// KindInvalidCommand is a command rejected before anything was written.
	KindInvalidCommand = errors.KindInvalidCommand
)

// AssuanError is the base interface for all errors produced by this module.
type AssuanError = errors.AssuanError

// SocketNotFoundError indicates no agent socket was found.
type SocketNotFoundError = errors.SocketNotFoundError

// AgentNotFoundError indicates the gpg-agent binary was not found.
type AgentNotFoundError = errors.AgentNotFoundError

// ProcessError indicates a spawned agent process failed.
type ProcessError = errors.ProcessError

// Re-export sentinel errors from internal package.
var (
	// ErrSessionClosed indicates the session has been closed and cannot be reused.
	ErrSessionClosed = errors.ErrSessionClosed

	// ErrSessionBroken indicates an earlier transport or protocol failure.
	ErrSessionBroken = errors.ErrSessionBroken

	// ErrCallInProgress indicates overlapping calls on one session.
	ErrCallInProgress = errors.ErrCallInProgress

	// ErrUnsupportedInquire indicates the server sent INQUIRE.
	ErrUnsupportedInquire = errors.ErrUnsupportedInquire

	// ErrUnsupportedResponse indicates a response line with an unknown prefix.
	ErrUnsupportedResponse = errors.ErrUnsupportedResponse

	// ErrMalformedEscape indicates a bad percent escape sequence.
	ErrMalformedEscape = errors.ErrMalformedEscape

	// ErrLineTooLong indicates a line over the length limit.
	ErrLineTooLong = errors.ErrLineTooLong

	// ErrInvalidCommandName indicates a command name that cannot be framed.
	ErrInvalidCommandName = errors.ErrInvalidCommandName
)

// IsRemote reports whether err came from an ERR line, after which the session
// may still be used.
func IsRemote(err error) bool {
	return errors.IsRemote(err)
}

// IsFatal reports whether err leaves the session unusable.
func IsFatal(err error) bool {
	return errors.IsFatal(err)
}
