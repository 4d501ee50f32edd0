// Package errors defines error types for the Assuan client.
//
// Every failure surfaced by a session is an *Error carrying a Kind, so callers
// can tell a recoverable remote failure (an ERR line from the peer) from the
// session-ending kinds (transport, handshake, protocol). All error types
// support unwrapping and can be checked using errors.Is, errors.As, and
// errors.AsType.
package errors
