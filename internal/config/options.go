// Package config provides configuration types for the Assuan client.
package config

import (
	"log/slog"
	"time"
)

const (
	// DefaultReadBufferSize bounds the length of a single response line.
	DefaultReadBufferSize = 16 * 1024

	// DefaultCloseTimeout bounds the farewell exchange performed by Close.
	DefaultCloseTimeout = 2 * time.Second
)

// StatusHandler receives status ("S") lines as they arrive.
type StatusHandler func(keyword string, args []byte)

// Options configures sessions, agent discovery and spawned agents.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// StatusHandler is called for every status line of every call.
	StatusHandler StatusHandler

	// ReadBufferSize is the size of the line buffer; longer lines fail the call.
	// Zero means DefaultReadBufferSize.
	ReadBufferSize int

	// CloseTimeout bounds the BYE exchange on Close.
	// Zero means DefaultCloseTimeout.
	CloseTimeout time.Duration

	// SocketPath is an explicit agent socket that skips discovery.
	SocketPath string

	// HomeDir overrides the GnuPG home directory ($GNUPGHOME, ~/.gnupg).
	HomeDir string

	// AgentPath is an explicit gpg-agent binary for spawned agents.
	AgentPath string

	// AgentArgs are extra arguments passed before --server.
	AgentArgs []string

	// Env provides additional environment variables for spawned agents.
	Env map[string]string

	// Stderr receives each stderr line of a spawned agent.
	Stderr func(string)
}

// ReadBuffer returns the effective read buffer size.
func (o *Options) ReadBuffer() int {
	if o.ReadBufferSize > 0 {
		return o.ReadBufferSize
	}

	return DefaultReadBufferSize
}

// CloseWait returns the effective close timeout.
func (o *Options) CloseWait() time.Duration {
	if o.CloseTimeout > 0 {
		return o.CloseTimeout
	}

	return DefaultCloseTimeout
}
