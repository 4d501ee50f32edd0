package assuan

import (
	"log/slog"
	"time"

	"github.com/wagiedev/assuan-go/internal/config"
)

// Options holds the settings applied by Option functions.
type Options = config.Options

// StatusHandler receives status lines as they arrive.
type StatusHandler = config.StatusHandler

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Session =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithStatusHandler registers a callback for status ("S") lines.
func WithStatusHandler(fn StatusHandler) Option {
	return func(o *Options) {
		o.StatusHandler = fn
	}
}

// WithReadBufferSize bounds the length of one response line.
func WithReadBufferSize(size int) Option {
	return func(o *Options) {
		o.ReadBufferSize = size
	}
}

// WithCloseTimeout bounds the BYE exchange performed by Close.
func WithCloseTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.CloseTimeout = d
	}
}

// ===== Discovery =====

// WithSocketPath sets an explicit agent socket, skipping discovery.
func WithSocketPath(path string) Option {
	return func(o *Options) {
		o.SocketPath = path
	}
}

// WithHomeDir sets the GnuPG home directory used to find the socket and
// passed to spawned agents.
func WithHomeDir(dir string) Option {
	return func(o *Options) {
		o.HomeDir = dir
	}
}

// ===== Spawned agents =====

// WithAgentPath sets the explicit path to the gpg-agent binary.
// If not set, gpg-agent is searched in PATH.
func WithAgentPath(path string) Option {
	return func(o *Options) {
		o.AgentPath = path
	}
}

// WithAgentArgs adds arguments passed to a spawned agent before --server.
func WithAgentArgs(args ...string) Option {
	return func(o *Options) {
		o.AgentArgs = append(o.AgentArgs, args...)
	}
}

// WithEnv provides additional environment variables for a spawned agent.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithStderr sets a callback receiving each stderr line of a spawned agent.
func WithStderr(fn func(string)) Option {
	return func(o *Options) {
		o.Stderr = fn
	}
}
