package assuan

import (
	"context"
	"fmt"
)

// WithSession manages session lifecycle with automatic cleanup.
//
// This helper performs the handshake on ch, executes the callback, and
// ensures Close runs on every exit path, including a panic in fn. The
// callback's error is returned unchanged.
//
// Example usage:
//
//	conn, err := net.Dial("unix", socketPath)
//	if err != nil {
//	    return err
//	}
//	err = assuan.WithSession(ctx, assuan.FromConn(conn), func(s *assuan.Session) error {
//	    return s.Option(ctx, "ttyname", "/dev/pts/4")
//	},
//	    assuan.WithLogger(log),
//	)
func WithSession(ctx context.Context, ch Channel, fn func(*Session) error, opts ...Option) error {
	if ctx.Err() != nil {
		_ = ch.Close()

		return ctx.Err()
	}

	s, err := NewSession(ctx, ch, opts...)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	defer s.Close()

	return fn(s)
}
