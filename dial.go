package assuan

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"

	"github.com/wagiedev/assuan-go/internal/discovery"
	"github.com/wagiedev/assuan-go/internal/errors"
	"github.com/wagiedev/assuan-go/internal/subprocess"
)

// Dial connects to the Assuan server listening on a unix socket.
func Dial(ctx context.Context, socketPath string, opts ...Option) (*Session, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, &errors.Error{Kind: errors.KindTransport, Op: "dial", Err: err}
	}

	return NewSession(ctx, FromConn(conn), opts...)
}

// DialAgent finds a running gpg-agent and connects to it. Candidate sockets
// are tried in discovery order; the first that completes a handshake wins.
//
// Returns SocketNotFoundError if no socket exists.
func DialAgent(ctx context.Context, opts ...Option) (*Session, error) {
	options := applyOptions(opts)

	log := loggerOrNop(options.Logger)

	paths, err := discovery.NewDiscoverer(&discovery.Config{
		SocketPath: options.SocketPath,
		HomeDir:    options.HomeDir,
		Logger:     log,
	}).Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover agent socket: %w", err)
	}

	errs := make([]error, 0, len(paths))

	for _, path := range paths {
		s, err := Dial(ctx, path, opts...)
		if err == nil {
			return s, nil
		}

		log.Debug("Agent socket unusable", "path", path, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", path, err))

		if ctx.Err() != nil {
			break
		}
	}

	return nil, stderrors.Join(errs...)
}

// Spawn starts gpg-agent --server as a child process and opens a session on
// its stdio. Closing the session also reaps the process.
func Spawn(ctx context.Context, opts ...Option) (*Session, error) {
	options := applyOptions(opts)

	log := loggerOrNop(options.Logger)

	agent := subprocess.NewAgent(log, options)
	if err := agent.Start(ctx); err != nil {
		return nil, err
	}

	s, err := NewSession(ctx, agent.Channel(), opts...)
	if err != nil {
		_ = agent.Close()

		if waitErr := agent.Wait(); waitErr != nil {
			return nil, stderrors.Join(err, waitErr)
		}

		return nil, err
	}

	s.release = agent.Close

	return s, nil
}
