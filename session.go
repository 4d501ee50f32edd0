package assuan

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/assuan-go/internal/config"
	"github.com/wagiedev/assuan-go/internal/errors"
	"github.com/wagiedev/assuan-go/internal/protocol"
	"github.com/wagiedev/assuan-go/internal/wire"
)

// Result is the outcome of a successful call: the text after OK on the
// terminal line, verbatim, and the concatenated raw data line payloads.
type Result = protocol.Result

type sessionState int

const (
	stateConstructing sessionState = iota
	stateReady
	stateBroken
	stateClosed
)

// farewell is sent by Close.
const farewell = "BYE"

// Session is a connection to an Assuan server.
//
// The protocol is strictly request/response; a Session runs one call at a
// time and returns ErrCallInProgress to a caller that overlaps another.
// Callers that share a Session across goroutines must serialize access.
//
// Lifecycle: Sessions are single-use. After Close, create a new one.
type Session struct {
	log      *slog.Logger
	id       string
	ch       Channel
	r        *bufio.Reader
	w        *bufio.Writer
	options  *config.Options
	greeting string

	// release runs after the channel is closed, e.g. to reap a spawned agent.
	release func() error

	busy atomic.Bool

	mu    sync.Mutex
	state sessionState
	cause error

	closeOnce sync.Once
}

// NewSession takes ownership of ch and waits for the server's greeting,
// which must be a single OK line with no data.
//
// On failure the channel is closed and the error has KindHandshake.
func NewSession(ctx context.Context, ch Channel, opts ...Option) (*Session, error) {
	options := applyOptions(opts)

	log := loggerOrNop(options.Logger)

	id := ulid.Make().String()

	s := &Session{
		log:     log.With("component", "assuan_session", "session_id", id),
		id:      id,
		ch:      ch,
		r:       bufio.NewReaderSize(ch, options.ReadBuffer()),
		w:       bufio.NewWriter(ch),
		options: options,
	}

	s.log.Debug("Waiting for server greeting")

	res, err := s.roundTrip(ctx, "handshake", nil)
	if err == nil && len(res.Data) > 0 {
		err = fmt.Errorf("greeting carried %d bytes of data", len(res.Data))
	}

	if err != nil {
		s.log.Debug("Handshake failed", "error", err)
		_ = ch.Close()

		return nil, &errors.Error{Kind: errors.KindHandshake, Op: "handshake", Err: err}
	}

	s.greeting = res.Message
	s.state = stateReady
	s.log.Debug("Session ready", "greeting", res.Message)

	return s, nil
}

// ID returns the session's unique identifier, also attached to its logs.
func (s *Session) ID() string {
	return s.id
}

// Greeting returns the text after OK in the server's greeting.
func (s *Session) Greeting() string {
	return s.greeting
}

// Exec sends a command and waits for its terminal line.
//
// A remote failure (an ERR line) is returned as an *Error with KindRemote and
// leaves the session usable. Transport and protocol failures, including
// cancellation of ctx while waiting, break the session.
func (s *Session) Exec(ctx context.Context, name string, args ...[]byte) (Result, error) {
	if err := s.usable(); err != nil {
		return Result{}, err
	}

	if !s.busy.CompareAndSwap(false, true) {
		return Result{}, errors.ErrCallInProgress
	}
	defer s.busy.Store(false)

	line, err := wire.EncodeCommand(name, args...)
	if err != nil {
		return Result{}, &errors.Error{Kind: errors.KindInvalidCommand, Op: name, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.log.Debug("Sending command", "command", name, "args", len(args))

	res, err := s.roundTrip(ctx, name, line)
	if e, ok := stderrors.AsType[*errors.Error](err); ok && e.Kind != errors.KindRemote {
		s.markBroken(err)
	}

	return res, err
}

// Option sets a server option, equivalent to Exec("OPTION", name, value).
func (s *Session) Option(ctx context.Context, name, value string) error {
	_, err := s.Exec(ctx, "OPTION", []byte(name), []byte(value))

	return err
}

// Close says BYE to the server, ignoring any reply or failure, and releases
// the channel. Close never fails; the error result only satisfies io.Closer.
// It's safe to call Close multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		sendBye := s.state == stateReady
		s.state = stateClosed
		s.mu.Unlock()

		switch {
		case !s.busy.CompareAndSwap(false, true):
			s.log.Debug("Closing with a call in flight, interrupting channel")
			s.ch.Interrupt()
		case sendBye:
			// busy stays set so no call starts after the farewell.
			ctx, cancel := context.WithTimeout(context.Background(), s.options.CloseWait())
			if _, err := s.roundTrip(ctx, farewell, []byte(farewell+"\n")); err != nil {
				s.log.Debug("Farewell failed", "error", err)
			}
			cancel()
		}

		if err := s.ch.Close(); err != nil {
			s.log.Debug("Closing channel failed", "error", err)
		}

		if s.release != nil {
			if err := s.release(); err != nil {
				s.log.Debug("Releasing session resources failed", "error", err)
			}
		}

		s.log.Debug("Session closed")
	})

	return nil
}

// usable reports why the session cannot take a call, if it cannot.
func (s *Session) usable() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateClosed:
		return errors.ErrSessionClosed
	case stateBroken:
		return fmt.Errorf("%w: %w", errors.ErrSessionBroken, s.cause)
	default:
		return nil
	}
}

func (s *Session) markBroken(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateReady {
		s.log.Warn("Session broken", "error", cause)
		s.state = stateBroken
		s.cause = cause
	}
}

// roundTrip writes line, if any, and reads the response. Cancelling ctx
// interrupts the channel, after which it cannot be used again.
func (s *Session) roundTrip(ctx context.Context, op string, line []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	interrupted := false
	stop := context.AfterFunc(ctx, func() {
		s.log.Debug("Context done, interrupting channel", "op", op)
		s.ch.Interrupt()
	})

	res, err := s.exchange(op, line)

	if !stop() {
		interrupted = true
	}

	if interrupted {
		cause := context.Cause(ctx)

		if err == nil {
			// The reply won the race but the channel is gone regardless.
			s.markBroken(&errors.Error{Kind: errors.KindTransport, Op: op, Err: cause})

			return res, nil
		}

		return Result{}, &errors.Error{Kind: errors.KindTransport, Op: op, Err: fmt.Errorf("%w: %w", cause, unwrapTransport(err))}
	}

	return res, err
}

func (s *Session) exchange(op string, line []byte) (Result, error) {
	if line != nil {
		if _, err := s.w.Write(line); err != nil {
			return Result{}, &errors.Error{Kind: errors.KindTransport, Op: op, Err: err}
		}

		if err := s.w.Flush(); err != nil {
			return Result{}, &errors.Error{Kind: errors.KindTransport, Op: op, Err: err}
		}
	}

	return protocol.ReadResponse(s.log, s.r, op, protocol.StatusFunc(s.options.StatusHandler))
}

// unwrapTransport strips the *Error layer so the cause is not wrapped twice.
func unwrapTransport(err error) error {
	if e, ok := stderrors.AsType[*errors.Error](err); ok && e.Err != nil {
		return e.Err
	}

	return err
}
