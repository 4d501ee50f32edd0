package assuan_test

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	assuan "github.com/wagiedev/assuan-go"
	"github.com/wagiedev/assuan-go/internal/assuantest"
)

func newSession(t *testing.T, handle assuantest.HandlerFunc, opts ...assuan.Option) (*assuan.Session, *assuantest.Server) {
	t.Helper()

	srv, conn := assuantest.NewServer(t, []string{assuantest.Greeting}, handle)

	s, err := assuan.NewSession(context.Background(), assuan.FromConn(conn), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, srv
}

func TestSession_Handshake(t *testing.T) {
	s, _ := newSession(t, nil)

	require.Equal(t, " Pleased to meet you", s.Greeting())
	require.NotEmpty(t, s.ID())
}

func TestSession_HandshakeWithCommentsAndStatus(t *testing.T) {
	_, conn := assuantest.NewServer(t, []string{"# welcome", "S STARTUP", "OK"}, nil)

	s, err := assuan.NewSession(context.Background(), assuan.FromConn(conn))
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSession_HandshakeFailures(t *testing.T) {
	tests := []struct {
		name     string
		greeting []string
		target   error
	}{
		{name: "err line", greeting: []string{"ERR 1 go away"}},
		{name: "data before ok", greeting: []string{"D hello", "OK"}},
		{name: "unsupported", greeting: []string{"HELLO"}, target: assuan.ErrUnsupportedResponse},
		{name: "inquire", greeting: []string{"INQUIRE PIN"}, target: assuan.ErrUnsupportedInquire},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, conn := assuantest.NewServer(t, tt.greeting, nil)

			s, err := assuan.NewSession(context.Background(), assuan.FromConn(conn))
			require.Nil(t, s)

			e, ok := errors.AsType[*assuan.Error](err)
			require.True(t, ok, "got %v", err)
			require.Equal(t, assuan.KindHandshake, e.Kind)

			if tt.target != nil {
				require.ErrorIs(t, err, tt.target)
			}

			// No call was attempted and the channel was released.
			srv.Wait()
			require.Empty(t, srv.Received())
		})
	}
}

func TestSession_HandshakeRemoteErrorMessage(t *testing.T) {
	_, conn := assuantest.NewServer(t, []string{"ERR 1 go away"}, nil)

	_, err := assuan.NewSession(context.Background(), assuan.FromConn(conn))
	require.EqualError(t, err, "assuan handshake: handshake failure: remote error: 1 go away")
}

func TestSession_HandshakeEOF(t *testing.T) {
	client, peer := net.Pipe()
	require.NoError(t, peer.Close())

	_, err := assuan.NewSession(context.Background(), assuan.FromConn(client))

	e, ok := errors.AsType[*assuan.Error](err)
	require.True(t, ok)
	require.Equal(t, assuan.KindHandshake, e.Kind)
}

func TestSession_ExecOption(t *testing.T) {
	s, srv := newSession(t, nil)

	res, err := s.Exec(context.Background(), "OPTION", []byte("ttyname"), []byte("/dev/pts/4"))
	require.NoError(t, err)
	require.Equal(t, "", res.Message)
	require.Empty(t, res.Data)

	require.Equal(t, []string{"OPTION ttyname /dev/pts/4"}, srv.Received())
}

func TestSession_OptionHelper(t *testing.T) {
	s, srv := newSession(t, nil)

	require.NoError(t, s.Option(context.Background(), "display", ":0 screen"))
	require.Equal(t, []string{"OPTION display :0%20screen"}, srv.Received())
}

func TestSession_ExecData(t *testing.T) {
	s, _ := newSession(t, func(line string) []string {
		return []string{"D 68656c", "S PROGRESS x", "# ignored", "D 6c6f", "OK done"}
	})

	res, err := s.Exec(context.Background(), "GET_PASSPHRASE", []byte("id"))
	require.NoError(t, err)
	require.Equal(t, "68656c6c6f", string(res.Data))
	require.Equal(t, " done", res.Message)
}

func TestSession_RemoteFailureKeepsSessionUsable(t *testing.T) {
	calls := 0

	s, _ := newSession(t, func(line string) []string {
		calls++
		if calls == 1 {
			return []string{"ERR 67108922 Invalid passphrase"}
		}

		return []string{"OK"}
	})

	_, err := s.Exec(context.Background(), "GET_PASSPHRASE", []byte("id"))

	e, ok := errors.AsType[*assuan.Error](err)
	require.True(t, ok)
	require.Equal(t, assuan.KindRemote, e.Kind)
	require.Equal(t, "67108922 Invalid passphrase", e.Message)
	require.True(t, assuan.IsRemote(err))
	require.False(t, assuan.IsFatal(err))

	_, err = s.Exec(context.Background(), "NOP")
	require.NoError(t, err)
}

func TestSession_InquireBreaksSession(t *testing.T) {
	s, _ := newSession(t, func(line string) []string {
		return []string{"S INQUIRE_MAXLEN 4096", "INQUIRE CIPHERTEXT"}
	})

	_, err := s.Exec(context.Background(), "PKDECRYPT")
	require.ErrorIs(t, err, assuan.ErrUnsupportedInquire)
	require.True(t, assuan.IsFatal(err))

	_, err = s.Exec(context.Background(), "NOP")
	require.ErrorIs(t, err, assuan.ErrSessionBroken)
	require.ErrorIs(t, err, assuan.ErrUnsupportedInquire)
}

func TestSession_UnsupportedResponse(t *testing.T) {
	s, _ := newSession(t, func(line string) []string {
		return []string{"WHAT"}
	})

	_, err := s.Exec(context.Background(), "NOP")

	e, ok := errors.AsType[*assuan.Error](err)
	require.True(t, ok)
	require.Equal(t, assuan.KindProtocol, e.Kind)
	require.ErrorIs(t, err, assuan.ErrUnsupportedResponse)
}

func TestSession_InvalidCommandNameWritesNothing(t *testing.T) {
	s, srv := newSession(t, nil)

	for _, name := range []string{"GET PASSPHRASE", "BYE\nNOP", ""} {
		_, err := s.Exec(context.Background(), name)

		e, ok := errors.AsType[*assuan.Error](err)
		require.True(t, ok)
		require.Equal(t, assuan.KindInvalidCommand, e.Kind)
		require.ErrorIs(t, err, assuan.ErrInvalidCommandName)
	}

	_, err := s.Exec(context.Background(), "SETDESC", []byte(strings.Repeat("x", 2000)))
	require.ErrorIs(t, err, assuan.ErrLineTooLong)

	// The session is still usable and nothing reached the peer.
	_, err = s.Exec(context.Background(), "NOP")
	require.NoError(t, err)
	require.Equal(t, []string{"NOP"}, srv.Received())
}

func TestSession_StatusHandler(t *testing.T) {
	var keywords []string

	s, _ := newSession(t, func(line string) []string {
		return []string{"S PROGRESS need_entropy X 30 120", "OK"}
	}, assuan.WithStatusHandler(func(keyword string, args []byte) {
		keywords = append(keywords, keyword+"|"+string(args))
	}))

	_, err := s.Exec(context.Background(), "GENKEY")
	require.NoError(t, err)
	require.Equal(t, []string{"PROGRESS|need_entropy X 30 120"}, keywords)
}

func TestSession_CloseSendsBye(t *testing.T) {
	s, srv := newSession(t, nil)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	srv.Wait()
	require.Equal(t, []string{"BYE"}, srv.Received())

	_, err := s.Exec(context.Background(), "NOP")
	require.ErrorIs(t, err, assuan.ErrSessionClosed)
}

func TestSession_CloseIgnoresFarewellFailure(t *testing.T) {
	s, _ := newSession(t, func(line string) []string {
		return []string{"ERR 275 Unknown IPC command"}
	})

	require.NoError(t, s.Close())
}

func TestSession_CloseWithUnresponsivePeer(t *testing.T) {
	s, _ := newSession(t, func(line string) []string {
		return []string{}
	}, assuan.WithCloseTimeout(50*time.Millisecond))

	done := make(chan struct{})

	go func() {
		_ = s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on an unresponsive peer")
	}
}

func TestSession_CancelInterruptsBlockedCall(t *testing.T) {
	s, _ := newSession(t, func(line string) []string {
		return []string{}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Exec(ctx, "GET_PASSPHRASE", []byte("id"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, assuan.IsFatal(err))

	_, err = s.Exec(context.Background(), "NOP")
	require.ErrorIs(t, err, assuan.ErrSessionBroken)
}

func TestSession_CancelledBeforeCall(t *testing.T) {
	s, srv := newSession(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Exec(ctx, "NOP")
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, assuan.IsFatal(err))

	// Nothing was written, so the session survives.
	_, err = s.Exec(context.Background(), "NOP")
	require.NoError(t, err)
	require.Equal(t, []string{"NOP"}, srv.Received())
}

func TestSession_OverlappingCallsRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	s, _ := newSession(t, func(line string) []string {
		if line == "SLOW" {
			close(entered)
			<-release
		}

		return []string{"OK"}
	})

	var (
		wg      sync.WaitGroup
		slowErr error
	)

	wg.Go(func() {
		_, slowErr = s.Exec(context.Background(), "SLOW")
	})

	<-entered

	_, err := s.Exec(context.Background(), "NOP")
	require.ErrorIs(t, err, assuan.ErrCallInProgress)
	require.False(t, assuan.IsFatal(err))

	close(release)
	wg.Wait()
	require.NoError(t, slowErr)
}

func TestSession_TransportFailureBreaksSession(t *testing.T) {
	client, peer := net.Pipe()

	go func() {
		_, _ = peer.Write([]byte("OK\n"))
		buf := make([]byte, 64)
		_, _ = peer.Read(buf)
		_ = peer.Close()
	}()

	s, err := assuan.NewSession(context.Background(), assuan.FromConn(client), assuan.WithLogger(slog.Default()))
	require.NoError(t, err)

	_, err = s.Exec(context.Background(), "NOP")

	e, ok := errors.AsType[*assuan.Error](err)
	require.True(t, ok)
	require.Equal(t, assuan.KindTransport, e.Kind)

	_, err = s.Exec(context.Background(), "NOP")
	require.ErrorIs(t, err, assuan.ErrSessionBroken)

	require.NoError(t, s.Close())
}

func TestSession_OverReaderWriter(t *testing.T) {
	var out strings.Builder

	in := strings.NewReader("OK hi\nD 68656c6c6f\nOK\n")

	s, err := assuan.NewSession(context.Background(), assuan.FromReadWriter(in, &out))
	require.NoError(t, err)

	res, err := s.Exec(context.Background(), "GETINFO", []byte("version"))
	require.NoError(t, err)
	require.Equal(t, "68656c6c6f", string(res.Data))
	require.Equal(t, "GETINFO version\n", out.String())
}
