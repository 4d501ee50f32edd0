package channel

import (
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"reflect"
	"sync"
	"time"
)

// Channel is a duplex byte stream.
type Channel interface {
	io.Reader
	io.Writer

	// Close releases both halves. It's safe to call Close multiple times.
	Close() error

	// Interrupt makes blocked and future reads and writes fail promptly.
	// The channel is unusable afterwards.
	Interrupt()
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// duplex joins a read half and a write half.
type duplex struct {
	r io.Reader
	w io.Writer

	// closers run in order on Close; shared halves appear once.
	closers []io.Closer

	closeOnce sync.Once
	closeErr  error
}

// Compile-time verification that duplex implements Channel.
var _ Channel = (*duplex)(nil)

func (d *duplex) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d *duplex) Write(p []byte) (int, error) { return d.w.Write(p) }

func (d *duplex) Close() error {
	d.closeOnce.Do(func() {
		errs := make([]error, 0, len(d.closers))

		for _, c := range d.closers {
			if err := c.Close(); err != nil && !stderrors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}

		d.closeErr = stderrors.Join(errs...)
	})

	return d.closeErr
}

func (d *duplex) Interrupt() {
	past := time.Unix(1, 0)

	rd, rok := d.r.(readDeadliner)
	wd, wok := d.w.(writeDeadliner)

	if rok && wok && rd.SetReadDeadline(past) == nil && wd.SetWriteDeadline(past) == nil {
		return
	}

	_ = d.Close()
}

// FromReadWriter adopts an independent reader and writer. Any half that is
// also an io.Closer is closed by Close.
func FromReadWriter(r io.Reader, w io.Writer) Channel {
	d := &duplex{r: r, w: w}

	if c, ok := w.(io.Closer); ok {
		d.closers = append(d.closers, c)
	}

	if c, ok := r.(io.Closer); ok && !sameValue(r, w) {
		d.closers = append(d.closers, c)
	}

	return d
}

// sameValue reports whether a and b hold the same comparable value.
func sameValue(a, b any) bool {
	t := reflect.TypeOf(a)

	return t != nil && t == reflect.TypeOf(b) && t.Comparable() && a == b
}

// FromConn splits one bidirectional connection into read and write halves
// sharing the same underlying socket.
func FromConn(conn net.Conn) Channel {
	return &duplex{
		r:       connReader{conn},
		w:       connWriter{conn},
		closers: []io.Closer{conn},
	}
}

// connReader and connWriter expose one direction of a net.Conn each.
type connReader struct{ c net.Conn }

func (h connReader) Read(p []byte) (int, error)          { return h.c.Read(p) }
func (h connReader) SetReadDeadline(t time.Time) error { return h.c.SetReadDeadline(t) }

type connWriter struct{ c net.Conn }

func (h connWriter) Write(p []byte) (int, error)          { return h.c.Write(p) }
func (h connWriter) SetWriteDeadline(t time.Time) error { return h.c.SetWriteDeadline(t) }

// FromCmd wires a not yet started command's stdout as the read half and its
// stdin as the write half. The caller starts the command and remains
// responsible for waiting on it; Close only closes the pipes.
func FromCmd(cmd *exec.Cmd) (Channel, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()

		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	return FromReadWriter(stdout, stdin), nil
}
