package assuan

import (
	"io"
	"net"
	"os/exec"

	"github.com/wagiedev/assuan-go/internal/channel"
	"github.com/wagiedev/assuan-go/internal/wire"
)

// Channel is the duplex byte stream a Session runs over.
//
// Implement this to run sessions over custom transports. Interrupt must make
// blocked reads and writes return promptly; it is used when a call's context
// is cancelled.
type Channel = channel.Channel

// FromCmd uses a not yet started command's stdout and stdin as a channel.
// The caller starts the command and is responsible for its lifetime.
func FromCmd(cmd *exec.Cmd) (Channel, error) {
	return channel.FromCmd(cmd)
}

// FromReadWriter joins an independent reader and writer into a channel.
func FromReadWriter(r io.Reader, w io.Writer) Channel {
	return channel.FromReadWriter(r, w)
}

// FromConn splits a bidirectional connection into a channel.
func FromConn(conn net.Conn) Channel {
	return channel.FromConn(conn)
}

// Escape percent-escapes CR, LF, '%' and space in an argument. It always
// returns a new slice.
func Escape(b []byte) []byte {
	return wire.Escape(b)
}

// Unescape reverses Escape. Session results are never unescaped
// automatically; use this when a command's data is known to be escaped.
func Unescape(b []byte) ([]byte, error) {
	return wire.Unescape(b)
}
