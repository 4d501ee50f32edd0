// Package assuantest provides a scripted Assuan peer for tests.
package assuantest

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"
)

// Greeting is the greeting gpg-agent sends on connect.
const Greeting = "OK Pleased to meet you"

// HandlerFunc returns the reply lines, without LF, for one request line.
// An empty reply sends nothing, leaving the client blocked, except that a nil
// reply to BYE answers OK. Any reply to BYE ends the conversation.
type HandlerFunc func(line string) []string

// Server is a scripted peer serving a single connection.
type Server struct {
	greeting []string
	handle   HandlerFunc

	mu       sync.Mutex
	conn     net.Conn
	received []string

	group errgroup.Group
}

func newServer(greeting []string, handle HandlerFunc) *Server {
	if handle == nil {
		handle = func(string) []string { return []string{"OK"} }
	}

	return &Server{greeting: greeting, handle: handle}
}

// NewServer starts a peer on one end of a net.Pipe that sends greeting, then
// answers each request with handle. A nil handle answers OK to everything.
// It returns the client end.
func NewServer(t testing.TB, greeting []string, handle HandlerFunc) (*Server, net.Conn) {
	t.Helper()

	client, peer := net.Pipe()
	s := newServer(greeting, handle)
	s.conn = peer

	s.group.Go(func() error {
		s.serve(peer)

		return nil
	})

	t.Cleanup(func() {
		_ = client.Close()
		s.stop()
	})

	return s, client
}

// NewUnixServer listens on a unix socket at path and serves the first
// connection like NewServer.
func NewUnixServer(t testing.TB, path string, greeting []string, handle HandlerFunc) *Server {
	t.Helper()

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen %s: %v", path, err)
	}

	s := newServer(greeting, handle)

	s.group.Go(func() error {
		conn, err := ln.Accept()
		if err != nil {
			return nil
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		s.serve(conn)

		return nil
	})

	t.Cleanup(func() {
		_ = ln.Close()
		s.stop()
	})

	return s
}

// Received returns the request lines seen so far.
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.received...)
}

// Wait blocks until the peer has stopped serving.
func (s *Server) Wait() {
	_ = s.group.Wait()
}

func (s *Server) stop() {
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()

	_ = s.group.Wait()
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()

	if !send(conn, s.greeting) {
		return
	}

	r := bufio.NewReader(conn)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}

		line = strings.TrimSuffix(line, "\n")

		s.mu.Lock()
		s.received = append(s.received, line)
		s.mu.Unlock()

		reply := s.handle(line)
		bye := line == "BYE"

		if reply == nil && bye {
			reply = []string{"OK closing connection"}
		}

		if !send(conn, reply) || (bye && len(reply) > 0) {
			return
		}
	}
}

func send(conn net.Conn, lines []string) bool {
	if len(lines) == 0 {
		return true
	}

	var b strings.Builder

	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}

	_, err := conn.Write([]byte(b.String()))

	return err == nil
}
