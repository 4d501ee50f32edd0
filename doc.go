// Package assuan is a client for the Assuan protocol, the line-oriented
// request/response protocol spoken by gpg-agent, scdaemon, dirmngr and
// pinentry.
//
// A Session runs over a duplex Channel: a unix socket, a spawned server's
// stdio, or any reader and writer pair. Calls are synchronous; each Exec
// writes one request line and reads response lines until OK or ERR.
//
// # Basic Usage
//
// Connect to the running gpg-agent and ask for its version:
//
//	ctx := context.Background()
//	s, err := assuan.DialAgent(ctx, assuan.WithLogger(slog.Default()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	res, err := s.Exec(ctx, "GETINFO", []byte("version"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("gpg-agent %s\n", res.Data)
//
// # Channels
//
// Sessions over other transports use FromConn, FromCmd or FromReadWriter:
//
//	cmd := exec.Command("pinentry")
//	ch, err := assuan.FromCmd(cmd)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cmd.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	err = assuan.WithSession(ctx, ch, func(s *assuan.Session) error {
//	    _, err := s.Exec(ctx, "SETDESC", []byte("Unlock the vault"))
//	    return err
//	})
//
// # Error Handling
//
// Failures of an exchange are an *Error with a Kind. A KindRemote error is an
// ERR line from the server, and KindInvalidCommand a command that was never
// sent; the session may be reused after either. Any other kind means the
// stream can no longer be trusted and the session is broken. Calls on a
// closed or broken session fail with ErrSessionClosed or ErrSessionBroken.
//
//	_, err := s.Exec(ctx, "GET_PASSPHRASE", []byte("cache-id"))
//	if e, ok := errors.AsType[*assuan.Error](err); ok && e.Kind == assuan.KindRemote {
//	    log.Printf("agent refused (code %d): %s", e.ErrorCode(), e.Message)
//	}
//
// Data line payloads are returned exactly as received; they are not
// unescaped. The INQUIRE sub-protocol is not supported and fails the call.
//
// Package gpgagent builds the agent's passphrase commands on top of Session.
package assuan
