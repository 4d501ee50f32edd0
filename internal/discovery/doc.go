// Package discovery locates a running gpg-agent's socket and the gpg-agent
// binary.
//
// Sockets are searched in this order:
//
//  1. An explicit path (Config.SocketPath), and only that path when set.
//  2. <homedir>/S.gpg-agent when a home directory is configured or
//     $GNUPGHOME is set, and only that path in that case.
//  3. /run/user/<uid>/gnupg/S.gpg-agent
//  4. ~/.gnupg/S.gpg-agent
//
// A candidate that is a regular file starting with "%Assuan%" is a socket
// redirect; its "socket=" line names the real socket, with ${VAR} references
// expanded from the environment.
//
//	d := discovery.NewDiscoverer(&discovery.Config{Logger: slog.Default()})
//	paths, err := d.Discover(ctx)
package discovery
