// Package subprocess spawns a gpg-agent in server mode and exposes its piped
// stdin and stdout as an Assuan channel. It handles process lifecycle and
// stderr capture for error reporting.
package subprocess
