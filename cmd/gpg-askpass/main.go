// Command gpg-askpass reads a passphrase through gpg-agent and prints it.
//
// It is suitable as an SSH_ASKPASS or GIT_ASKPASS style helper that caches
// secrets in the agent:
//
//	gpg-askpass --cache-id myapp:vault --prompt Passphrase: --description "Unlock the vault"
//	gpg-askpass clear myapp:vault
//	gpg-askpass info version
//
// Flag defaults may be set in $XDG_CONFIG_HOME/gpg-askpass/config.toml:
//
//	socket = "${XDG_RUNTIME_DIR}/gnupg/S.gpg-agent"
//	cache_id = "myapp:vault"
//	description = "Unlock the vault"
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "gpg-askpass:", err)
		os.Exit(1)
	}
}
