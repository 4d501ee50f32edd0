// Package gpgagent talks to a running gpg-agent over the Assuan protocol.
//
// It maps the agent's passphrase cache commands onto an assuan.Session and
// interprets their replies:
//
//	agent, err := gpgagent.Connect(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer agent.Close()
//
//	if err := agent.SetTTYName(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	pass, err := agent.GetPassphrase(ctx, gpgagent.PassphraseRequest{
//	    CacheID:     "myapp:vault",
//	    Prompt:      "Passphrase",
//	    Description: "Unlock the vault",
//	})
//
// An Agent is safe for concurrent use; calls are serialized.
package gpgagent
