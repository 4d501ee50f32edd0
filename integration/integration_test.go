//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	assuan "github.com/wagiedev/assuan-go"
)

// skipIfAgentNotInstalled skips the test if the error indicates gpg-agent is not found.
func skipIfAgentNotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*assuan.AgentNotFoundError](err); ok {
		t.Skip("gpg-agent not installed")
	}
}

// newHomeDir creates a private GnuPG home short enough for socket paths.
func newHomeDir(t *testing.T) string {
	t.Helper()

	home, err := os.MkdirTemp("", "gi")
	require.NoError(t, err)
	require.NoError(t, os.Chmod(home, 0o700))

	t.Cleanup(func() { _ = os.RemoveAll(home) })

	return home
}

// startDaemon runs a gpg-agent daemon listening in home and stops it when
// the test ends.
func startDaemon(t *testing.T, home string, extraArgs ...string) {
	t.Helper()

	path, err := exec.LookPath("gpg-agent")
	if err != nil {
		t.Skip("gpg-agent not installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	args := append([]string{"--homedir", home, "--daemon"}, extraArgs...)
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	require.NoError(t, err, "gpg-agent --daemon: %s", out)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s, err := assuan.DialAgent(ctx, assuan.WithHomeDir(home))
		if err != nil {
			t.Logf("Stopping agent: %v", err)

			return
		}

		_, _ = s.Exec(ctx, "KILLAGENT")
		_ = s.Close()
	})
}
