package discovery

import (
	"log/slog"
	"os"
	"os/exec"

	"github.com/wagiedev/assuan-go/internal/errors"
)

// AgentBinary is the executable name searched for in PATH.
const AgentBinary = "gpg-agent"

// commonAgentPaths are checked after PATH.
var commonAgentPaths = []string{
	"/usr/bin/gpg-agent",
	"/usr/local/bin/gpg-agent",
	"/opt/homebrew/bin/gpg-agent",
}

// FindAgent locates the gpg-agent binary. An explicit path is used as is and
// is the only path checked.
func FindAgent(explicit string, log *slog.Logger) (string, error) {
	if explicit != "" {
		log.Debug("Using explicit agent path", "agent_path", explicit)

		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}

		return "", &errors.AgentNotFoundError{SearchedPaths: []string{explicit}}
	}

	if path, err := exec.LookPath(AgentBinary); err == nil {
		log.Debug("Found gpg-agent in PATH", "path", path)

		return path, nil
	}

	searched := append([]string{"$PATH"}, commonAgentPaths...)

	for _, path := range commonAgentPaths {
		if _, err := os.Stat(path); err == nil {
			log.Debug("Found gpg-agent at common path", "path", path)

			return path, nil
		}
	}

	log.Warn("gpg-agent not found in any searched paths", "searched_paths", searched)

	return "", &errors.AgentNotFoundError{SearchedPaths: searched}
}
