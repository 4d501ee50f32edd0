package discovery

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wagiedev/assuan-go/internal/errors"
)

const (
	// SocketName is the file name of the agent's standard socket.
	SocketName = "S.gpg-agent"

	// DefaultRuntimeDir is the parent of the per-user runtime directories.
	DefaultRuntimeDir = "/run/user"

	// redirectMagic starts an Assuan socket redirect file.
	redirectMagic = "%Assuan%"

	// maxRedirectSize bounds how much of a redirect file is read.
	maxRedirectSize = 4096
)

// Config holds configuration for socket discovery.
type Config struct {
	// SocketPath is an explicit socket path that skips the search.
	SocketPath string

	// HomeDir is the GnuPG home directory. If empty, $GNUPGHOME is used
	// when set; otherwise the standard locations are searched.
	HomeDir string

	// RuntimeDir replaces /run/user. Intended for tests.
	RuntimeDir string

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates agent sockets.
type Discoverer interface {
	// Discover returns the existing socket paths in preference order.
	// It returns a SocketNotFoundError when there are none.
	Discover(ctx context.Context) ([]string, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new socket discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}

	return &discoverer{
		cfg: cfg,
		log: log.With("component", "discovery"),
	}
}

// Discover returns the existing socket paths in preference order.
func (d *discoverer) Discover(ctx context.Context) ([]string, error) {
	d.log.Debug("Discovering gpg-agent socket")

	candidates := d.candidates()
	found := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))

	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resolved, ok := d.resolve(path)
		if !ok || seen[resolved] {
			continue
		}

		seen[resolved] = true
		found = append(found, resolved)
	}

	if len(found) == 0 {
		d.log.Warn("gpg-agent socket not found in any searched paths", "searched_paths", candidates)

		return nil, &errors.SocketNotFoundError{SearchedPaths: candidates}
	}

	d.log.Debug("Found gpg-agent sockets", "paths", found)

	return found, nil
}

// candidates lists the paths to probe, most preferred first.
func (d *discoverer) candidates() []string {
	if d.cfg.SocketPath != "" {
		return []string{d.cfg.SocketPath}
	}

	home := d.cfg.HomeDir
	if home == "" {
		home = os.Getenv("GNUPGHOME")
	}

	if home != "" {
		return []string{filepath.Join(home, SocketName)}
	}

	runtimeDir := d.cfg.RuntimeDir
	if runtimeDir == "" {
		runtimeDir = DefaultRuntimeDir
	}

	paths := []string{filepath.Join(runtimeDir, strconv.Itoa(os.Getuid()), "gnupg", SocketName)}

	if userHome, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(userHome, ".gnupg", SocketName))
	}

	return paths
}

// resolve checks one candidate, following a socket redirect file.
func (d *discoverer) resolve(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		d.log.Debug("Socket candidate missing", "path", path, "error", err)

		return "", false
	}

	switch {
	case info.Mode()&fs.ModeSocket != 0:
		return path, true

	case info.Mode().IsRegular():
		target, err := ReadRedirect(path)
		if err != nil {
			d.log.Debug("Socket candidate is not a redirect", "path", path, "error", err)

			return "", false
		}

		d.log.Debug("Following socket redirect", "path", path, "target", target)

		if tinfo, err := os.Stat(target); err != nil || tinfo.Mode()&fs.ModeSocket == 0 {
			d.log.Debug("Redirect target is not a socket", "target", target)

			return "", false
		}

		return target, true

	default:
		d.log.Debug("Socket candidate has unexpected type", "path", path, "mode", info.Mode().String())

		return "", false
	}
}

// ReadRedirect parses an Assuan socket redirect file and returns the socket
// path it names.
func ReadRedirect(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, maxRedirectSize)

	n, err := f.Read(buf)
	if err != nil {
		return "", fmt.Errorf("read redirect %s: %w", path, err)
	}

	return parseRedirect(buf[:n])
}

func parseRedirect(content []byte) (string, error) {
	if !bytes.HasPrefix(content, []byte(redirectMagic)) {
		return "", fmt.Errorf("missing %s header", redirectMagic)
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Scan() // header

	for scanner.Scan() {
		value, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "socket=")
		if !ok {
			continue
		}

		target := os.Expand(value, os.Getenv)
		if target == "" {
			return "", stderrors.New("empty socket target")
		}

		return target, nil
	}

	return "", fmt.Errorf("no socket= line after %s header", redirectMagic)
}
