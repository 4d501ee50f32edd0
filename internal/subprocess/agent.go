package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/wagiedev/assuan-go/internal/channel"
	"github.com/wagiedev/assuan-go/internal/config"
	"github.com/wagiedev/assuan-go/internal/discovery"
	"github.com/wagiedev/assuan-go/internal/errors"
)

const (
	// maxStderrBufferSize caps the stderr kept for error reporting.
	maxStderrBufferSize = 64 * 1024

	// exitGrace is how long Close waits for the agent to exit on its own.
	exitGrace = 2 * time.Second
)

// Agent is a gpg-agent child process started with --server.
type Agent struct {
	log     *slog.Logger
	options *config.Options
	cmd     *exec.Cmd
	ch      channel.Channel

	stderrWg  sync.WaitGroup
	stderrMu  sync.Mutex
	stderrBuf strings.Builder

	waitOnce sync.Once
	waitErr  error
	exited   chan struct{}
}

// NewAgent creates an agent process description. Nothing is started until
// Start is called.
func NewAgent(log *slog.Logger, options *config.Options) *Agent {
	return &Agent{
		log:     log.With("component", "agent_process"),
		options: options,
		exited:  make(chan struct{}),
	}
}

// Start locates the gpg-agent binary and spawns it in server mode.
//
// Returns AgentNotFoundError if the binary cannot be located. The context
// only bounds startup; the process outlives it.
func (a *Agent) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.log.Info("Starting gpg-agent subprocess")

	path, err := discovery.FindAgent(a.options.AgentPath, a.log)
	if err != nil {
		return fmt.Errorf("discover agent: %w", err)
	}

	args := append(append([]string{}, a.options.AgentArgs...), "--server")
	if a.options.HomeDir != "" {
		args = append([]string{"--homedir", a.options.HomeDir}, args...)
	}

	a.log.Debug("Built command arguments", "path", path, "args", args)

	//nolint:gosec // G204: launching the configured agent binary is the purpose of this package
	cmd := exec.Command(path, args...)
	cmd.Env = buildEnvironment(a.options.Env)

	ch, err := channel.FromCmd(cmd)
	if err != nil {
		a.log.Error("Failed to create agent pipes", "error", err)

		return &errors.ProcessError{ExitCode: -1, Err: err}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = ch.Close()

		return &errors.ProcessError{ExitCode: -1, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		_ = ch.Close()
		a.log.Error("Failed to start agent process", "error", err)

		return &errors.ProcessError{ExitCode: -1, Err: fmt.Errorf("start process: %w", err)}
	}

	a.cmd = cmd
	a.ch = ch

	a.stderrWg.Go(func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()

			a.stderrMu.Lock()
			if a.stderrBuf.Len() < maxStderrBufferSize {
				if a.stderrBuf.Len() > 0 {
					a.stderrBuf.WriteString("\n")
				}

				a.stderrBuf.WriteString(line)
			}
			a.stderrMu.Unlock()

			if a.options.Stderr != nil {
				a.options.Stderr(line)
			}
		}

		if err := scanner.Err(); err != nil {
			a.log.Debug("Stderr scanner error", "error", err)
		}
	})

	a.log.Info("gpg-agent subprocess started", "pid", cmd.Process.Pid)

	return nil
}

// Channel returns the process's stdio as a channel. Nil before Start.
func (a *Agent) Channel() channel.Channel {
	return a.ch
}

// Wait waits for the process to exit. A non-zero exit is a ProcessError
// carrying the captured stderr.
func (a *Agent) Wait() error {
	if a.cmd == nil {
		return nil
	}

	a.waitOnce.Do(func() {
		a.stderrWg.Wait()

		err := a.cmd.Wait()
		close(a.exited)

		if err == nil {
			a.log.Info("gpg-agent process exited successfully")

			return
		}

		exitCode := -1
		if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
			exitCode = exitErr.ExitCode()
		}

		a.stderrMu.Lock()
		stderr := strings.TrimSpace(a.stderrBuf.String())
		a.stderrMu.Unlock()

		a.log.Debug("gpg-agent process exited with error", "exit_code", exitCode, "stderr", stderr)

		a.waitErr = &errors.ProcessError{ExitCode: exitCode, Stderr: stderr, Err: err}
	})

	return a.waitErr
}

// Close closes the pipes and reaps the process, killing it if it has not
// exited within a short grace period. It's safe to call Close multiple times.
func (a *Agent) Close() error {
	if a.cmd == nil {
		return nil
	}

	_ = a.ch.Close()

	go func() { _ = a.Wait() }()

	select {
	case <-a.exited:
		return nil
	case <-time.After(exitGrace):
	}

	a.log.Debug("Killing gpg-agent process", "pid", a.cmd.Process.Pid)

	if err := a.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill agent process (pid %d): %w", a.cmd.Process.Pid, err)
	}

	<-a.exited

	return nil
}

// buildEnvironment returns the parent environment with extra overrides.
func buildEnvironment(extra map[string]string) []string {
	env := os.Environ()

	for k, v := range extra {
		env = append(env, k+"="+v)
	}

	return env
}
