package gpgagent

import (
	"bytes"
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sync/semaphore"
	"golang.org/x/term"

	assuan "github.com/wagiedev/assuan-go"
)

// libgpg-error codes the agent reports in ERR lines.
const (
	codeNoData   = 58
	codeCanceled = 99
)

var (
	// ErrInvalidPassphrase indicates the agent returned a passphrase that is
	// not valid hex.
	ErrInvalidPassphrase = stderrors.New("agent returned an invalid passphrase")

	// ErrCanceled indicates the user dismissed the pinentry dialog.
	ErrCanceled = stderrors.New("operation canceled by user")

	// ErrNotCached indicates a --no-ask request found nothing in the cache.
	ErrNotCached = stderrors.New("passphrase not cached")
)

// Agent wraps a session to gpg-agent.
type Agent struct {
	log     *slog.Logger
	session *assuan.Session
	sem     *semaphore.Weighted
}

// New wraps an established session. The Agent takes ownership of it.
func New(s *assuan.Session, log *slog.Logger) *Agent {
	if log == nil {
		log = assuan.NopLogger()
	}

	return &Agent{
		log:     log.With("component", "gpgagent", "session_id", s.ID()),
		session: s,
		sem:     semaphore.NewWeighted(1),
	}
}

// Connect finds the running gpg-agent and connects to it.
func Connect(ctx context.Context, opts ...assuan.Option) (*Agent, error) {
	s, err := assuan.DialAgent(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return New(s, optionsLogger(opts)), nil
}

// Spawn starts a private gpg-agent in server mode and talks to it over its
// standard streams. Close stops the agent.
func Spawn(ctx context.Context, opts ...assuan.Option) (*Agent, error) {
	s, err := assuan.Spawn(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return New(s, optionsLogger(opts)), nil
}

// Session returns the underlying session. Calls on it bypass the Agent's
// serialization.
func (a *Agent) Session() *assuan.Session {
	return a.session
}

// Close ends the session. It interrupts a call still in flight.
func (a *Agent) Close() error {
	return a.session.Close()
}

// exec runs one command while holding the Agent's lock.
func (a *Agent) exec(ctx context.Context, name string, args ...[]byte) (assuan.Result, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return assuan.Result{}, err
	}
	defer a.sem.Release(1)

	return a.session.Exec(ctx, name, args...)
}

// Option sets an agent option such as ttyname, ttytype, display or
// lc-ctype.
func (a *Agent) Option(ctx context.Context, name, value string) error {
	_, err := a.exec(ctx, "OPTION", []byte(name), []byte(value))

	return err
}

// UpdateStartupTTY makes the agent use this session's terminal settings for
// pinentry prompts triggered by other clients.
func (a *Agent) UpdateStartupTTY(ctx context.Context) error {
	_, err := a.exec(ctx, "UPDATESTARTUPTTY")

	return err
}

// SetTTYName tells the agent which terminal to prompt on, using the
// terminal attached to standard input. It does nothing when standard input
// is not a terminal.
func (a *Agent) SetTTYName(ctx context.Context) error {
	name, ok := ttyName()
	if !ok {
		a.log.Debug("Standard input is not a terminal, not setting ttyname")

		return nil
	}

	return a.Option(ctx, "ttyname", name)
}

// ttyName returns the device path of the terminal on standard input.
var ttyName = func() (string, bool) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", false
	}

	for _, link := range []string{"/proc/self/fd/0", "/dev/fd/0"} {
		if name, err := os.Readlink(link); err == nil && strings.HasPrefix(name, "/dev/") {
			return name, true
		}
	}

	return "", false
}

// PassphraseRequest describes a GET_PASSPHRASE call. Empty text fields are
// sent as "X", which the agent treats as absent.
type PassphraseRequest struct {
	// CacheID keys the agent's passphrase cache.
	CacheID string
	// ErrorMessage is shown above the prompt, e.g. after a wrong entry.
	ErrorMessage string
	// Prompt labels the entry field.
	Prompt string
	// Description explains what the passphrase is for.
	Description string

	// NoAsk returns ErrNotCached instead of prompting on a cache miss.
	NoAsk bool
	// Repeat asks the user to enter the passphrase this many more times.
	Repeat int
	// QualityBar shows a passphrase quality indicator.
	QualityBar bool
}

func (r PassphraseRequest) args() [][]byte {
	args := make([][]byte, 0, 7)

	if r.NoAsk {
		args = append(args, []byte("--no-ask"))
	}

	if r.Repeat > 0 {
		args = append(args, []byte("--repeat="+strconv.Itoa(r.Repeat)))
	}

	if r.QualityBar {
		args = append(args, []byte("--qualitybar"))
	}

	for _, field := range []string{r.CacheID, r.ErrorMessage, r.Prompt, r.Description} {
		args = append(args, []byte(orX(field)))
	}

	return args
}

func orX(s string) string {
	if s == "" {
		return "X"
	}

	return s
}

// GetPassphrase asks the agent for a passphrase, from its cache or by
// prompting the user through pinentry.
func (a *Agent) GetPassphrase(ctx context.Context, req PassphraseRequest) ([]byte, error) {
	res, err := a.exec(ctx, "GET_PASSPHRASE", req.args()...)
	if err != nil {
		return nil, classify(err)
	}

	encoded := []byte(strings.TrimLeft(res.Message, " "))
	if len(encoded) == 0 && len(res.Data) > 0 {
		encoded, err = assuan.Unescape(res.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPassphrase, err)
		}
	}

	encoded = bytes.TrimSpace(encoded)

	pass := make([]byte, hex.DecodedLen(len(encoded)))
	if _, err := hex.Decode(pass, encoded); err != nil {
		return nil, ErrInvalidPassphrase
	}

	return pass, nil
}

// ClearPassphrase removes a passphrase from the agent's cache.
func (a *Agent) ClearPassphrase(ctx context.Context, cacheID string) error {
	_, err := a.exec(ctx, "CLEAR_PASSPHRASE", []byte(cacheID))

	return classify(err)
}

// GetInfo queries agent information such as "version", "pid" or
// "socket_name".
func (a *Agent) GetInfo(ctx context.Context, what string) (string, error) {
	res, err := a.exec(ctx, "GETINFO", []byte(what))
	if err != nil {
		return "", err
	}

	if len(res.Data) > 0 {
		data, err := assuan.Unescape(res.Data)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", what, err)
		}

		return string(data), nil
	}

	return strings.TrimLeft(res.Message, " "), nil
}

// Version returns the agent's version string.
func (a *Agent) Version(ctx context.Context) (string, error) {
	return a.GetInfo(ctx, "version")
}

// Reset returns the session's options to their defaults.
func (a *Agent) Reset(ctx context.Context) error {
	_, err := a.exec(ctx, "RESET")

	return err
}

// classify adds a facade sentinel to well-known remote failures.
func classify(err error) error {
	e, ok := stderrors.AsType[*assuan.Error](err)
	if !ok || e.Kind != assuan.KindRemote {
		return err
	}

	switch e.ErrorCode() {
	case codeCanceled:
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	case codeNoData:
		return fmt.Errorf("%w: %w", ErrNotCached, err)
	default:
		return err
	}
}

func optionsLogger(opts []assuan.Option) *slog.Logger {
	var o assuan.Options
	for _, opt := range opts {
		opt(&o)
	}

	return o.Logger
}
