package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	assuan "github.com/wagiedev/assuan-go"
	"github.com/wagiedev/assuan-go/gpgagent"
)

type globalFlags struct {
	config  string
	socket  string
	homedir string
	verbose bool
}

func newRootCmd() *cobra.Command {
	var (
		global globalFlags
		req    gpgagent.PassphraseRequest
	)

	cmd := &cobra.Command{
		Use:   "gpg-askpass [prompt]",
		Short: "Read a passphrase through gpg-agent",
		Long: `gpg-askpass asks gpg-agent for a passphrase, prompting through pinentry
unless the agent already caches it under the given cache ID, and prints it
to standard output.

A single argument is used as the prompt, so the command can serve as
SSH_ASKPASS. Defaults for any flag without a value on the command line are
read from the config file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			required := cmd.Flags().Changed("config")

			cfg, err := loadConfig(global.config, required)
			if err != nil {
				return err
			}

			applyConfig(cmd, cfg, &global, &req)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Prompt = args[0]
			}

			return withAgent(cmd, global, func(ctx context.Context, agent *gpgagent.Agent) error {
				if err := setTerminalOptions(ctx, agent); err != nil {
					return err
				}

				pass, err := agent.GetPassphrase(ctx, req)
				if errors.Is(err, gpgagent.ErrCanceled) {
					return errors.New("canceled")
				}

				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", pass)

				return err
			})
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&global.config, "config", defaultConfigPath(), "config file with default flag values")
	pf.StringVar(&global.socket, "socket", "", "agent socket path (skips discovery)")
	pf.StringVar(&global.homedir, "homedir", "", "GnuPG home directory")
	pf.BoolVarP(&global.verbose, "verbose", "v", false, "log protocol traffic to stderr")

	f := cmd.Flags()
	f.StringVar(&req.CacheID, "cache-id", "", "key for the agent's passphrase cache")
	f.StringVar(&req.Prompt, "prompt", "", "label of the entry field")
	f.StringVar(&req.Description, "description", "", "text explaining what the passphrase is for")
	f.StringVar(&req.ErrorMessage, "error", "", "error text shown above the prompt")
	f.BoolVar(&req.NoAsk, "no-ask", false, "fail instead of prompting when not cached")
	f.IntVar(&req.Repeat, "repeat", 0, "number of confirmation entries")
	f.BoolVar(&req.QualityBar, "qualitybar", false, "show a passphrase quality bar")

	cmd.AddCommand(newClearCmd(&global), newInfoCmd(&global))

	return cmd
}

// applyConfig fills values not given on the command line from cfg.
func applyConfig(cmd *cobra.Command, cfg *fileConfig, global *globalFlags, req *gpgagent.PassphraseRequest) {
	flags := cmd.Flags()

	set := func(name string, dst *string, value string) {
		if value != "" && !flags.Changed(name) {
			*dst = value
		}
	}

	set("socket", &global.socket, cfg.Socket)
	set("homedir", &global.homedir, cfg.HomeDir)
	set("cache-id", &req.CacheID, cfg.CacheID)
	set("prompt", &req.Prompt, cfg.Prompt)
	set("description", &req.Description, cfg.Description)

	if cfg.Verbose && !flags.Changed("verbose") {
		global.verbose = true
	}
}

func newClearCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <cache-id>",
		Short: "Remove a cached passphrase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(cmd, *global, func(ctx context.Context, agent *gpgagent.Agent) error {
				return agent.ClearPassphrase(ctx, args[0])
			})
		},
	}
}

func newInfoCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info [what]",
		Short: "Query agent information (default: version)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			what := "version"
			if len(args) == 1 {
				what = args[0]
			}

			return withAgent(cmd, *global, func(ctx context.Context, agent *gpgagent.Agent) error {
				info, err := agent.GetInfo(ctx, what)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), info)

				return err
			})
		},
	}
}

func withAgent(
	cmd *cobra.Command,
	global globalFlags,
	fn func(ctx context.Context, agent *gpgagent.Agent) error,
) error {
	ctx := cmd.Context()

	opts := []assuan.Option{assuan.WithLogger(newLogger(cmd.ErrOrStderr(), global.verbose))}
	if global.socket != "" {
		opts = append(opts, assuan.WithSocketPath(global.socket))
	}

	if global.homedir != "" {
		opts = append(opts, assuan.WithHomeDir(global.homedir))
	}

	agent, err := gpgagent.Connect(ctx, opts...)
	if err != nil {
		return err
	}
	defer agent.Close()

	return fn(ctx, agent)
}

// setTerminalOptions points pinentry at the caller's terminal and display.
func setTerminalOptions(ctx context.Context, agent *gpgagent.Agent) error {
	if err := agent.SetTTYName(ctx); err != nil {
		return err
	}

	for _, opt := range []struct{ name, env string }{
		{name: "ttytype", env: "TERM"},
		{name: "display", env: "DISPLAY"},
	} {
		value := os.Getenv(opt.env)
		if value == "" {
			continue
		}

		if err := agent.Option(ctx, opt.name, value); err != nil {
			return err
		}
	}

	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return assuan.NopLogger()
	}

	return slog.New(newColorHandler(w))
}
