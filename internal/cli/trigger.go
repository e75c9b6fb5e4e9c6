package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/doorbot/internal/control"
)

// TriggerOptions holds flags for the trigger command.
type TriggerOptions struct {
	*RootOptions
	Addr    string
	Timeout time.Duration
}

// NewTriggerCommand creates the trigger command.
func NewTriggerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TriggerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trigger <command>",
		Short: "Send an admin command to the running daemon",
		Long: `Send an admin command over the control channel.

Commands:
  addkey    enroll the next scanned token
  openmode  leave the door in free-access mode
  authmode  return to token + PIN access
  resetpin  set a new PIN for the next scanned token
  shutdown  stop the daemon
  restart   stop the daemon and ask for a restart

Examples:
  doorbot trigger addkey
  doorbot trigger openmode --addr 10.0.0.5:4242`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", control.DefaultAddr, "control channel address")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "give up after this long")

	return cmd
}

func runTrigger(opts *TriggerOptions, command string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := control.ParseCommand(command); err != nil {
		_ = f.Error(CodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid command", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.Timeout)
	defer cancel()

	f.VerboseLog("sending %q to %s", command, opts.Addr)
	if err := control.Send(ctx, opts.Addr, command); err != nil {
		_ = f.Error(CodeDaemon, err.Error(), map[string]string{"addr": opts.Addr})
		return WrapExitError(ExitFailure, "trigger failed", err)
	}

	if opts.Format == "json" {
		return f.Success(map[string]string{"command": command, "reply": "ok"})
	}
	return f.Success("ok")
}
