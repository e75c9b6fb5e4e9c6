package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/doorbot/internal/eventlog"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Session string
	Kinds   []string
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log <capture-file>",
		Short: "Dump an event capture file",
		Long: `Dump a CBOR event capture written by "doorbot run" (config: capture).

Every input, timeout, transition, hardware command and decision is listed
in order. With --format json each entry is printed as one JSON object per
line.

Examples:
  doorbot log /var/lib/doorbot/events.cbor
  doorbot log events.cbor --kind decision
  doorbot log events.cbor --session 01890a5d-ac96-774b-bcce-b302099a8057`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "only entries of this session ID")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "only entries of these kinds (input, timeout, transition, command, decision)")

	return cmd
}

func runLog(opts *LogOptions, path string, cmd *cobra.Command) error {
	r, err := eventlog.NewFilteredReader(path, eventlog.Filter{
		SessionID: opts.Session,
		Kinds:     opts.Kinds,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open capture", err)
	}
	defer r.Close()

	w := cmd.OutOrStdout()
	enc := json.NewEncoder(w)
	count := 0
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("capture corrupt after %d entries", count), err)
		}
		count++

		if opts.Format == "json" {
			if err := enc.Encode(e); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(w, e.String())
	}

	if opts.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d entries\n", count)
	}
	return nil
}
