package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/doorbot/internal/config"
	"github.com/roach88/doorbot/internal/store"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded access decisions",
		Long: `List the access decisions recorded by the daemon, oldest first.

Every grant, denial, enrollment, PIN change, forced door and credential
store failure is recorded with the token, reason and state.

Examples:
  doorbot audit --db db/user.db
  doorbot audit --limit 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", config.Default().Database, "path to SQLite database")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "show only the most recent n decisions (0 for all)")

	return cmd
}

func runAudit(opts *AuditOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	events, err := st.ListDecisions(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list decisions", err)
	}

	if opts.Format == "json" {
		return f.Success(events)
	}
	if len(events) == 0 {
		return f.Success("No decisions recorded.")
	}

	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "%s #%d %-12s %-20s", e.At.Format(time.RFC3339), e.Seq, e.Kind, e.State)
		if e.Token != "" {
			fmt.Fprintf(&b, " token=%s", e.Token)
		}
		if e.Reason != "" {
			fmt.Fprintf(&b, " reason=%s", e.Reason)
		}
		b.WriteString("\n")
	}
	fmt.Fprint(cmd.OutOrStdout(), b.String())
	return nil
}
