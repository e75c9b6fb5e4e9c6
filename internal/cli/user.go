package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roach88/doorbot/internal/config"
	"github.com/roach88/doorbot/internal/store"
)

// UserOptions holds flags shared by the user subcommands.
type UserOptions struct {
	*RootOptions
	Database   string
	PIN        string
	Admin      bool
	BcryptCost int
}

// NewUserCommand creates the user command and its subcommands.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage enrolled tokens",
		Long: `Manage the credential database offline.

Tokens are normalized (trimmed, upper-cased) before they are stored.
PINs are stored as bcrypt hashes.

Examples:
  doorbot user add 04A3F2 --pin 1234
  doorbot user add 04A3F2 --pin 1234 --admin
  doorbot user list --format json
  doorbot user passwd 04A3F2 --pin 5678
  doorbot user remove 04A3F2`,
	}

	defaults := config.Default()
	cmd.PersistentFlags().StringVar(&opts.Database, "db", defaults.Database, "path to SQLite database")
	cmd.PersistentFlags().IntVar(&opts.BcryptCost, "bcrypt-cost", defaults.BcryptCost, "bcrypt cost for new PIN hashes")

	add := &cobra.Command{
		Use:           "add <token>",
		Short:         "Enroll a token",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(opts, args[0], cmd)
		},
	}
	add.Flags().StringVar(&opts.PIN, "pin", "", "PIN for the token (prompted for when omitted)")
	add.Flags().BoolVar(&opts.Admin, "admin", false, "mark the user as administrator")

	passwd := &cobra.Command{
		Use:           "passwd <token>",
		Short:         "Replace a token's PIN",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserPasswd(opts, args[0], cmd)
		},
	}
	passwd.Flags().StringVar(&opts.PIN, "pin", "", "new PIN (prompted for when omitted)")

	remove := &cobra.Command{
		Use:           "remove <token>",
		Short:         "Remove a token",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserRemove(opts, args[0], cmd)
		},
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List enrolled tokens",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(opts, cmd)
		},
	}

	cmd.AddCommand(add, passwd, remove, list)
	return cmd
}

func openUserStore(opts *UserOptions) (*store.Store, error) {
	st, err := store.Open(opts.Database, store.WithBcryptCost(opts.BcryptCost))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runUserAdd(opts *UserOptions, token string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err := resolvePIN(opts, cmd); err != nil {
		return err
	}
	st, err := openUserStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.AddUser(cmd.Context(), token, opts.PIN, opts.Admin); err != nil {
		return userError(f, "add", token, err)
	}

	user, err := st.GetUser(cmd.Context(), token)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read back user", err)
	}
	f.VerboseLog("database: %s", opts.Database)
	if opts.Format == "json" {
		return f.Success(user)
	}
	return f.Success(fmt.Sprintf("user %s added%s", user.Token, adminSuffix(user.Admin)))
}

func runUserPasswd(opts *UserOptions, token string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err := resolvePIN(opts, cmd); err != nil {
		return err
	}
	st, err := openUserStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.UpdatePIN(cmd.Context(), token, opts.PIN); err != nil {
		return userError(f, "passwd", token, err)
	}
	normalized, _ := store.NormalizeToken(token)
	if opts.Format == "json" {
		return f.Success(map[string]string{"token": normalized})
	}
	return f.Success(fmt.Sprintf("pin for %s changed", normalized))
}

func runUserRemove(opts *UserOptions, token string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openUserStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.RemoveUser(cmd.Context(), token); err != nil {
		return userError(f, "remove", token, err)
	}
	normalized, _ := store.NormalizeToken(token)
	if opts.Format == "json" {
		return f.Success(map[string]string{"token": normalized})
	}
	return f.Success(fmt.Sprintf("user %s removed", normalized))
}

func runUserList(opts *UserOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openUserStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	users, err := st.ListUsers(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list users", err)
	}
	if opts.Format == "json" {
		return f.Success(users)
	}

	if len(users) == 0 {
		return f.Success("No users enrolled.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-5s %s\n", "TOKEN", "ADMIN", "UPDATED")
	for _, u := range users {
		fmt.Fprintf(&b, "%-20s %-5t %s\n", u.Token, u.Admin, u.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprint(cmd.OutOrStdout(), b.String())
	return nil
}

// resolvePIN fills opts.PIN from an interactive prompt when --pin was not
// given. The PIN is read twice without echo.
func resolvePIN(opts *UserOptions, cmd *cobra.Command) error {
	if opts.PIN != "" {
		return nil
	}
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return NewExitError(ExitCommandError, "--pin is required when stdin is not a terminal")
	}
	fd := int(in.Fd())

	prompt := func(label string) (string, error) {
		fmt.Fprint(cmd.ErrOrStderr(), label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	pin, err := prompt("PIN: ")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read PIN", err)
	}
	again, err := prompt("Repeat PIN: ")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read PIN", err)
	}
	if pin != again {
		return NewExitError(ExitCommandError, "PINs do not match")
	}
	opts.PIN = pin
	return nil
}

// userError reports a store error through f and maps it to an exit code.
func userError(f *OutputFormatter, op, token string, err error) error {
	code := CodeStore
	switch {
	case errors.Is(err, store.ErrUserExists):
		code = CodeUserExists
	case errors.Is(err, store.ErrUserNotFound):
		code = CodeUserNotFound
	case errors.Is(err, store.ErrInvalidToken), errors.Is(err, store.ErrInvalidPIN):
		code = CodeInvalidInput
	}
	_ = f.Error(code, err.Error(), map[string]string{"op": op, "token": token})
	return WrapExitError(ExitFailure, "user "+op+" failed", err)
}

func adminSuffix(admin bool) string {
	if admin {
		return " (admin)"
	}
	return ""
}
