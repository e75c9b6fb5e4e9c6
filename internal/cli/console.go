package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/roach88/doorbot/internal/access"
	"github.com/roach88/doorbot/internal/config"
	"github.com/roach88/doorbot/internal/control"
	"github.com/roach88/doorbot/internal/engine"
	"github.com/roach88/doorbot/internal/hardware"
	"github.com/roach88/doorbot/internal/store"
)

// ConsoleOptions holds flags for the console command.
type ConsoleOptions struct {
	*RootOptions
	Database   string
	ConfigPath string
}

// errQuit ends the console loop.
var errQuit = errors.New("quit")

const consoleHelp = `Commands:
  rfid <code>         scan a token
  key <chars>         press keys (e.g. "key 1234B")
  door open|closed    report the door sensor
  addkey | enroll     enroll the next scanned token
  openmode            free-access mode
  authmode            back to token + PIN
  resetpin            reset the PIN of the next scanned token
  help                show this help
  quit                stop the simulator`

// NewConsoleCommand creates the console command.
func NewConsoleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConsoleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive door simulator",
		Long: `Drive the access state machine from the terminal.

Typed commands stand in for the token reader, keypad and door sensor.
Hardware commands (LED, lock, beeper, chimes) are printed instead of sent.
Credentials come from the real database, and timeouts run in real time.

Example:
  doorbot console --db db/user.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", config.Default().Database, "path to SQLite database")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file for timeouts and keypad layout")

	return cmd
}

func runConsole(opts *ConsoleOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := store.Open(opts.Database, store.WithBcryptCost(cfg.BcryptCost))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "door> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create readline", err)
	}
	defer rl.Close()

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(rl.Stderr(), &slog.HandlerOptions{Level: level}))

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return simulate(parent, rl, rl.Stdout(), st, cfg.Policy(), logger)
}

// lineReader is the part of *readline.Instance the simulator uses.
type lineReader interface {
	Readline() (string, error)
}

// simulate runs the machine against a console until the reader is
// exhausted or the user quits.
func simulate(ctx context.Context, lr lineReader, out io.Writer, creds access.Credentials, policy access.Policy, logger *slog.Logger) error {
	machineOpts := []access.Option{access.WithPolicy(policy), access.WithLogger(logger)}
	if st, ok := creds.(*store.Store); ok {
		machineOpts = append(machineOpts, access.WithObserver(store.NewAuditor(st, logger)))
	}
	machineOpts = append(machineOpts, access.WithObserver(access.ObserverFunc(func(_ context.Context, rec access.Record) {
		switch rec.Kind {
		case access.RecordTransition:
			fmt.Fprintf(out, "[state] %s\n", rec.To)
		case access.RecordDecision:
			fmt.Fprintf(out, "[decision] %s %s\n", rec.Decision.Outcome, rec.Decision.Reason)
		}
	})))

	m := access.New(hardware.NewConsole(out), creds, machineOpts...)
	queue := hardware.NewQueue()
	eng := engine.New(m, queue, engine.WithLogger(logger))

	type runResult struct {
		outcome engine.Outcome
		err     error
	}
	done := make(chan runResult, 1)
	go func() {
		outcome, err := eng.Run(ctx)
		done <- runResult{outcome, err}
	}()

	fmt.Fprintln(out, consoleHelp)
	for {
		line, err := lr.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			break
		}

		events, err := parseConsoleLine(line)
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%v (type 'help' for commands)\n", err)
			continue
		}
		if events == nil {
			if strings.TrimSpace(line) != "" {
				fmt.Fprintln(out, consoleHelp)
			}
			continue
		}
		for _, ev := range events {
			queue.Enqueue(ev)
		}
	}

	fmt.Fprintln(out, "Exiting...")
	queue.Close()
	res := <-done
	if res.err != nil && !errors.Is(res.err, context.Canceled) {
		return WrapExitError(ExitFailure, "simulator error", res.err)
	}
	return nil
}

// parseConsoleLine converts one console line into events. Blank lines and
// help return no events and no error.
func parseConsoleLine(line string) ([]access.Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "help", "?":
		return nil, nil

	case "quit", "exit", "q":
		return nil, errQuit

	case "rfid", "r":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: rfid <code>")
		}
		return []access.Event{access.TokenEvent(args[0])}, nil

	case "key", "k":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: key <chars>")
		}
		var events []access.Event
		for _, c := range args[0] {
			events = append(events, access.KeyEvent(c))
		}
		return events, nil

	case "door", "d":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: door open|closed")
		}
		switch strings.ToLower(args[0]) {
		case "open":
			return []access.Event{access.DoorEvent(true)}, nil
		case "closed", "close":
			return []access.Event{access.DoorEvent(false)}, nil
		}
		return nil, fmt.Errorf("usage: door open|closed")
	}

	ev, err := control.ParseCommand(cmd)
	if err != nil {
		return nil, err
	}
	if ev.Terminal() {
		return nil, fmt.Errorf("%s is not available in the console; use quit", cmd)
	}
	return []access.Event{ev}, nil
}
