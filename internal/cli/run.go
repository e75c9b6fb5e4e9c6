package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/doorbot/internal/access"
	"github.com/roach88/doorbot/internal/config"
	"github.com/roach88/doorbot/internal/control"
	"github.com/roach88/doorbot/internal/engine"
	"github.com/roach88/doorbot/internal/eventlog"
	"github.com/roach88/doorbot/internal/hardware"
	"github.com/roach88/doorbot/internal/store"
)

// PortOpener opens a serial device.
type PortOpener func(path string, baud int) (io.ReadWriteCloser, error)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string

	// OpenPort allows overriding how serial links are opened (for testing).
	// If nil, defaults to hardware.OpenSerial.
	OpenPort PortOpener
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the door daemon",
		Long: `Run the door access daemon.

The daemon opens the credential database, the auth and lock serial links
and the control channel, then drives the access state machine until it is
told to stop.

Exit codes:
  0 - Shutdown (signal or "shutdown" trigger)
  1 - Engine error (hardware or serial failure)
  2 - Command error (invalid config, database cannot be opened, etc.)
  3 - Restart requested ("restart" trigger or lost serial link)

Example:
  doorbot run --config /etc/doorbot.yaml
  DOORBOT_LOG_LEVEL=debug doorbot run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file (defaults apply when empty)")

	return cmd
}

func runDaemon(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger, closeLog, err := newDaemonLogger(cfg, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open log file", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	// Open database (create if not exists)
	logger.Info("opening database", "path", cfg.Database)
	if dir := filepath.Dir(cfg.Database); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}
	st, err := store.Open(cfg.Database, store.WithBcryptCost(cfg.BcryptCost))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	openPort := opts.OpenPort
	if openPort == nil {
		openPort = func(path string, baud int) (io.ReadWriteCloser, error) {
			return hardware.OpenSerial(path, baud)
		}
	}
	authPort, err := openPort(cfg.Auth.Device, cfg.Auth.Baud)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open auth link", err)
	}
	defer authPort.Close()
	lockPort, err := openPort(cfg.Lock.Device, cfg.Lock.Baud)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open lock link", err)
	}
	defer lockPort.Close()

	machineOpts := []access.Option{
		access.WithPolicy(cfg.Policy()),
		access.WithLogger(logger),
		access.WithObserver(store.NewAuditor(st, logger)),
	}
	if cfg.Capture != "" {
		capture, err := eventlog.NewFileLogger(cfg.Capture)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open capture file", err)
		}
		defer capture.Close()
		rec := eventlog.NewRecorder(capture)
		logger.Info("capturing events", "path", cfg.Capture, "session", rec.SessionID())
		machineOpts = append(machineOpts, access.WithObserver(rec))
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	queue := hardware.NewQueue()
	auth := hardware.NewLink("auth", authPort, logger)
	lock := hardware.NewLink("lock", lockPort, logger)

	var wg sync.WaitGroup
	for _, link := range []*hardware.Link{auth, lock} {
		link := link
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := link.Pump(ctx, queue)
			if ctx.Err() != nil {
				return
			}
			// A link that stops delivering leaves the door deaf; let the
			// supervisor restart us with fresh devices.
			logger.Error("serial link lost", "link", link.Name(), "error", err)
			queue.Enqueue(access.Event{Kind: access.EventRestart})
		}()
	}

	if cfg.Control.Listen != "" {
		server := control.NewServer(queue, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.ListenAndServe(ctx, cfg.Control.Listen); err != nil {
				logger.Error("control channel stopped", "error", err)
			}
		}()
	}

	m := access.New(hardware.NewDoor(auth, lock), st, machineOpts...)
	eng := engine.New(m, queue, engine.WithLogger(logger))

	logger.Info("daemon starting", "auth", cfg.Auth.Device, "lock", cfg.Lock.Device, "control", cfg.Control.Listen)
	fmt.Fprintln(cmd.OutOrStdout(), "doorbot running. Press Ctrl-C to stop.")

	outcome, runErr := eng.Run(ctx)

	// Unblock the pumps: readers only return once their port is closed.
	cancel()
	queue.Close()
	authPort.Close()
	lockPort.Close()
	wg.Wait()

	return daemonExit(logger, outcome, runErr, eng.Iterations())
}

// daemonExit maps the result of the engine loop to the process exit.
// A failed event source is restartable; a failed machine is not.
func daemonExit(logger *slog.Logger, outcome engine.Outcome, err error, iterations int) error {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case engine.IsSourceError(err):
		logger.Error("event source failed", "error", err, "iterations", iterations)
		return WrapExitError(ExitRestart, "event source failed", err)
	case engine.IsMachineError(err):
		logger.Error("state machine failed", "error", err, "iterations", iterations)
		return WrapExitError(ExitFailure, "state machine failed", err)
	default:
		return WrapExitError(ExitFailure, "engine error", err)
	}

	if outcome == engine.OutcomeRestart {
		logger.Info("daemon stopped, restart requested", "iterations", iterations)
		return NewExitError(ExitRestart, "restart requested")
	}

	logger.Info("daemon stopped gracefully", "iterations", iterations)
	return nil
}

// newDaemonLogger builds the daemon logger from the config. Verbose forces
// debug level.
func newDaemonLogger(cfg config.Config, verbose bool, stderr io.Writer) (*slog.Logger, func(), error) {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}

	w := stderr
	closeFn := func() {}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = func() { f.Close() }
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeFn, nil
}
