package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/doorbot/internal/access"
)

// Forever is the timeout passed to Source.Next when no budget is armed.
const Forever time.Duration = -1

// Source delivers input events.
//
// Next blocks until an event is available, the timeout elapses or ctx is
// done. A negative timeout blocks indefinitely. On timeout it returns an
// event of kind access.EventNone and a nil error.
type Source interface {
	Next(ctx context.Context, timeout time.Duration) (access.Event, error)
}

// Outcome reports why Run returned.
type Outcome int

const (
	// OutcomeShutdown is a normal stop: shutdown event or cancelled context.
	OutcomeShutdown Outcome = iota
	// OutcomeRestart is a stop with a restart request.
	OutcomeRestart
)

// String returns the outcome name.
func (o Outcome) String() string {
	if o == OutcomeRestart {
		return "restart"
	}
	return "shutdown"
}

// Engine is the single-writer event loop around an access.Machine.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine
//   - the Source may be fed from any number of goroutines
type Engine struct {
	machine *access.Machine
	source  Source
	clock   Clock
	logger  *slog.Logger

	iterations int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock sets the clock used for timeout accounting.
// Default: SystemClock.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine for m reading events from src.
func New(m *access.Machine, src Source, opts ...EngineOption) *Engine {
	e := &Engine{
		machine: m,
		source:  src,
		clock:   SystemClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the machine in its initial state and processes events until a
// shutdown or restart event, context cancellation, or a fatal error.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// A cancelled context returns OutcomeShutdown together with ctx.Err().
// Fatal errors are returned as *RuntimeError.
func (e *Engine) Run(ctx context.Context) (Outcome, error) {
	e.logger.Info("engine starting")

	if err := e.machine.Start(ctx); err != nil {
		return OutcomeShutdown, e.machineError(err)
	}

	for {
		e.iterations++

		wait := Forever
		remaining, armed := e.machine.Budget()
		var start time.Time
		if armed {
			start = e.clock.Now()
			wait = remaining
		}

		ev, err := e.source.Next(ctx, wait)
		if err != nil {
			if ctx.Err() != nil {
				e.logger.Info("engine stopping: context cancelled")
				return OutcomeShutdown, ctx.Err()
			}
			return OutcomeShutdown, &RuntimeError{
				Code:  ErrCodeSourceFailure,
				State: e.machine.State().String(),
				Err:   err,
			}
		}

		if armed && e.machine.Elapse(e.clock.Now().Sub(start)) {
			if err := e.machine.Timeout(ctx); err != nil {
				return OutcomeShutdown, e.machineError(err)
			}
		}

		if err := e.machine.Handle(ctx, ev); err != nil {
			return OutcomeShutdown, e.machineError(err)
		}

		switch ev.Kind {
		case access.EventShutdown:
			e.logger.Info("engine stopping: shutdown requested")
			return OutcomeShutdown, nil
		case access.EventRestart:
			e.logger.Info("engine stopping: restart requested")
			return OutcomeRestart, nil
		}
	}
}

// Iterations returns how many events (including no-event wakeups) Run has
// waited for.
func (e *Engine) Iterations() int {
	return e.iterations
}

func (e *Engine) machineError(err error) error {
	e.logger.Error("machine failure", "state", e.machine.State(), "error", err)
	return &RuntimeError{
		Code:  ErrCodeMachineFailure,
		State: e.machine.State().String(),
		Err:   err,
	}
}
