package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/doorbot/internal/access"
	"github.com/roach88/doorbot/internal/control"
	"github.com/roach88/doorbot/internal/engine"
	"github.com/roach88/doorbot/internal/eventlog"
	"github.com/roach88/doorbot/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Outcome is how the event loop ended ("shutdown" or "restart").
	Outcome string `json:"outcome"`

	// FinalState is the machine state after the run.
	FinalState string `json:"final_state"`

	// Trace is the captured record stream, one line per record.
	Trace []string `json:"trace"`

	// Commands are the hardware commands in issue order.
	Commands []access.Command `json:"commands"`

	// Decisions are the access decisions in order.
	Decisions []access.Decision `json:"decisions"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Seed in-memory credentials from scenario users
// 2. Build a script from the steps on a manual clock
// 3. Run the real machine and event loop until the script is exhausted
// 4. Evaluate assertions
//
// Run returns an error only when the loop fails (for example, a hardware
// failure); assertion failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewManualClock()
	creds := testutil.NewMemoryCredentials()
	for _, u := range scenario.Users {
		creds.Seed(u.Token, u.PIN, u.Admin)
	}
	hw := testutil.NewRecordingHardware()
	decisions := &testutil.RecordingObserver{}
	capture := &eventlog.MemoryLogger{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios

	m := access.New(hw, creds,
		access.WithLogger(logger),
		access.WithObserver(decisions),
		access.WithObserver(eventlog.NewRecorder(capture,
			eventlog.WithNow(clock.Now),
			eventlog.WithSessionID(scenario.Name),
		)),
	)

	script, err := buildScript(scenario.Steps)
	if err != nil {
		return nil, err
	}
	src := testutil.NewScriptedSource(clock, script...)
	eng := engine.New(m, src, engine.WithClock(clock), engine.WithLogger(logger))

	outcome, err := eng.Run(context.Background())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{
		Pass:       true,
		Outcome:    outcome.String(),
		FinalState: m.State().String(),
		Trace:      []string{},
		Commands:   hw.Commands(),
		Decisions:  decisions.Decisions(),
		Errors:     []string{},
	}
	for _, e := range capture.Entries() {
		result.Trace = append(result.Trace, e.String())
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, creds) {
		result.AddError(msg)
	}
	return result, nil
}

// buildScript converts scenario steps into scripted source steps.
func buildScript(steps []Step) ([]testutil.ScriptStep, error) {
	var script []testutil.ScriptStep
	for i, st := range steps {
		switch {
		case st.RFID != "":
			script = append(script, testutil.Events(access.TokenEvent(st.RFID))...)
		case st.Keys != "":
			for _, c := range st.Keys {
				script = append(script, testutil.Events(access.KeyEvent(c))...)
			}
		case st.Door != "":
			script = append(script, testutil.Events(access.DoorEvent(st.Door == "open"))...)
		case st.Trigger != "":
			ev, err := control.ParseCommand(st.Trigger)
			if err != nil {
				return nil, fmt.Errorf("steps[%d]: %w", i, err)
			}
			script = append(script, testutil.Events(ev)...)
		case st.Wait > 0:
			script = append(script, testutil.Idle(st.Wait))
		default:
			return nil, fmt.Errorf("steps[%d]: empty step", i)
		}
	}
	return script, nil
}
