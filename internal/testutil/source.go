package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/doorbot/internal/access"
)

// ScriptStep is one step of a ScriptedSource: either an event delivered
// immediately, or an idle period of Wait during which nothing happens.
type ScriptStep struct {
	Event access.Event
	Wait  time.Duration
}

// Events converts events into script steps.
func Events(evs ...access.Event) []ScriptStep {
	steps := make([]ScriptStep, len(evs))
	for i, ev := range evs {
		steps[i] = ScriptStep{Event: ev}
	}
	return steps
}

// Idle returns a step that lets d pass without input.
func Idle(d time.Duration) ScriptStep {
	return ScriptStep{Wait: d}
}

// ScriptedSource replays a fixed script against a ManualClock.
//
// Idle steps advance the clock. When the caller's timeout is shorter than
// the idle period, Next advances by the timeout only and returns the
// no-event outcome; the rest of the idle period is consumed by later calls.
// Once the script is exhausted Next returns a shutdown event.
type ScriptedSource struct {
	mu       sync.Mutex
	clock    *ManualClock
	steps    []ScriptStep
	timeouts []time.Duration
}

// NewScriptedSource creates a source that replays steps.
func NewScriptedSource(clock *ManualClock, steps ...ScriptStep) *ScriptedSource {
	cp := make([]ScriptStep, len(steps))
	copy(cp, steps)
	return &ScriptedSource{clock: clock, steps: cp}
}

// Next implements engine.Source. A negative timeout waits forever.
func (s *ScriptedSource) Next(ctx context.Context, timeout time.Duration) (access.Event, error) {
	if err := ctx.Err(); err != nil {
		return access.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeouts = append(s.timeouts, timeout)

	for len(s.steps) > 0 {
		st := &s.steps[0]
		if st.Wait <= 0 {
			ev := st.Event
			s.steps = s.steps[1:]
			return ev, nil
		}

		if timeout >= 0 && timeout < st.Wait {
			s.clock.Advance(timeout)
			st.Wait -= timeout
			return access.Event{}, nil
		}

		s.clock.Advance(st.Wait)
		if timeout >= 0 {
			timeout -= st.Wait
		}
		s.steps = s.steps[1:]
	}

	return access.Event{Kind: access.EventShutdown}, nil
}

// Timeouts returns the timeout passed to every Next call, in order.
func (s *ScriptedSource) Timeouts() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.timeouts))
	copy(out, s.timeouts)
	return out
}

// Remaining returns the number of unconsumed steps.
func (s *ScriptedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}
