package testutil

import (
	"context"
	"sync"

	"github.com/roach88/doorbot/internal/access"
)

// RecordingObserver collects every access.Record it sees.
type RecordingObserver struct {
	mu      sync.Mutex
	records []access.Record
}

// Observe implements access.Observer.
func (o *RecordingObserver) Observe(_ context.Context, rec access.Record) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
}

// Records returns a copy of everything observed.
func (o *RecordingObserver) Records() []access.Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]access.Record, len(o.records))
	copy(out, o.records)
	return out
}

// Decisions returns only the decision records' payloads.
func (o *RecordingObserver) Decisions() []access.Decision {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []access.Decision
	for _, r := range o.records {
		if r.Kind == access.RecordDecision {
			out = append(out, r.Decision)
		}
	}
	return out
}
