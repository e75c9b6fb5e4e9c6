package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/doorbot/internal/access"
)

// Recorder turns machine records into entries. It implements
// access.Observer.
type Recorder struct {
	logger  Logger
	now     func() time.Time
	session string

	mu  sync.Mutex
	seq uint64
}

var _ access.Observer = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithNow sets the timestamp source.
func WithNow(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) RecorderOption {
	return func(r *Recorder) {
		r.session = id
	}
}

// NewRecorder creates a Recorder writing to logger. Each Recorder gets a
// fresh UUIDv7 session ID so captures from successive daemon runs can be
// told apart in one file.
func NewRecorder(logger Logger, opts ...RecorderOption) *Recorder {
	if logger == nil {
		logger = NoopLogger{}
	}
	r := &Recorder{
		logger:  logger,
		now:     time.Now,
		session: uuid.Must(uuid.NewV7()).String(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SessionID returns the session stamped on every entry.
func (r *Recorder) SessionID() string {
	return r.session
}

// Observe implements access.Observer.
func (r *Recorder) Observe(_ context.Context, rec access.Record) {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	e := Entry{
		Timestamp: r.now(),
		SessionID: r.session,
		Seq:       seq,
		Kind:      rec.Kind.String(),
		State:     rec.State.String(),
	}

	switch rec.Kind {
	case access.RecordInput:
		e.Input = rec.Input.String()
	case access.RecordTransition:
		e.To = rec.To.String()
	case access.RecordCommand:
		e.Command = string(rec.Command)
	case access.RecordDecision:
		e.Outcome = string(rec.Decision.Outcome)
		e.Token = rec.Decision.Token
		e.Reason = rec.Decision.Reason
	}

	r.logger.Log(e)
}
