package store

import (
	"context"
	"log/slog"

	"github.com/roach88/doorbot/internal/access"
)

// Auditor writes every access decision to the store.
//
// Observers cannot fail the machine, so write errors are logged and the
// decision is dropped from the audit log.
type Auditor struct {
	store  *Store
	logger *slog.Logger
}

var _ access.Observer = (*Auditor)(nil)

// NewAuditor returns an observer that records decisions in s.
func NewAuditor(s *Store, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{store: s, logger: logger}
}

// Observe implements access.Observer.
func (a *Auditor) Observe(ctx context.Context, rec access.Record) {
	if rec.Kind != access.RecordDecision {
		return
	}
	if err := a.store.RecordDecision(ctx, rec.Decision); err != nil {
		a.logger.Error("audit write failed",
			"outcome", rec.Decision.Outcome,
			"error", err,
		)
	}
}
