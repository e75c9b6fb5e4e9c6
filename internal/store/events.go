package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/doorbot/internal/access"
)

// AccessEvent is one audited access decision.
type AccessEvent struct {
	ID     string         `json:"id"`
	Seq    int64          `json:"seq"`
	Token  string         `json:"token,omitempty"`
	Kind   access.Outcome `json:"kind"`
	Reason string         `json:"reason,omitempty"`
	State  string         `json:"state"`
	At     time.Time      `json:"at"`
}

// RecordDecision appends d to the audit log.
//
// The seq column is assigned inside the INSERT so concurrent writers
// cannot observe the same value.
func (s *Store) RecordDecision(ctx context.Context, d access.Decision) error {
	token := d.Token
	if token != "" {
		if n, err := NormalizeToken(token); err == nil {
			token = n
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_events (id, seq, token, kind, reason, state, at)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?
		FROM access_events
	`,
		s.ids.Generate(),
		token,
		string(d.Outcome),
		d.Reason,
		d.State.String(),
		timestamp(s.now()),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// ListDecisions returns the most recent limit decisions in log order
// (seq ASC, id ASC COLLATE BINARY). A limit <= 0 returns all of them.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListDecisions(ctx context.Context, limit int) ([]AccessEvent, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, token, kind, reason, state, at FROM (
			SELECT id, seq, token, kind, reason, state, at
			FROM access_events
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	events := []AccessEvent{}
	for rows.Next() {
		var (
			ev   AccessEvent
			kind string
			at   string
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.Token, &kind, &ev.Reason, &ev.State, &at); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		ev.Kind = access.Outcome(kind)
		if ev.At, err = parseTimestamp(at); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return events, nil
}
