package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doorbot/internal/access"
	"github.com/roach88/doorbot/internal/testutil"
)

func TestRecordDecision_AssignsSeq(t *testing.T) {
	s, clock := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordDecision(ctx, access.Decision{
		Outcome: access.OutcomeGranted, Token: "t1", State: access.StateAwaitingPIN,
	}))
	clock.Advance(time.Second)
	require.NoError(t, s.RecordDecision(ctx, access.Decision{
		Outcome: access.OutcomeDenied, Token: "T2", Reason: access.ReasonWrongPIN, State: access.StateAwaitingPIN,
	}))

	events, err := s.ListDecisions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, AccessEvent{
		ID: "ev-1", Seq: 1, Token: "T1", Kind: access.OutcomeGranted,
		State: "awaiting-pin", At: testutil.Epoch,
	}, events[0])
	assert.Equal(t, AccessEvent{
		ID: "ev-2", Seq: 2, Token: "T2", Kind: access.OutcomeDenied, Reason: "wrong-pin",
		State: "awaiting-pin", At: testutil.Epoch.Add(time.Second),
	}, events[1])
}

func TestRecordDecision_EmptyToken(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordDecision(ctx, access.Decision{
		Outcome: access.OutcomeForced, State: access.StateAwaitingToken,
	}))

	events, err := s.ListDecisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Token)
	assert.Equal(t, access.OutcomeForced, events[0].Kind)
}

func TestListDecisions_LimitKeepsMostRecent(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordDecision(ctx, access.Decision{
			Outcome: access.OutcomeDenied, Reason: access.ReasonTimeout, State: access.StateAwaitingPIN,
		}))
	}

	events, err := s.ListDecisions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(4), events[0].Seq)
	assert.Equal(t, int64(5), events[1].Seq)
}

func TestListDecisions_Empty(t *testing.T) {
	s, _ := createTestStore(t)

	events, err := s.ListDecisions(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestAuditor_RecordsOnlyDecisions(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	a := NewAuditor(s, slog.New(slog.NewTextHandler(io.Discard, nil)))

	a.Observe(ctx, access.Record{Kind: access.RecordInput, Input: access.KeyEvent('1')})
	a.Observe(ctx, access.Record{Kind: access.RecordCommand, Command: access.CommandBeep})
	a.Observe(ctx, access.Record{Kind: access.RecordDecision, Decision: access.Decision{
		Outcome: access.OutcomeEnrolled, Token: "T7", State: access.StateEnrollingPINVerify,
	}})

	events, err := s.ListDecisions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, access.OutcomeEnrolled, events[0].Kind)
	assert.Equal(t, "enrolling-pin-verify", events[0].State)
}

func TestAuditor_WithMachine(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.AddUser(ctx, "T1", "1234", false))

	hw := testutil.NewRecordingHardware()
	m := access.New(hw, s,
		access.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		access.WithObserver(NewAuditor(s, nil)),
	)
	require.NoError(t, m.Start(ctx))

	require.NoError(t, m.Handle(ctx, access.TokenEvent("t1")))
	for _, c := range "1234B" {
		require.NoError(t, m.Handle(ctx, access.KeyEvent(c)))
	}
	require.Equal(t, access.StateOpen, m.State())

	events, err := s.ListDecisions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, access.OutcomeGranted, events[0].Kind)
	assert.Equal(t, "T1", events[0].Token)
}
