package eventlog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doorbot/internal/access"
	"github.com/roach88/doorbot/internal/testutil"
)

func createTestCapture(t *testing.T, entries []Entry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.cbor")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create capture: %v", err)
	}
	for _, e := range entries {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	require.Zero(t, logger.Errors())
	return path
}

func readAll(t *testing.T, r *Reader) []Entry {
	t.Helper()
	var out []Entry
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, e)
	}
}

func TestEncodeDecodeEntry(t *testing.T) {
	e := Entry{
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 123456789, time.UTC),
		SessionID: "s1",
		Seq:       7,
		Kind:      "decision",
		State:     "awaiting-pin",
		Outcome:   "denied",
		Token:     "T1",
		Reason:    "wrong-pin",
	}

	data, err := EncodeEntry(e)
	require.NoError(t, err)

	got, err := DecodeEntry(data)
	require.NoError(t, err)
	assert.True(t, e.Timestamp.Equal(got.Timestamp), "nanosecond timestamps survive")
	got.Timestamp = e.Timestamp
	assert.Equal(t, e, got)
}

func TestFileLogger_AppendsAcrossOpens(t *testing.T) {
	path := createTestCapture(t, []Entry{{Seq: 1, Kind: "input"}})

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	logger.Log(Entry{Seq: 2, Kind: "input"})
	require.NoError(t, logger.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	entries := readAll(t, r)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, uint64(2), entries[1].Seq)
}

func TestFileLogger_CloseTwiceAndLogAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
	logger.Log(Entry{Seq: 1})

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestFileLogger_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				logger.Log(Entry{Kind: "command", Command: "beep"})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Len(t, readAll(t, r), 100)
}

func TestReader_Filter(t *testing.T) {
	path := createTestCapture(t, []Entry{
		{SessionID: "a", Kind: "input"},
		{SessionID: "a", Kind: "decision"},
		{SessionID: "b", Kind: "decision"},
		{SessionID: "b", Kind: "command"},
	})

	r, err := NewFilteredReader(path, Filter{SessionID: "b"})
	require.NoError(t, err)
	assert.Len(t, readAll(t, r), 2)
	r.Close()

	r, err = NewFilteredReader(path, Filter{Kinds: []string{"decision"}})
	require.NoError(t, err)
	got := readAll(t, r)
	r.Close()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].SessionID)
	assert.Equal(t, "b", got[1].SessionID)
}

func TestReader_TruncatedEntry(t *testing.T) {
	path := createTestCapture(t, []Entry{{Seq: 1, Kind: "input"}, {Seq: 2, Kind: "input"}})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-2], 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReader_MissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope.cbor"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecorder_CaptureMasksPINDigits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	capture, err := NewFileLogger(path)
	require.NoError(t, err)

	creds := testutil.NewMemoryCredentials()
	creds.Seed("CAFE", "4711", false)
	m := access.New(testutil.NewRecordingHardware(), creds,
		access.WithObserver(NewRecorder(capture, WithSessionID("run-1"))))

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Handle(ctx, access.TokenEvent("CAFE")))
	for _, c := range "4711B" {
		require.NoError(t, m.Handle(ctx, access.KeyEvent(c)))
	}
	require.Equal(t, access.StateOpen, m.State())
	require.NoError(t, capture.Close())

	r, err := NewFilteredReader(path, Filter{Kinds: []string{"input"}})
	require.NoError(t, err)
	defer r.Close()

	var inputs []string
	for _, e := range readAll(t, r) {
		assert.False(t, strings.ContainsAny(e.Input, "0123456789"), "entry %d leaks a digit: %q", e.Seq, e.Input)
		inputs = append(inputs, e.Input)
	}
	assert.Equal(t, []string{"token CAFE", "key *", "key *", "key *", "key *", "key B"}, inputs)
}

func TestRecorder_CapturesMachineRun(t *testing.T) {
	clock := testutil.NewManualClock()
	sink := &MemoryLogger{}
	rec := NewRecorder(sink, WithNow(clock.Now), WithSessionID("run-1"))

	creds := testutil.NewMemoryCredentials()
	creds.Seed("T1", "1234", false)
	m := access.New(testutil.NewRecordingHardware(), creds, access.WithObserver(rec))

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Handle(ctx, access.TokenEvent("T1")))
	require.NoError(t, m.Handle(ctx, access.KeyEvent('1')))

	var lines []string
	for _, e := range sink.Entries() {
		assert.Equal(t, "run-1", e.SessionID)
		assert.Equal(t, testutil.Epoch, e.Timestamp)
		lines = append(lines, e.String())
	}
	assert.Equal(t, []string{
		"2024-01-01T00:00:00Z #1 transition none                 -> awaiting-token",
		"2024-01-01T00:00:00Z #2 command    awaiting-token       led_off",
		"2024-01-01T00:00:00Z #3 input      awaiting-token       token T1",
		"2024-01-01T00:00:00Z #4 transition awaiting-token       -> awaiting-pin",
		"2024-01-01T00:00:00Z #5 command    awaiting-pin         led_blink",
		"2024-01-01T00:00:00Z #6 input      awaiting-pin         key *",
		"2024-01-01T00:00:00Z #7 command    awaiting-pin         beep",
	}, lines)
}

func TestRecorder_GeneratesSessionID(t *testing.T) {
	a := NewRecorder(nil)
	b := NewRecorder(nil)

	assert.Len(t, a.SessionID(), 36)
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}

func TestEntry_StringDecision(t *testing.T) {
	e := Entry{
		Timestamp: testutil.Epoch,
		Seq:       3,
		Kind:      "decision",
		State:     "awaiting-pin",
		Outcome:   "denied",
		Token:     "T1",
		Reason:    "timeout",
	}
	assert.Equal(t,
		"2024-01-01T00:00:00Z #3 decision   awaiting-pin         denied token=T1 reason=timeout",
		e.String())
}
