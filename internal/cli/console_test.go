package cli

import (
	"context"
	"io"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doorbot/internal/access"
	"github.com/roach88/doorbot/internal/testutil"
)

// scriptedLines replays fixed console input, then reports EOF.
type scriptedLines struct {
	lines []string
}

func (s *scriptedLines) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	if line == "^C" {
		return "", readline.ErrInterrupt
	}
	return line, nil
}

func TestParseConsoleLine(t *testing.T) {
	tests := []struct {
		line string
		want []access.Event
	}{
		{"rfid 04A3F2", []access.Event{access.TokenEvent("04A3F2")}},
		{"key 12B", []access.Event{access.KeyEvent('1'), access.KeyEvent('2'), access.KeyEvent('B')}},
		{"door open", []access.Event{access.DoorEvent(true)}},
		{"DOOR Closed", []access.Event{access.DoorEvent(false)}},
		{"addkey", []access.Event{{Kind: access.EventEnroll}}},
		{"openmode", []access.Event{{Kind: access.EventOpenMode}}},
		{"auth-mode", []access.Event{{Kind: access.EventAuthMode}}},
		{"resetpin", []access.Event{{Kind: access.EventResetPIN}}},
		{"", nil},
		{"help", nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseConsoleLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseConsoleLine_Errors(t *testing.T) {
	for _, line := range []string{"rfid", "key", "door", "door ajar", "explode", "shutdown"} {
		t.Run(line, func(t *testing.T) {
			_, err := parseConsoleLine(line)
			require.Error(t, err)
		})
	}

	_, err := parseConsoleLine("quit")
	assert.ErrorIs(t, err, errQuit)
}

func TestSimulate_GrantedEntry(t *testing.T) {
	creds := testutil.NewMemoryCredentials()
	creds.Seed("T1", "1234", false)
	out := &syncBuffer{}

	lr := &scriptedLines{lines: []string{"^C", "rfid T1", "key 1234B", "quit"}}
	err := simulate(context.Background(), lr, out, creds, access.DefaultPolicy(), quietLogger())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "[state] awaiting-pin")
	assert.Contains(t, text, "[decision] granted")
	assert.Contains(t, text, "[hw] lock released")
	assert.Contains(t, text, "[state] open")
	assert.Contains(t, text, "Exiting...")
}

func TestSimulate_Enroll(t *testing.T) {
	creds := testutil.NewMemoryCredentials()
	out := &syncBuffer{}

	lr := &scriptedLines{lines: []string{"enroll", "rfid T2", "key 5678B", "bogus", "key 5678B"}}
	err := simulate(context.Background(), lr, out, creds, access.DefaultPolicy(), quietLogger())
	require.NoError(t, err)

	pin, ok := creds.PIN("T2")
	require.True(t, ok)
	assert.Equal(t, "5678", pin)
	assert.Contains(t, out.String(), `unknown command "bogus"`)
	assert.Contains(t, out.String(), "[decision] enrolled")
}
