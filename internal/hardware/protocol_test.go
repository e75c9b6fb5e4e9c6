package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doorbot/internal/access"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want access.Event
	}{
		{"K1", access.KeyEvent('1')},
		{"KB", access.KeyEvent('B')},
		{"K#\r", access.KeyEvent('#')},
		{"R0004A3F2", access.TokenEvent("0004A3F2")},
		{"R 12345 ", access.TokenEvent("12345")},
		{"D1", access.DoorEvent(true)},
		{"D0", access.DoorEvent(false)},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_Rejects(t *testing.T) {
	for _, line := range []string{"", "   ", "K", "K12", "R", "R  ", "D", "D2", "Z9", "hello"} {
		_, err := ParseLine(line)
		assert.Error(t, err, "line %q", line)
	}
}
