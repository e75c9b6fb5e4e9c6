package hardware

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/roach88/doorbot/internal/access"
)

// Outbound command lines.
const (
	lineLEDOn    = "L1"
	lineLEDOff   = "L0"
	lineLEDBlink = "LB"
	lineBeep     = "B"
	lineGrant    = "G"
	lineDeny     = "X"
	lineUnlock   = "U"
	lineLock     = "K"
)

// ParseLine decodes one inbound line into an event.
//
// Trailing carriage returns and surrounding spaces are ignored. Lines that
// do not match the protocol return an error; readers log and drop them.
func ParseLine(line string) (access.Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return access.Event{}, fmt.Errorf("empty line")
	}

	body := line[1:]
	switch line[0] {
	case 'K':
		r, size := utf8.DecodeRuneInString(body)
		if size == 0 || size != len(body) || r == utf8.RuneError {
			return access.Event{}, fmt.Errorf("key line %q: want exactly one character", line)
		}
		return access.KeyEvent(r), nil
	case 'R':
		code := strings.TrimSpace(body)
		if code == "" {
			return access.Event{}, fmt.Errorf("token line %q: empty code", line)
		}
		return access.TokenEvent(code), nil
	case 'D':
		switch body {
		case "1":
			return access.DoorEvent(true), nil
		case "0":
			return access.DoorEvent(false), nil
		}
		return access.Event{}, fmt.Errorf("door line %q: want D0 or D1", line)
	}
	return access.Event{}, fmt.Errorf("unknown line %q", line)
}
