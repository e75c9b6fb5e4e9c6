package testutil

import (
	"sync"

	"github.com/roach88/doorbot/internal/access"
)

// RecordingHardware implements access.Hardware by recording every command.
//
// Failures can be injected per command with FailOn.
type RecordingHardware struct {
	mu       sync.Mutex
	commands []access.Command
	fail     map[access.Command]error
}

// NewRecordingHardware creates an empty recorder.
func NewRecordingHardware() *RecordingHardware {
	return &RecordingHardware{fail: make(map[access.Command]error)}
}

// FailOn makes cmd return err. The command is still recorded.
func (h *RecordingHardware) FailOn(cmd access.Command, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fail[cmd] = err
}

// Commands returns a copy of the recorded commands.
func (h *RecordingHardware) Commands() []access.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]access.Command, len(h.commands))
	copy(out, h.commands)
	return out
}

// Count returns how many times cmd was issued.
func (h *RecordingHardware) Count(cmd access.Command) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.commands {
		if c == cmd {
			n++
		}
	}
	return n
}

// Reset forgets recorded commands. Injected failures are kept.
func (h *RecordingHardware) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = nil
}

func (h *RecordingHardware) record(cmd access.Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
	return h.fail[cmd]
}

func (h *RecordingHardware) LEDOn() error    { return h.record(access.CommandLEDOn) }
func (h *RecordingHardware) LEDOff() error   { return h.record(access.CommandLEDOff) }
func (h *RecordingHardware) LEDBlink() error { return h.record(access.CommandLEDBlink) }
func (h *RecordingHardware) Lock() error     { return h.record(access.CommandLock) }
func (h *RecordingHardware) Unlock() error   { return h.record(access.CommandUnlock) }
func (h *RecordingHardware) Beep() error     { return h.record(access.CommandBeep) }
func (h *RecordingHardware) Grant() error    { return h.record(access.CommandGrant) }
func (h *RecordingHardware) Deny() error     { return h.record(access.CommandDeny) }

var _ access.Hardware = (*RecordingHardware)(nil)
