package access

import "fmt"

// EventKind distinguishes input events.
type EventKind int

const (
	// EventNone is the "no event" outcome of a wait that timed out.
	EventNone EventKind = iota
	// EventDoor reports the door sensor. See Event.DoorOpen.
	EventDoor
	// EventKey reports a keypad press. See Event.Key.
	EventKey
	// EventToken reports a token scan. See Event.Token.
	EventToken
	// EventEnroll is the enroll admin trigger.
	EventEnroll
	// EventOpenMode is the open-mode admin trigger.
	EventOpenMode
	// EventAuthMode is the authenticated-mode admin trigger.
	EventAuthMode
	// EventResetPIN is the reset-pin admin trigger.
	EventResetPIN
	// EventShutdown asks the driver to stop normally.
	EventShutdown
	// EventRestart asks the driver to stop and request a restart.
	EventRestart
)

var eventKindNames = map[EventKind]string{
	EventNone:     "none",
	EventDoor:     "door",
	EventKey:      "key",
	EventToken:    "token",
	EventEnroll:   "enroll",
	EventOpenMode: "open-mode",
	EventAuthMode: "auth-mode",
	EventResetPIN: "reset-pin",
	EventShutdown: "shutdown",
	EventRestart:  "restart",
}

// String returns the event kind name.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is one input delivered by the hardware or the control channel.
type Event struct {
	Kind EventKind

	// DoorOpen is set for EventDoor: true when the sensor reports open.
	DoorOpen bool

	// Key is the keypad character for EventKey.
	Key rune

	// Token is the scanned code for EventToken.
	Token string
}

// DoorEvent returns a door sensor event.
func DoorEvent(open bool) Event {
	return Event{Kind: EventDoor, DoorOpen: open}
}

// KeyEvent returns a keypad event.
func KeyEvent(c rune) Event {
	return Event{Kind: EventKey, Key: c}
}

// TokenEvent returns a token scan event.
func TokenEvent(code string) Event {
	return Event{Kind: EventToken, Token: code}
}

// Terminal reports whether the event ends the driver loop.
func (e Event) Terminal() bool {
	return e.Kind == EventShutdown || e.Kind == EventRestart
}

// String renders the event for logs and traces.
// Token codes are printed verbatim. Digit keys are masked so captures and
// traces never hold a PIN.
func (e Event) String() string {
	switch e.Kind {
	case EventDoor:
		if e.DoorOpen {
			return "door open"
		}
		return "door closed"
	case EventKey:
		if e.Key >= '0' && e.Key <= '9' {
			return "key *"
		}
		return fmt.Sprintf("key %c", e.Key)
	case EventToken:
		return "token " + e.Token
	}
	return e.Kind.String()
}
