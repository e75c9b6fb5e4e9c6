package access

import "fmt"

// State identifies the machine's current state.
// Exactly one State is active at any time.
type State int

const (
	// StateAwaitingToken waits for a token scan. This is the resting state.
	StateAwaitingToken State = iota + 1
	// StateAwaitingPIN collects the PIN for the scanned token.
	StateAwaitingPIN
	// StateOpen holds the door unlocked for the unlock timeout.
	StateOpen
	// StateRelocking has just re-engaged the lock.
	StateRelocking
	// StateEnrollingToken waits for the token to enroll.
	StateEnrollingToken
	// StateEnrollingPINNew collects the first PIN for a new token.
	StateEnrollingPINNew
	// StateEnrollingPINVerify collects the confirmation PIN for a new token.
	StateEnrollingPINVerify
	// StateResettingPIN waits for the token whose PIN is being reset.
	StateResettingPIN
	// StatePINChangeOld collects the current PIN before a change.
	StatePINChangeOld
	// StatePINChangeNew collects the replacement PIN.
	StatePINChangeNew
	// StatePINChangeVerify collects the confirmation of the replacement PIN.
	StatePINChangeVerify
	// StateOpenMode leaves the door in free-access mode until an admin
	// trigger moves it elsewhere.
	StateOpenMode
)

var stateNames = map[State]string{
	StateAwaitingToken:      "awaiting-token",
	StateAwaitingPIN:        "awaiting-pin",
	StateOpen:               "open",
	StateRelocking:          "relocking",
	StateEnrollingToken:     "enrolling-token",
	StateEnrollingPINNew:    "enrolling-pin-new",
	StateEnrollingPINVerify: "enrolling-pin-verify",
	StateResettingPIN:       "resetting-pin",
	StatePINChangeOld:       "pin-change-old",
	StatePINChangeNew:       "pin-change-new",
	StatePINChangeVerify:    "pin-change-verify",
	StateOpenMode:           "open-mode",
}

// AllStates lists every valid state in declaration order.
func AllStates() []State {
	return []State{
		StateAwaitingToken,
		StateAwaitingPIN,
		StateOpen,
		StateRelocking,
		StateEnrollingToken,
		StateEnrollingPINNew,
		StateEnrollingPINVerify,
		StateResettingPIN,
		StatePINChangeOld,
		StatePINChangeNew,
		StatePINChangeVerify,
		StateOpenMode,
	}
}

// String returns the kebab-case state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	if s == 0 {
		return "none"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState converts a state name produced by String back to a State.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

func (s State) known() bool {
	_, ok := stateNames[s]
	return ok
}

// CollectsPIN reports whether keypad digits are accepted in this state.
func (s State) CollectsPIN() bool {
	switch s {
	case StateAwaitingPIN,
		StateEnrollingPINNew,
		StateEnrollingPINVerify,
		StatePINChangeOld,
		StatePINChangeNew,
		StatePINChangeVerify:
		return true
	}
	return false
}

// Authorized reports whether the door may legitimately be open in this state.
func (s State) Authorized() bool {
	return s == StateOpenMode || s == StateOpen || s == StateRelocking
}
