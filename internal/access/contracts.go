package access

import (
	"context"
	"fmt"
)

// Command is a hardware command issued as a side effect of a transition.
type Command string

const (
	CommandLEDOn    Command = "led_on"
	CommandLEDOff   Command = "led_off"
	CommandLEDBlink Command = "led_blink"
	CommandLock     Command = "lock"
	CommandUnlock   Command = "unlock"
	CommandBeep     Command = "beep"
	CommandGrant    Command = "grant"
	CommandDeny     Command = "deny"
)

// Hardware accepts the commands the machine drives.
// Calls are synchronous. A returned error is treated as fatal.
type Hardware interface {
	LEDOn() error
	LEDOff() error
	LEDBlink() error
	Lock() error
	Unlock() error
	Beep() error
	Grant() error
	Deny() error
}

// Execute issues cmd on hw.
func Execute(hw Hardware, cmd Command) error {
	switch cmd {
	case CommandLEDOn:
		return hw.LEDOn()
	case CommandLEDOff:
		return hw.LEDOff()
	case CommandLEDBlink:
		return hw.LEDBlink()
	case CommandLock:
		return hw.Lock()
	case CommandUnlock:
		return hw.Unlock()
	case CommandBeep:
		return hw.Beep()
	case CommandGrant:
		return hw.Grant()
	case CommandDeny:
		return hw.Deny()
	}
	return fmt.Errorf("unknown hardware command %q", cmd)
}

// User is a credential record returned by a successful verification.
type User struct {
	Token string
	Admin bool
}

// Credentials verifies and persists token/PIN pairs.
type Credentials interface {
	// Verify returns the user when pin matches token, nil when it does not.
	Verify(ctx context.Context, token, pin string) (*User, error)

	// UserExists reports whether token is enrolled.
	UserExists(ctx context.Context, token string) (bool, error)

	// AddUser enrolls token with pin.
	AddUser(ctx context.Context, token, pin string, admin bool) error

	// UpdatePIN replaces the PIN of an enrolled token.
	UpdatePIN(ctx context.Context, token, pin string) error
}

// Outcome classifies a Decision.
type Outcome string

const (
	OutcomeGranted    Outcome = "granted"
	OutcomeDenied     Outcome = "denied"
	OutcomeEnrolled   Outcome = "enrolled"
	OutcomePINChanged Outcome = "pin-changed"
	OutcomeForced     Outcome = "door-forced"
	OutcomeStoreError Outcome = "store-error"
)

// Deny reasons.
const (
	ReasonWrongPIN     = "wrong-pin"
	ReasonPINTooShort  = "pin-too-short"
	ReasonPINTooLong   = "pin-too-long"
	ReasonPINMismatch  = "pin-mismatch"
	ReasonTokenKnown   = "token-known"
	ReasonTokenUnknown = "token-unknown"
	ReasonTimeout      = "timeout"
)

// Decision is an access or administrative outcome worth auditing.
type Decision struct {
	Outcome Outcome
	Token   string
	Reason  string
	// State is the state the decision was taken in.
	State State
}

// RecordKind distinguishes Records.
type RecordKind int

const (
	RecordInput RecordKind = iota + 1
	RecordTimeout
	RecordTransition
	RecordCommand
	RecordDecision
)

var recordKindNames = map[RecordKind]string{
	RecordInput:      "input",
	RecordTimeout:    "timeout",
	RecordTransition: "transition",
	RecordCommand:    "command",
	RecordDecision:   "decision",
}

func (k RecordKind) String() string {
	if name, ok := recordKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("record(%d)", int(k))
}

// Record describes one thing the machine did.
// Only the fields relevant to Kind are set.
type Record struct {
	Kind RecordKind

	// State is the state the machine was in when the record was emitted.
	// For transitions it is the source state.
	State State

	Input    Event
	To       State
	Command  Command
	Decision Decision
}

// Observer receives every Record in order, synchronously.
// Implementations must not call back into the Machine.
type Observer interface {
	Observe(ctx context.Context, rec Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, rec Record)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, rec Record) { f(ctx, rec) }
