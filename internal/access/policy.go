package access

import "time"

// Default timing and keypad layout.
const (
	DefaultPINTimeout    = 15 * time.Second
	DefaultUnlockTimeout = 5 * time.Second
	DefaultRelockTimeout = 1 * time.Second

	DefaultAcceptKey   = 'B'
	DefaultClearKey    = 'C'
	DefaultOverrideKey = 'B'

	// DefaultChangeCode is typed in place of a PIN to start a PIN change.
	DefaultChangeCode = "999"

	DefaultMinPINLength = 4
	// DefaultMaxPINLength is bcrypt's input limit.
	DefaultMaxPINLength = 72
)

// Policy holds the timing and keypad constants of a Machine.
type Policy struct {
	PINTimeout    time.Duration
	UnlockTimeout time.Duration
	RelockTimeout time.Duration

	AcceptKey   rune
	ClearKey    rune
	OverrideKey rune

	ChangeCode   string
	MinPINLength int
	MaxPINLength int
}

// DefaultPolicy returns the standard policy.
func DefaultPolicy() Policy {
	return Policy{
		PINTimeout:    DefaultPINTimeout,
		UnlockTimeout: DefaultUnlockTimeout,
		RelockTimeout: DefaultRelockTimeout,
		AcceptKey:     DefaultAcceptKey,
		ClearKey:      DefaultClearKey,
		OverrideKey:   DefaultOverrideKey,
		ChangeCode:    DefaultChangeCode,
		MinPINLength:  DefaultMinPINLength,
		MaxPINLength:  DefaultMaxPINLength,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.PINTimeout <= 0 {
		p.PINTimeout = d.PINTimeout
	}
	if p.UnlockTimeout <= 0 {
		p.UnlockTimeout = d.UnlockTimeout
	}
	if p.RelockTimeout <= 0 {
		p.RelockTimeout = d.RelockTimeout
	}
	if p.AcceptKey == 0 {
		p.AcceptKey = d.AcceptKey
	}
	if p.ClearKey == 0 {
		p.ClearKey = d.ClearKey
	}
	if p.OverrideKey == 0 {
		p.OverrideKey = d.OverrideKey
	}
	if p.ChangeCode == "" {
		p.ChangeCode = d.ChangeCode
	}
	if p.MinPINLength <= 0 {
		p.MinPINLength = d.MinPINLength
	}
	if p.MaxPINLength <= 0 || p.MaxPINLength > d.MaxPINLength {
		p.MaxPINLength = d.MaxPINLength
	}
	return p
}
