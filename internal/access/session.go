package access

import "time"

// Budget is the remaining time the current state may wait for input.
// An unarmed Budget means "wait indefinitely".
//
// The zero value is unarmed.
type Budget struct {
	remaining time.Duration
	armed     bool
}

// Set arms the budget with d.
func (b *Budget) Set(d time.Duration) {
	b.remaining = d
	b.armed = true
}

// Clear disarms the budget.
func (b *Budget) Clear() {
	b.remaining = 0
	b.armed = false
}

// Remaining returns the time left and whether the budget is armed.
func (b Budget) Remaining() (time.Duration, bool) {
	return b.remaining, b.armed
}

// Consume subtracts elapsed from an armed budget and reports whether it is
// now exhausted. An exhausted budget is disarmed. Elapsed time larger than
// the remainder saturates at zero; negative elapsed time counts as zero.
func (b *Budget) Consume(elapsed time.Duration) bool {
	if !b.armed {
		return false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= b.remaining {
		b.Clear()
		return true
	}
	b.remaining -= elapsed
	return false
}

// Session is the mutable input state owned by a Machine.
type Session struct {
	// Token is the code captured for the current attempt.
	Token string

	// PIN holds the digits typed so far.
	PIN string

	// PendingPIN is the first entry of a two-step PIN flow. Only read in
	// StateEnrollingPINVerify and StatePINChangeVerify.
	PendingPIN string

	// Budget is the timeout budget of the current state.
	Budget Budget
}
