package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Machine is the door access state machine.
//
// Thread-safety: a Machine is not safe for concurrent use. It is owned by
// exactly one driver goroutine.
type Machine struct {
	hw        Hardware
	creds     Credentials
	policy    Policy
	logger    *slog.Logger
	observers []Observer

	state   State
	session Session
}

// Option configures a Machine.
type Option func(*Machine)

// WithPolicy overrides timing and keypad constants.
// Zero fields keep their defaults.
func WithPolicy(p Policy) Option {
	return func(m *Machine) {
		m.policy = p.withDefaults()
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithObserver registers an observer. May be given several times.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		m.observers = append(m.observers, o)
	}
}

// New creates a Machine. Call Start before delivering events.
func New(hw Hardware, creds Credentials, opts ...Option) *Machine {
	m := &Machine{
		hw:     hw,
		creds:  creds,
		policy: DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start enters StateAwaitingToken.
func (m *Machine) Start(ctx context.Context) error {
	return m.enter(ctx, StateAwaitingToken)
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Session returns a copy of the current session.
func (m *Machine) Session() Session {
	return m.session
}

// Policy returns the active policy.
func (m *Machine) Policy() Policy {
	return m.policy
}

// Budget returns the remaining timeout budget and whether it is armed.
func (m *Machine) Budget() (time.Duration, bool) {
	return m.session.Budget.Remaining()
}

// Elapse charges elapsed wall-clock time against the budget and reports
// whether it is exhausted. The caller must then invoke Timeout.
func (m *Machine) Elapse(elapsed time.Duration) bool {
	return m.session.Budget.Consume(elapsed)
}

// Timeout handles an exhausted budget.
func (m *Machine) Timeout(ctx context.Context) error {
	m.logger.Debug("timeout", "state", m.state)
	m.observe(ctx, Record{Kind: RecordTimeout, State: m.state})

	switch m.state {
	case StateAwaitingPIN,
		StateEnrollingToken,
		StateResettingPIN,
		StateEnrollingPINNew,
		StateEnrollingPINVerify,
		StatePINChangeOld,
		StatePINChangeNew,
		StatePINChangeVerify:
		return m.deny(ctx, ReasonTimeout)
	case StateRelocking:
		return m.enter(ctx, StateAwaitingToken)
	case StateOpen:
		return m.enter(ctx, StateRelocking)
	case StateAwaitingToken, StateOpenMode:
		return nil
	}
	return m.unknownState()
}

// Handle dispatches one input event.
// Shutdown and restart are left to the driver and are no-ops here.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	if ev.Kind != EventNone {
		m.observe(ctx, Record{Kind: RecordInput, State: m.state, Input: ev})
	}

	switch ev.Kind {
	case EventNone, EventShutdown, EventRestart:
		return nil
	case EventDoor:
		if ev.DoorOpen {
			return m.doorOpened(ctx)
		}
		m.logger.Info("door closed")
		return nil
	case EventKey:
		return m.keyPressed(ctx, ev.Key)
	case EventToken:
		return m.tokenScanned(ctx, ev.Token)
	case EventEnroll:
		return m.enter(ctx, StateEnrollingToken)
	case EventOpenMode:
		return m.enter(ctx, StateOpenMode)
	case EventAuthMode:
		return m.enter(ctx, StateRelocking)
	case EventResetPIN:
		return m.enter(ctx, StateResettingPIN)
	}
	return fmt.Errorf("%w: %v", ErrUnknownEvent, ev.Kind)
}

// enter performs the entry action of next.
func (m *Machine) enter(ctx context.Context, next State) error {
	prev := m.state
	m.logger.Debug("state", "from", prev, "to", next)
	m.observe(ctx, Record{Kind: RecordTransition, State: prev, To: next})
	m.state = next

	s := &m.session
	switch next {
	case StateAwaitingToken:
		s.Budget.Clear()
		s.Token = ""
		return m.command(ctx, CommandLEDOff)

	case StateAwaitingPIN, StateEnrollingPINNew, StatePINChangeOld, StatePINChangeNew:
		s.Budget.Set(m.policy.PINTimeout)
		s.PIN = ""
		return m.command(ctx, CommandLEDBlink)

	case StateEnrollingPINVerify, StatePINChangeVerify:
		s.Budget.Set(m.policy.PINTimeout)
		s.PendingPIN = s.PIN
		s.PIN = ""
		return m.command(ctx, CommandLEDBlink)

	case StateEnrollingToken, StateResettingPIN:
		s.Budget.Set(m.policy.PINTimeout)
		s.Token = ""
		return m.command(ctx, CommandLEDBlink)

	case StateOpenMode:
		s.Budget.Clear()
		return m.command(ctx, CommandLEDOn, CommandGrant)

	case StateOpen:
		s.Budget.Set(m.policy.UnlockTimeout)
		s.PIN = ""
		return m.command(ctx, CommandLEDOn, CommandUnlock, CommandGrant)

	case StateRelocking:
		s.Budget.Set(m.policy.RelockTimeout)
		return m.command(ctx, CommandLEDOff, CommandLock)
	}
	return m.unknownState()
}

// deny signals a denial and returns to StateAwaitingToken.
func (m *Machine) deny(ctx context.Context, reason string) error {
	return m.denyToken(ctx, m.session.Token, reason)
}

// denyToken is deny for a token that has not been captured in the session.
func (m *Machine) denyToken(ctx context.Context, token, reason string) error {
	m.logger.Info("access denied", "state", m.state, "reason", reason)
	m.decide(ctx, OutcomeDenied, token, reason)
	if err := m.command(ctx, CommandDeny); err != nil {
		return err
	}
	return m.enter(ctx, StateAwaitingToken)
}

// failClosed handles a credential store error: log, audit, deny.
func (m *Machine) failClosed(ctx context.Context, op string, err error) error {
	m.logger.Error("credential store failed", "op", op, "state", m.state, "error", err)
	m.decide(ctx, OutcomeStoreError, m.session.Token, fmt.Sprintf("%s: %v", op, err))
	if err := m.command(ctx, CommandDeny); err != nil {
		return err
	}
	return m.enter(ctx, StateAwaitingToken)
}

func (m *Machine) doorOpened(ctx context.Context) error {
	m.logger.Info("door open")

	if !m.state.Authorized() {
		m.logger.Warn("unauthorized access", "state", m.state)
		m.decide(ctx, OutcomeForced, "", "")
		return m.command(ctx, CommandLock)
	}
	if m.state == StateOpen {
		return m.enter(ctx, StateRelocking)
	}
	return nil
}

func (m *Machine) keyPressed(ctx context.Context, c rune) error {
	m.logger.Debug("key pressed", "state", m.state)

	if m.state == StateOpenMode {
		if c == m.policy.OverrideKey {
			return m.command(ctx, CommandBeep, CommandUnlock)
		}
		return nil
	}
	if !m.state.CollectsPIN() {
		if !m.state.known() {
			return m.unknownState()
		}
		return nil
	}

	m.session.Budget.Set(m.policy.PINTimeout)
	switch {
	case c >= '0' && c <= '9':
		if err := m.command(ctx, CommandBeep); err != nil {
			return err
		}
		m.session.PIN += string(c)
	case c == m.policy.ClearKey:
		if err := m.command(ctx, CommandBeep); err != nil {
			return err
		}
		m.session.PIN = ""
	case c == m.policy.AcceptKey:
		if err := m.command(ctx, CommandBeep); err != nil {
			return err
		}
		return m.pinConfirmed(ctx)
	}
	return nil
}

func (m *Machine) pinConfirmed(ctx context.Context) error {
	s := &m.session

	switch m.state {
	case StateAwaitingPIN:
		if s.PIN == m.policy.ChangeCode {
			return m.enter(ctx, StatePINChangeOld)
		}
		user, err := m.creds.Verify(ctx, s.Token, s.PIN)
		if err != nil {
			return m.failClosed(ctx, "verify", err)
		}
		if user == nil {
			m.logger.Info("authentication failed")
			return m.deny(ctx, ReasonWrongPIN)
		}
		m.logger.Info("authentication successful")
		m.logger.Debug("authenticated", "token", user.Token)
		m.decide(ctx, OutcomeGranted, s.Token, "")
		return m.enter(ctx, StateOpen)

	case StatePINChangeOld:
		user, err := m.creds.Verify(ctx, s.Token, s.PIN)
		if err != nil {
			return m.failClosed(ctx, "verify", err)
		}
		if user == nil {
			return m.deny(ctx, ReasonWrongPIN)
		}
		return m.enter(ctx, StatePINChangeNew)

	case StatePINChangeNew:
		if reason := m.checkNewPIN(s.PIN); reason != "" {
			return m.deny(ctx, reason)
		}
		return m.enter(ctx, StatePINChangeVerify)

	case StatePINChangeVerify:
		if s.PIN != s.PendingPIN {
			return m.deny(ctx, ReasonPINMismatch)
		}
		m.logger.Info("changing pin")
		if err := m.creds.UpdatePIN(ctx, s.Token, s.PIN); err != nil {
			return m.failClosed(ctx, "update_pin", err)
		}
		m.decide(ctx, OutcomePINChanged, s.Token, "")
		if err := m.enter(ctx, StateAwaitingToken); err != nil {
			return err
		}
		return m.command(ctx, CommandGrant)

	case StateEnrollingPINNew:
		if reason := m.checkNewPIN(s.PIN); reason != "" {
			return m.deny(ctx, reason)
		}
		return m.enter(ctx, StateEnrollingPINVerify)

	case StateEnrollingPINVerify:
		if s.PIN != s.PendingPIN {
			return m.deny(ctx, ReasonPINMismatch)
		}
		m.logger.Info("adding key")
		if err := m.creds.AddUser(ctx, s.Token, s.PIN, false); err != nil {
			return m.failClosed(ctx, "add_user", err)
		}
		m.decide(ctx, OutcomeEnrolled, s.Token, "")
		if err := m.enter(ctx, StateAwaitingToken); err != nil {
			return err
		}
		return m.command(ctx, CommandGrant)

	case StateAwaitingToken,
		StateOpen,
		StateRelocking,
		StateEnrollingToken,
		StateResettingPIN,
		StateOpenMode:
		return nil
	}
	return m.unknownState()
}

// checkNewPIN returns the deny reason for an unacceptable new PIN, or "".
func (m *Machine) checkNewPIN(pin string) string {
	switch {
	case len(pin) < m.policy.MinPINLength:
		return ReasonPINTooShort
	case len(pin) > m.policy.MaxPINLength:
		return ReasonPINTooLong
	}
	return ""
}

func (m *Machine) tokenScanned(ctx context.Context, code string) error {
	if m.state == StateRelocking {
		if err := m.enter(ctx, StateAwaitingToken); err != nil {
			return err
		}
	}

	m.logger.Debug("token scanned", "state", m.state, "token", code)

	switch m.state {
	case StateAwaitingToken:
		m.session.Token = code
		return m.enter(ctx, StateAwaitingPIN)

	case StateEnrollingToken:
		exists, err := m.creds.UserExists(ctx, code)
		if err != nil {
			m.session.Token = code
			return m.failClosed(ctx, "user_exists", err)
		}
		if exists {
			return m.denyToken(ctx, code, ReasonTokenKnown)
		}
		m.session.Token = code
		return m.enter(ctx, StateEnrollingPINNew)

	case StateResettingPIN:
		exists, err := m.creds.UserExists(ctx, code)
		if err != nil {
			m.session.Token = code
			return m.failClosed(ctx, "user_exists", err)
		}
		if !exists {
			return m.denyToken(ctx, code, ReasonTokenUnknown)
		}
		m.session.Token = code
		return m.enter(ctx, StatePINChangeNew)

	case StateAwaitingPIN,
		StateOpen,
		StateRelocking,
		StateEnrollingPINNew,
		StateEnrollingPINVerify,
		StatePINChangeOld,
		StatePINChangeNew,
		StatePINChangeVerify,
		StateOpenMode:
		return nil
	}
	return m.unknownState()
}

// command issues cmds in order, stopping at the first failure.
func (m *Machine) command(ctx context.Context, cmds ...Command) error {
	for _, cmd := range cmds {
		m.observe(ctx, Record{Kind: RecordCommand, State: m.state, Command: cmd})
		if err := Execute(m.hw, cmd); err != nil {
			return fmt.Errorf("hardware %s: %w", cmd, err)
		}
	}
	return nil
}

func (m *Machine) decide(ctx context.Context, outcome Outcome, token, reason string) {
	m.observe(ctx, Record{
		Kind:  RecordDecision,
		State: m.state,
		Decision: Decision{
			Outcome: outcome,
			Token:   token,
			Reason:  reason,
			State:   m.state,
		},
	})
}

func (m *Machine) observe(ctx context.Context, rec Record) {
	for _, o := range m.observers {
		o.Observe(ctx, rec)
	}
}

func (m *Machine) unknownState() error {
	return fmt.Errorf("%w: %v", ErrUnknownState, m.state)
}
