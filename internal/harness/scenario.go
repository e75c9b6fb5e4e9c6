package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/doorbot/internal/access"
	"github.com/roach88/doorbot/internal/control"
)

// Scenario defines one door scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Users seeds the credential store.
	Users []User `yaml:"users,omitempty"`

	// Steps are replayed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the run.
	Assertions []Assertion `yaml:"assertions"`
}

// User is an enrolled credential.
type User struct {
	Token string `yaml:"token"`
	PIN   string `yaml:"pin"`
	Admin bool   `yaml:"admin,omitempty"`
}

// Step is one scenario input. Exactly one field is set.
type Step struct {
	RFID    string        `yaml:"rfid,omitempty"`
	Keys    string        `yaml:"keys,omitempty"`
	Door    string        `yaml:"door,omitempty"`
	Trigger string        `yaml:"trigger,omitempty"`
	Wait    time.Duration `yaml:"wait,omitempty"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// State is the expected final state (final_state).
	State string `yaml:"state,omitempty"`

	// Command is the counted hardware command (command_count).
	Command string `yaml:"command,omitempty"`

	// Commands is the expected relative order (command_order).
	Commands []string `yaml:"commands,omitempty"`

	// Outcome and Reason select decisions (decision_count). An empty Reason
	// matches any reason.
	Outcome string `yaml:"outcome,omitempty"`
	Reason  string `yaml:"reason,omitempty"`

	// Count is the expected number of matches (command_count, decision_count).
	Count int `yaml:"count"`

	// Token, PIN, Exists and Admin describe a credential (credential).
	// PIN, when set, must verify. Exists and Admin are checked when set.
	Token  string `yaml:"token,omitempty"`
	PIN    string `yaml:"pin,omitempty"`
	Exists *bool  `yaml:"exists,omitempty"`
	Admin  *bool  `yaml:"admin,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertCommandCount  = "command_count"
	AssertCommandOrder  = "command_order"
	AssertDecisionCount = "decision_count"
	AssertCredential    = "credential"
)

var knownCommands = map[string]bool{
	string(access.CommandLEDOn):    true,
	string(access.CommandLEDOff):   true,
	string(access.CommandLEDBlink): true,
	string(access.CommandLock):     true,
	string(access.CommandUnlock):   true,
	string(access.CommandBeep):     true,
	string(access.CommandGrant):    true,
	string(access.CommandDeny):     true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for i, u := range s.Users {
		if u.Token == "" {
			return fmt.Errorf("users[%d]: token is required", i)
		}
		if u.PIN == "" {
			return fmt.Errorf("users[%d]: pin is required", i)
		}
		if seen[u.Token] {
			return fmt.Errorf("users[%d]: duplicate token %q", i, u.Token)
		}
		seen[u.Token] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st Step) error {
	set := 0
	for _, present := range []bool{st.RFID != "", st.Keys != "", st.Door != "", st.Trigger != "", st.Wait != 0} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of rfid, keys, door, trigger, wait is required", index)
	}

	switch {
	case st.Door != "" && st.Door != "open" && st.Door != "closed":
		return fmt.Errorf("steps[%d]: door must be open or closed, got %q", index, st.Door)
	case st.Wait < 0:
		return fmt.Errorf("steps[%d]: wait must be positive", index)
	case st.Trigger != "":
		if _, err := control.ParseCommand(st.Trigger); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalState:
		if _, err := access.ParseState(a.State); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertCommandCount:
		if !knownCommands[a.Command] {
			return fmt.Errorf("assertions[%d]: unknown command %q", index, a.Command)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for command_count", index)
		}
	case AssertCommandOrder:
		if len(a.Commands) < 2 {
			return fmt.Errorf("assertions[%d]: command_order needs at least two commands", index)
		}
		for _, c := range a.Commands {
			if !knownCommands[c] {
				return fmt.Errorf("assertions[%d]: unknown command %q", index, c)
			}
		}
	case AssertDecisionCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for decision_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for decision_count", index)
		}
	case AssertCredential:
		if a.Token == "" {
			return fmt.Errorf("assertions[%d]: token is required for credential", index)
		}
		if a.PIN == "" && a.Exists == nil && a.Admin == nil {
			return fmt.Errorf("assertions[%d]: credential needs pin, exists or admin", index)
		}
		if a.Admin != nil && a.PIN == "" {
			return fmt.Errorf("assertions[%d]: credential admin check needs pin", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
