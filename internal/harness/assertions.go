package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/doorbot/internal/access"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Trace    []string // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, line := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. creds is the credential store the scenario ran against.
func EvaluateAssertions(result *Result, assertions []Assertion, creds access.Credentials) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, creds); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, creds access.Credentials) error {
	switch a.Type {
	case AssertFinalState:
		return assertFinalState(result, a)
	case AssertCommandCount:
		return assertCommandCount(result, a)
	case AssertCommandOrder:
		return assertCommandOrder(result, a)
	case AssertDecisionCount:
		return assertDecisionCount(result, a)
	case AssertCredential:
		return assertCredential(creds, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertFinalState(result *Result, a Assertion) error {
	if result.FinalState == a.State {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: a.State,
		Actual:   result.FinalState,
		Trace:    result.Trace,
	}
}

func assertCommandCount(result *Result, a Assertion) error {
	count := 0
	for _, c := range result.Commands {
		if string(c) == a.Command {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCommandCount,
		Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Command),
		Actual:   fmt.Sprintf("%d occurrences", count),
		Trace:    result.Trace,
	}
}

// assertCommandOrder checks that the commands appear in the given order.
// They need not be consecutive; each is matched after the previous match.
func assertCommandOrder(result *Result, a Assertion) error {
	next := 0
	for _, c := range result.Commands {
		if next < len(a.Commands) && string(c) == a.Commands[next] {
			next++
		}
	}
	if next == len(a.Commands) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCommandOrder,
		Expected: fmt.Sprintf("commands in order: %v", a.Commands),
		Actual:   fmt.Sprintf("matched %d of %d; issued %v", next, len(a.Commands), result.Commands),
		Trace:    result.Trace,
	}
}

func assertDecisionCount(result *Result, a Assertion) error {
	count := 0
	for _, d := range result.Decisions {
		if string(d.Outcome) != a.Outcome {
			continue
		}
		if a.Reason != "" && d.Reason != a.Reason {
			continue
		}
		count++
	}
	if count == a.Count {
		return nil
	}

	what := a.Outcome
	if a.Reason != "" {
		what += "/" + a.Reason
	}
	return &AssertionError{
		Type:     AssertDecisionCount,
		Expected: fmt.Sprintf("%d decisions %s", a.Count, what),
		Actual:   fmt.Sprintf("%d decisions", count),
		Trace:    result.Trace,
	}
}

func assertCredential(creds access.Credentials, a Assertion) error {
	ctx := context.Background()

	exists, err := creds.UserExists(ctx, a.Token)
	if err != nil {
		return fmt.Errorf("credential %s: %w", a.Token, err)
	}
	if a.Exists != nil && exists != *a.Exists {
		return &AssertionError{
			Type:     AssertCredential,
			Expected: fmt.Sprintf("token %s exists=%t", a.Token, *a.Exists),
			Actual:   fmt.Sprintf("exists=%t", exists),
		}
	}

	if a.PIN == "" && a.Admin == nil {
		return nil
	}
	user, err := creds.Verify(ctx, a.Token, a.PIN)
	if err != nil {
		return fmt.Errorf("credential %s: %w", a.Token, err)
	}
	if user == nil {
		return &AssertionError{
			Type:     AssertCredential,
			Expected: fmt.Sprintf("token %s verifies with pin %s", a.Token, a.PIN),
			Actual:   "verification failed",
		}
	}
	if a.Admin != nil && user.Admin != *a.Admin {
		return &AssertionError{
			Type:     AssertCredential,
			Expected: fmt.Sprintf("token %s admin=%t", a.Token, *a.Admin),
			Actual:   fmt.Sprintf("admin=%t", user.Admin),
		}
	}
	return nil
}
