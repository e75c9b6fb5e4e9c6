package eventlog

import (
	"fmt"
	"strings"
	"time"
)

// Entry is one captured machine record.
type Entry struct {
	Timestamp time.Time `cbor:"1,keyasint" json:"timestamp"`
	SessionID string    `cbor:"2,keyasint" json:"session_id"`
	Seq       uint64    `cbor:"3,keyasint" json:"seq"`
	Kind      string    `cbor:"4,keyasint" json:"kind"`
	State     string    `cbor:"5,keyasint" json:"state"`

	// Type-specific fields.
	Input   string `cbor:"6,keyasint,omitempty" json:"input,omitempty"`
	To      string `cbor:"7,keyasint,omitempty" json:"to,omitempty"`
	Command string `cbor:"8,keyasint,omitempty" json:"command,omitempty"`
	Outcome string `cbor:"9,keyasint,omitempty" json:"outcome,omitempty"`
	Token   string `cbor:"10,keyasint,omitempty" json:"token,omitempty"`
	Reason  string `cbor:"11,keyasint,omitempty" json:"reason,omitempty"`
}

// String renders e on one line.
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%d %-10s %-20s",
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.Seq, e.Kind, e.State)

	switch {
	case e.Input != "":
		fmt.Fprintf(&b, " %s", e.Input)
	case e.To != "":
		fmt.Fprintf(&b, " -> %s", e.To)
	case e.Command != "":
		fmt.Fprintf(&b, " %s", e.Command)
	case e.Outcome != "":
		fmt.Fprintf(&b, " %s", e.Outcome)
		if e.Token != "" {
			fmt.Fprintf(&b, " token=%s", e.Token)
		}
		if e.Reason != "" {
			fmt.Fprintf(&b, " reason=%s", e.Reason)
		}
	}
	return strings.TrimRight(b.String(), " ")
}
