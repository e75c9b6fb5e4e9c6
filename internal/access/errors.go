package access

import "errors"

// ErrUnknownState is returned when the machine is asked to act in a state it
// does not know, including the zero State before Start has been called.
var ErrUnknownState = errors.New("unknown state")

// ErrUnknownEvent is returned by Handle for an event kind it does not know.
var ErrUnknownEvent = errors.New("unknown event")
