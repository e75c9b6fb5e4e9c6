package engine

import "time"

// Clock supplies the instants used for timeout accounting.
// Implementations must be monotonic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now, which carries a monotonic reading.
type SystemClock struct{}

// Now returns the current instant.
func (SystemClock) Now() time.Time {
	return time.Now()
}
