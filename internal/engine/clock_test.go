package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClock_Monotonic(t *testing.T) {
	var c SystemClock

	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		assert.GreaterOrEqual(t, now.Sub(prev), time.Duration(0), "clock went backwards")
		prev = now
	}
}
