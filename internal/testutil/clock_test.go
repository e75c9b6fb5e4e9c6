package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtEpoch(t *testing.T) {
	c := NewManualClock()
	assert.Equal(t, Epoch, c.Now())
	assert.Zero(t, c.Elapsed())
}

func TestManualClock_Advance(t *testing.T) {
	c := NewManualClock()
	c.Advance(1500 * time.Millisecond)
	c.Advance(500 * time.Millisecond)

	assert.Equal(t, 2*time.Second, c.Elapsed())
	assert.Equal(t, 2*time.Second, c.Now().Sub(Epoch))
}

func TestManualClock_IgnoresNegative(t *testing.T) {
	c := NewManualClock()
	c.Advance(time.Second)
	c.Advance(-5 * time.Second)

	assert.Equal(t, time.Second, c.Elapsed(), "clock must never move backwards")
}

func TestManualClock_Concurrent(t *testing.T) {
	c := NewManualClock()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50*time.Millisecond, c.Elapsed())
}

func TestFixedIDGenerator_Sequence(t *testing.T) {
	g := NewFixedIDGenerator("dec")
	assert.Equal(t, "dec-1", g.Generate())
	assert.Equal(t, "dec-2", g.Generate())

	assert.Equal(t, "id-1", NewFixedIDGenerator("").Generate())
}
