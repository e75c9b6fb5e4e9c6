package hardware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doorbot/internal/access"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	for _, c := range "ABC" {
		require.True(t, q.Enqueue(access.KeyEvent(c)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range "ABC" {
		ev, err := q.Next(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, want, ev.Key)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_TryDequeue_Empty(t *testing.T) {
	q := NewQueue()
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestQueue_NextTimesOut(t *testing.T) {
	q := NewQueue()

	start := time.Now()
	ev, err := q.Next(context.Background(), 20*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, access.EventNone, ev.Kind)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

func TestQueue_NextWakesOnEnqueue(t *testing.T) {
	q := NewQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(access.TokenEvent("T1"))
	}()

	ev, err := q.Next(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, access.TokenEvent("T1"), ev)
}

func TestQueue_NextContextCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := q.Next(ctx, -1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_CloseDrainsThenShutsDown(t *testing.T) {
	q := NewQueue()
	q.Enqueue(access.KeyEvent('1'))
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(access.KeyEvent('2')), "closed queue rejects events")

	ev, err := q.Next(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, access.KeyEvent('1'), ev)

	ev, err = q.Next(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, access.EventShutdown, ev.Kind)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue()
	const producers, each = 8, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Enqueue(access.KeyEvent('1'))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*each, q.Len())
}
