package hardware

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/doorbot/internal/access"
)

// Queue is a thread-safe FIFO of access events and the engine's Source.
//
// Serial readers and the control channel enqueue from their own goroutines
// while the engine's Run loop is the only consumer.
//
// The queue uses a channel for signaling so the consumer can wait with a
// context and a deadline at the same time.
type Queue struct {
	mu     sync.Mutex
	events []access.Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// NewQueue creates an empty event queue.
func NewQueue() *Queue {
	return &Queue{
		events: make([]access.Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *Queue) Enqueue(ev access.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, ev)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
// Returns false if the queue is empty.
func (q *Queue) TryDequeue() (access.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return access.Event{}, false
	}

	ev := q.events[0]
	q.events[0] = access.Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return ev, true
}

// Next implements engine.Source.
//
// It returns the front event, or waits for one for at most timeout. A
// negative timeout waits forever. When the wait expires Next returns the
// no-event outcome (EventNone). Once the queue is closed and drained, Next
// returns a shutdown event.
func (q *Queue) Next(ctx context.Context, timeout time.Duration) (access.Event, error) {
	var expired <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		if ev, ok := q.TryDequeue(); ok {
			return ev, nil
		}
		if q.isClosed() {
			return access.Event{Kind: access.EventShutdown}, nil
		}

		select {
		case <-ctx.Done():
			return access.Event{}, ctx.Err()
		case <-expired:
			if ev, ok := q.TryDequeue(); ok {
				return ev, nil
			}
			return access.Event{}, nil
		case <-q.signal:
		}
	}
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes a blocked consumer by closing the signal channel.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
