package hostcore

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is an opaque unit of work queued for asynchronous dispatch on the
// main thread's event loop. Events may be posted from any goroutine; they are
// delivered in enqueue order during the loop iteration that picks them up.
type Event struct {
	// ID is a unique identifier assigned at creation, used for logging
	// and correlation.
	ID string

	// Deliver is invoked on the main thread when the event is dispatched.
	Deliver func()
}

// NewEvent creates an event that invokes deliver when dispatched.
func NewEvent(deliver func()) Event {
	return Event{
		ID:      uuid.New().String(),
		Deliver: deliver,
	}
}

// EventQueue buffers pending event deliveries and supports bounded waiting
// until a deadline or an external wake. Post is the only cross-goroutine
// mutation and is safe to call from any goroutine while the main thread is
// blocked in Wait.
type EventQueue struct {
	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
}

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues the event and wakes the waiting main thread, if any.
// Safe to call from any goroutine.
func (q *EventQueue) Post(ev Event) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()

	q.Wake()
}

// Wake interrupts a Wait in progress without enqueueing anything. Shutdown
// uses this so the event loop never sleeps through a shutdown request.
func (q *EventQueue) Wake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Wait blocks the calling goroutine until an event is posted, Wake is called,
// or the deadline elapses, then returns the events delivered so far in
// enqueue order. The returned slice is empty when the wait timed out or was
// woken with nothing pending.
func (q *EventQueue) Wait(deadline time.Time) []Event {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	q.mu.Lock()
	if len(q.pending) > 0 {
		delivered := q.pending
		q.pending = nil
		q.mu.Unlock()
		return delivered
	}
	q.mu.Unlock()

	select {
	case <-q.wake:
		// An event may have been posted, or this is a bare wake; either
		// way return whatever is pending now.
	case <-timer.C:
	}

	q.mu.Lock()
	delivered := q.pending
	q.pending = nil
	q.mu.Unlock()
	return delivered
}

// Len returns the number of events currently pending.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}
