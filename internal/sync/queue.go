package sync

import (
	stdsync "sync"

	"github.com/roach88/ticker/internal/backend"
)

// eventType distinguishes between event kinds.
type eventType int

const (
	// eventTypeCommand is a user action to process.
	eventTypeCommand eventType = iota + 1
	// eventTypeFeed is a change-feed event to reconcile.
	eventTypeFeed
)

// command is one user action queued for the loop, with a channel the
// dispatching goroutine blocks on until the action has been processed.
type command struct {
	name string
	run  func() error
	done chan error // buffered, size 1
}

// event wraps commands and feed events for the event queue.
type event struct {
	typ  eventType
	cmd  *command
	feed backend.Event
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so the feed pump never blocks behind a slow
// command. Thread-safety covers external enqueuing (public methods, the
// pump goroutine) while the Run loop dequeues.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type eventQueue struct {
	mu     stdsync.Mutex
	events []event
	closed bool
	signal chan struct{} // signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Signal availability (non-blocking - buffer of 1 coalesces signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the command pointer doesn't outlive its turn.
	q.events[0] = event{}

	if len(q.events) == 1 {
		// Last element - reset to empty slice with original capacity
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// Use with select for context-aware waiting.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
