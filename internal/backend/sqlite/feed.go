package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ticker/internal/backend"
)

// feedBuffer is the per-subscriber event buffer. A subscriber that falls
// this far behind starts losing events; the sync layer's idempotent merge
// rules tolerate gaps, and a fresh Load resynchronizes fully.
const feedBuffer = 64

type subscriber struct {
	ownerID string
	ch      chan backend.Event
}

// Subscribe opens a change-event stream filtered to ownerID.
//
// The returned stop function unregisters the subscriber and closes the
// channel; calling it more than once is safe. Cancelling ctx has the same
// effect. Events committed after Subscribe returns are delivered in
// commit order.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (<-chan backend.Event, func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("subscribe: store is closed")
	}
	id := s.nextSub
	s.nextSub++
	sub := &subscriber{ownerID: ownerID, ch: make(chan backend.Event, feedBuffer)}
	s.subs[id] = sub
	s.mu.Unlock()

	stop := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub.ch)
		}
	}
	context.AfterFunc(ctx, stop)

	return sub.ch, stop, nil
}

// publish fans an event out to every subscriber registered for the row's
// owner. Sends never block: a full buffer drops the event with a warning.
func (s *Store) publish(ev backend.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.ownerID != ev.Task.OwnerID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			slog.Warn("change feed subscriber buffer full, dropping event",
				"owner_id", ev.Task.OwnerID,
				"event_type", ev.Type,
				"task_id", ev.Task.ID,
			)
		}
	}
}

// closeSubscribers terminates every subscription. Called from Close.
func (s *Store) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.ch)
	}
}
