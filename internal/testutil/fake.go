package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/ticker/internal/backend"
	"github.com/roach88/ticker/internal/task"
)

// FakeBackend is an in-memory backend.TaskStore and backend.ChangeFeed
// with scriptable failures. Set one of the Fail* fields to make the
// corresponding operation return that error while leaving stored rows
// untouched; clear it to recover.
//
// Feed events are NOT emitted automatically on writes; tests deliver them
// explicitly via Emit so races between write outcomes and feed delivery
// can be staged precisely.
type FakeBackend struct {
	mu    sync.Mutex
	ids   *SeqIDs
	now   time.Time
	rows  []task.Task // newest created first, like the real store's list order
	subs  map[int]*fakeSub
	nextS int

	FailList         error
	FailInsert       error
	FailSetCompleted error
	FailSetTitle     error
	FailSetPositions error
	FailDelete       error
	FailDeleteAll    error
}

type fakeSub struct {
	ownerID string
	ch      chan backend.Event
}

// NewFakeBackend creates an empty fake backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		ids:  NewSeqIDs("task"),
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		subs: make(map[int]*fakeSub),
	}
}

// Seed installs rows directly, newest first, bypassing failure hooks.
func (f *FakeBackend) Seed(rows ...task.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append([]task.Task{}, rows...)
}

// Rows returns a copy of the stored rows, newest first.
func (f *FakeBackend) Rows() []task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]task.Task{}, f.rows...)
}

// tick advances the fake clock so UpdatedAt stamps are distinguishable.
func (f *FakeBackend) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

// ListByOwner implements backend.TaskStore.
func (f *FakeBackend) ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailList != nil {
		return nil, f.FailList
	}

	out := []task.Task{}
	for _, t := range f.rows {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

// Insert implements backend.TaskStore.
func (f *FakeBackend) Insert(ctx context.Context, ownerID, title string) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailInsert != nil {
		return task.Task{}, f.FailInsert
	}

	now := f.tick()
	// New tasks go on top: one below the owner's minimum position,
	// mirroring the real store.
	pos := 0
	found := false
	for _, t := range f.rows {
		if t.OwnerID != ownerID {
			continue
		}
		if !found || t.Position-1 < pos {
			pos = t.Position - 1
			found = true
		}
	}
	t := task.Task{
		ID:        f.ids.Generate(),
		Title:     title,
		OwnerID:   ownerID,
		Position:  pos,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.rows = append([]task.Task{t}, f.rows...)
	return t, nil
}

// SetCompleted implements backend.TaskStore.
func (f *FakeBackend) SetCompleted(ctx context.Context, id string, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSetCompleted != nil {
		return f.FailSetCompleted
	}
	return f.update(id, func(t *task.Task) { t.Completed = completed })
}

// SetTitle implements backend.TaskStore.
func (f *FakeBackend) SetTitle(ctx context.Context, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSetTitle != nil {
		return f.FailSetTitle
	}
	return f.update(id, func(t *task.Task) { t.Title = title })
}

// SetPositions implements backend.TaskStore.
func (f *FakeBackend) SetPositions(ctx context.Context, positions map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSetPositions != nil {
		return f.FailSetPositions
	}
	for id, pos := range positions {
		_ = f.update(id, func(t *task.Task) { t.Position = pos })
	}
	return nil
}

// Delete implements backend.TaskStore.
func (f *FakeBackend) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete != nil {
		return f.FailDelete
	}
	f.remove(id)
	return nil
}

// DeleteAll implements backend.TaskStore.
func (f *FakeBackend) DeleteAll(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDeleteAll != nil {
		return f.FailDeleteAll
	}
	for _, id := range ids {
		f.remove(id)
	}
	return nil
}

func (f *FakeBackend) update(id string, mutate func(*task.Task)) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			mutate(&f.rows[i])
			f.rows[i].UpdatedAt = f.tick()
			return nil
		}
	}
	return fmt.Errorf("fake backend: task %s not found", id)
}

func (f *FakeBackend) remove(id string) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return
		}
	}
}

// Subscribe implements backend.ChangeFeed.
func (f *FakeBackend) Subscribe(ctx context.Context, ownerID string) (<-chan backend.Event, func(), error) {
	f.mu.Lock()
	id := f.nextS
	f.nextS++
	sub := &fakeSub{ownerID: ownerID, ch: make(chan backend.Event, 64)}
	f.subs[id] = sub
	f.mu.Unlock()

	stop := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub.ch)
		}
	}
	context.AfterFunc(ctx, stop)
	return sub.ch, stop, nil
}

// Emit delivers an event to every subscriber for the task's owner.
func (f *FakeBackend) Emit(ev backend.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.ownerID == ev.Task.OwnerID {
			sub.ch <- ev
		}
	}
}

// SubscriberCount reports active subscriptions, for unsubscribe tests.
func (f *FakeBackend) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Interface compliance checks.
var (
	_ backend.TaskStore  = (*FakeBackend)(nil)
	_ backend.ChangeFeed = (*FakeBackend)(nil)
)
