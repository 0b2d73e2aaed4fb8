package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"

	"github.com/roach88/ticker/internal/backend"
	"github.com/roach88/ticker/internal/task"
)

// State is the synchronization layer's per-session lifecycle.
type State int

const (
	// StateIdle means no identity session is active.
	StateIdle State = iota + 1
	// StateLoading means the initial fetch is in flight.
	StateLoading
	// StateReady means local state is populated and serving reads.
	StateReady
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Syncer owns the in-memory task list for one identity session.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine
//   - public methods: safe from any goroutine; mutating methods block
//     until the Run loop has processed their command
//   - Tasks()/Counts()/State()/Loading(): safe from any goroutine
//
// All list mutation happens in the Run loop. Mutating methods return an
// error when the remote write failed (after the optimistic local edit has
// been reverted) or when the syncer is stopped.
type Syncer struct {
	store backend.TaskStore
	feed  backend.ChangeFeed
	owner backend.User

	queue *eventQueue

	// life scopes the feed subscription to this syncer; Stop cancels it.
	life     context.Context
	lifeStop context.CancelFunc

	mu          stdsync.RWMutex
	items       []task.Task
	state       State
	loading     bool
	unsubscribe func()

	changed chan struct{} // coalescing change notification
}

// New creates a Syncer for the given identity. It starts idle; call Run
// in its own goroutine, then Load to populate state and open the feed.
func New(store backend.TaskStore, feed backend.ChangeFeed, owner backend.User) *Syncer {
	life, stop := context.WithCancel(context.Background())
	return &Syncer{
		store:    store,
		feed:     feed,
		owner:    owner,
		queue:    newEventQueue(),
		life:     life,
		lifeStop: stop,
		state:    StateIdle,
		changed:  make(chan struct{}, 1),
	}
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Stop() is called.
//
// ERROR HANDLING: a failed command is reported to its dispatcher and
// logged; the loop itself never stops on command failure. Feed events
// cannot fail - unknown IDs reconcile to no-ops.
func (s *Syncer) Run(ctx context.Context) error {
	slog.Debug("syncer starting", "user_id", s.owner.ID)

	for {
		ev, ok := s.queue.TryDequeue()
		if ok {
			s.processEvent(ev)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("syncer stopping: context cancelled")
			s.teardown()
			return ctx.Err()

		case <-s.queue.Wait():
			if s.queue.Len() == 0 {
				// Queue closed and empty
				slog.Debug("syncer stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop shuts the syncer down: the feed subscription is released, pending
// dispatchers are failed, and local state is cleared back to idle.
func (s *Syncer) Stop() {
	s.teardown()
	s.queue.Close()
}

// teardown releases the subscription and clears local state.
func (s *Syncer) teardown() {
	s.lifeStop()
	s.dropSubscription()

	s.mu.Lock()
	s.items = nil
	s.state = StateIdle
	s.loading = false
	s.mu.Unlock()
	s.notifyChanged()
}

// processEvent routes one event. Called only from the Run goroutine.
func (s *Syncer) processEvent(ev event) {
	switch ev.typ {
	case eventTypeCommand:
		ev.cmd.done <- ev.cmd.run()

	case eventTypeFeed:
		s.reconcile(ev.feed)

	default:
		slog.Error("unknown event type", "event_type", int(ev.typ))
	}
}

// dispatch enqueues a command and waits for the loop to process it.
func (s *Syncer) dispatch(ctx context.Context, name string, run func() error) error {
	cmd := &command{name: name, run: run, done: make(chan error, 1)}
	if !s.queue.Enqueue(event{typ: eventTypeCommand, cmd: cmd}) {
		return fmt.Errorf("%s: syncer is stopped", name)
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load fetches all tasks owned by the current identity in display order
// and opens the change-feed subscription. Any previous
// subscription is dropped first so a stale owner filter cannot deliver.
//
// On fetch failure local state is left empty; no automatic retry.
func (s *Syncer) Load(ctx context.Context) error {
	return s.dispatch(ctx, "load", func() error { return s.doLoad(ctx) })
}

func (s *Syncer) doLoad(ctx context.Context) error {
	s.setPhase(StateLoading, true)

	// Subscribe before fetching so no change committed after the fetch
	// can be missed. Events racing the fetch reconcile idempotently.
	s.dropSubscription()
	ch, stop, err := s.feed.Subscribe(s.life, s.owner.ID)
	if err != nil {
		s.setPhase(StateReady, false)
		slog.Error("change feed subscription failed", "error", err, "user_id", s.owner.ID)
		return fmt.Errorf("load: subscribe: %w", err)
	}
	s.setUnsubscribe(stop)
	go s.pump(ch)

	items, err := s.store.ListByOwner(ctx, s.owner.ID)
	if err != nil {
		s.setItems(nil)
		s.setPhase(StateReady, false)
		slog.Error("initial load failed, starting empty", "error", err, "user_id", s.owner.ID)
		return fmt.Errorf("load: %w", err)
	}

	s.setItems(items)
	s.setPhase(StateReady, false)
	slog.Debug("tasks loaded", "count", len(items), "user_id", s.owner.ID)
	return nil
}

// pump forwards feed events into the queue, preserving delivery order.
// Exits when the subscription channel closes.
func (s *Syncer) pump(ch <-chan backend.Event) {
	for ev := range ch {
		if !s.queue.Enqueue(event{typ: eventTypeFeed, feed: ev}) {
			return
		}
	}
}

// Add creates a task from the given text. Text that trims to empty is
// rejected silently, as is a missing identity. There is no optimistic
// insert: the ID is server-assigned, so the row merges only once the
// store confirms it (and only if the feed echo has not landed it first).
func (s *Syncer) Add(ctx context.Context, text string) error {
	return s.dispatch(ctx, "add", func() error { return s.doAdd(ctx, text) })
}

func (s *Syncer) doAdd(ctx context.Context, text string) error {
	title, err := task.NormalizeTitle(text)
	if err != nil {
		return nil // silent rejection, no remote call
	}
	if s.owner.ID == "" {
		return nil
	}

	s.setPhase(StateReady, true)
	defer s.setPhase(StateReady, false)

	created, err := s.store.Insert(ctx, s.owner.ID, title)
	if err != nil {
		slog.Error("add failed", "error", err, "title", title)
		return fmt.Errorf("add: %w", err)
	}

	// Duplicate suppression: the feed echo of this insert may have been
	// reconciled while the write was in flight.
	if s.findItem(created.ID) < 0 {
		s.setItems(append([]task.Task{created}, s.items...))
	}
	return nil
}

// Toggle flips the completion flag of the task with the given ID.
// No-op when no local task matches.
func (s *Syncer) Toggle(ctx context.Context, id string) error {
	return s.dispatch(ctx, "toggle", func() error { return s.doToggle(ctx, id) })
}

func (s *Syncer) doToggle(ctx context.Context, id string) error {
	i := s.findItem(id)
	if i < 0 {
		return nil
	}
	completed := !s.items[i].Completed

	m := begin("toggle", s.items, func(items []task.Task) []task.Task {
		items[i].Completed = completed
		return items
	})
	return s.commit(m, func() error {
		return s.store.SetCompleted(ctx, id, completed)
	})
}

// Edit replaces the task's title with the trimmed new text. No-op when
// the text trims to empty or no local task matches.
func (s *Syncer) Edit(ctx context.Context, id, text string) error {
	return s.dispatch(ctx, "edit", func() error { return s.doEdit(ctx, id, text) })
}

func (s *Syncer) doEdit(ctx context.Context, id, text string) error {
	title, err := task.NormalizeTitle(text)
	if err != nil {
		return nil
	}
	i := s.findItem(id)
	if i < 0 {
		return nil
	}

	m := begin("edit", s.items, func(items []task.Task) []task.Task {
		items[i].Title = title
		return items
	})
	return s.commit(m, func() error {
		return s.store.SetTitle(ctx, id, title)
	})
}

// Delete removes the task locally at once and issues the remote delete.
// On failure the task is restored.
func (s *Syncer) Delete(ctx context.Context, id string) error {
	return s.dispatch(ctx, "delete", func() error { return s.doDelete(ctx, id) })
}

func (s *Syncer) doDelete(ctx context.Context, id string) error {
	m := begin("delete", s.items, func(items []task.Task) []task.Task {
		return removeItem(items, id)
	})
	return s.commit(m, func() error {
		return s.store.Delete(ctx, id)
	})
}

// ClearCompleted removes every completed task locally and issues one bulk
// delete. No-op when nothing is completed. On failure all removed tasks
// are restored.
func (s *Syncer) ClearCompleted(ctx context.Context) error {
	return s.dispatch(ctx, "clear completed", func() error { return s.doClearCompleted(ctx) })
}

func (s *Syncer) doClearCompleted(ctx context.Context) error {
	var ids []string
	for _, t := range s.items {
		if t.Completed {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	m := begin("clear completed", s.items, func(items []task.Task) []task.Task {
		return task.FilterActive.Apply(items)
	})
	return s.commit(m, func() error {
		return s.store.DeleteAll(ctx, ids)
	})
}

// Move applies a full reordering of the list. Tasks are rearranged to
// match orderedIDs and their positions restamped; IDs not present locally
// are ignored, local tasks not mentioned keep their relative order at the
// end. On remote failure the previous arrangement is restored - the same
// rollback contract as every other mutation.
func (s *Syncer) Move(ctx context.Context, orderedIDs []string) error {
	return s.dispatch(ctx, "move", func() error { return s.doMove(ctx, orderedIDs) })
}

func (s *Syncer) doMove(ctx context.Context, orderedIDs []string) error {
	positions := make(map[string]int)
	matched := 0

	// Every task is restamped, not just the mentioned ones, so the
	// persisted order is exactly the local order after the move.
	m := begin("move", s.items, func(items []task.Task) []task.Task {
		byID := make(map[string]task.Task, len(items))
		for _, t := range items {
			byID[t.ID] = t
		}

		next := make([]task.Task, 0, len(items))
		seen := make(map[string]bool, len(orderedIDs))
		for _, id := range orderedIDs {
			t, ok := byID[id]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			matched++
			t.Position = len(next)
			positions[id] = t.Position
			next = append(next, t)
		}
		for _, t := range items {
			if !seen[t.ID] {
				t.Position = len(next)
				positions[t.ID] = t.Position
				next = append(next, t)
			}
		}
		return next
	})

	if matched == 0 {
		return nil
	}
	return s.commit(m, func() error {
		return s.store.SetPositions(ctx, positions)
	})
}

// commit applies a mutation's post-image, issues the matching remote
// write, and applies the inverse when the write fails. Runs in the loop
// goroutine.
func (s *Syncer) commit(m mutation, write func() error) error {
	if !m.changed() {
		return nil
	}

	s.setItems(m.post)
	if err := write(); err != nil {
		s.setItems(m.pre)
		slog.Error("write failed, optimistic update reverted",
			"op", m.name,
			"error", err,
			"user_id", s.owner.ID,
		)
		return fmt.Errorf("%s: %w", m.name, err)
	}
	return nil
}

// reconcile merges one change-feed event into local state. Last writer
// wins; all three cases are idempotent. Runs in the loop goroutine.
func (s *Syncer) reconcile(ev backend.Event) {
	switch ev.Type {
	case backend.EventInsert:
		if s.findItem(ev.Task.ID) >= 0 {
			slog.Debug("insert event for known task, skipping", "task_id", ev.Task.ID)
			return
		}
		s.setItems(append([]task.Task{ev.Task}, s.items...))

	case backend.EventUpdate:
		i := s.findItem(ev.Task.ID)
		if i < 0 {
			return
		}
		next := cloneTasks(s.items)
		next[i] = ev.Task
		s.setItems(next)

	case backend.EventDelete:
		if s.findItem(ev.Task.ID) < 0 {
			return
		}
		s.setItems(removeItem(cloneTasks(s.items), ev.Task.ID))

	default:
		slog.Warn("unknown change event type", "event_type", string(ev.Type))
	}
}

// Tasks returns the derived view for the given filter, in local order.
func (s *Syncer) Tasks(f task.Filter) []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f.Apply(s.items)
}

// Counts returns the active/completed tally.
func (s *Syncer) Counts() task.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return task.Count(s.items)
}

// State returns the current lifecycle state.
func (s *Syncer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Loading reports whether a load or add is in flight.
func (s *Syncer) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Changed returns a coalescing signal channel that fires after local
// state changes, for consumers that re-render on change.
func (s *Syncer) Changed() <-chan struct{} {
	return s.changed
}

// findItem returns the index of the task with the given ID, or -1.
// Runs in the loop goroutine; items are only written there.
func (s *Syncer) findItem(id string) int {
	for i, t := range s.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// setItems publishes a new list. Loop goroutine only.
func (s *Syncer) setItems(items []task.Task) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	s.notifyChanged()
}

// setPhase publishes lifecycle state and the loading flag.
func (s *Syncer) setPhase(state State, loading bool) {
	s.mu.Lock()
	s.state = state
	s.loading = loading
	s.mu.Unlock()
	s.notifyChanged()
}

func (s *Syncer) setUnsubscribe(stop func()) {
	s.mu.Lock()
	s.unsubscribe = stop
	s.mu.Unlock()
}

// dropSubscription releases the current feed subscription, if any.
// Safe to call from any goroutine.
func (s *Syncer) dropSubscription() {
	s.mu.Lock()
	stop := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *Syncer) notifyChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// removeItem returns items without the task with the given ID.
func removeItem(items []task.Task, id string) []task.Task {
	for i, t := range items {
		if t.ID == id {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}
