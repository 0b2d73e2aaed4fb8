package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ticker/internal/backend"
	"github.com/roach88/ticker/internal/task"
	"github.com/roach88/ticker/internal/testutil"
)

var owner = backend.User{ID: "user-1", Email: "alice@example.com"}

var errRemote = errors.New("remote write failed")

// setupSyncer starts a syncer over a fake backend with its Run loop
// already going.
func setupSyncer(t *testing.T) (*Syncer, *testutil.FakeBackend) {
	t.Helper()
	fb := testutil.NewFakeBackend()
	s := New(fb, fb, owner)
	go s.Run(context.Background())
	t.Cleanup(s.Stop)
	return s, fb
}

// seedBacked seeds the fake backend and loads it into the syncer.
func seedBacked(t *testing.T, s *Syncer, fb *testutil.FakeBackend, rows ...task.Task) {
	t.Helper()
	fb.Seed(rows...)
	require.NoError(t, s.Load(context.Background()))
}

func titles(tasks []task.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestLoad(t *testing.T) {
	s, fb := setupSyncer(t)
	fb.Seed(
		task.Task{ID: "b", Title: "newer", OwnerID: owner.ID},
		task.Task{ID: "a", Title: "older", OwnerID: owner.ID},
	)

	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, StateReady, s.State())
	assert.False(t, s.Loading())
	assert.Equal(t, []string{"newer", "older"}, titles(s.Tasks(task.FilterAll)))
	assert.Equal(t, 1, fb.SubscriberCount())
}

func TestLoad_FailureLeavesStateEmpty(t *testing.T) {
	s, fb := setupSyncer(t)
	fb.Seed(task.Task{ID: "a", Title: "unreachable", OwnerID: owner.ID})
	fb.FailList = errRemote

	err := s.Load(context.Background())

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, StateReady, s.State())
	assert.Empty(t, s.Tasks(task.FilterAll))
}

func TestLoad_ReplacesPreviousSubscription(t *testing.T) {
	s, fb := setupSyncer(t)

	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, 1, fb.SubscriberCount(), "old subscription dropped before new one opens")
}

func TestAdd(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb)

	require.NoError(t, s.Add(context.Background(), "Buy milk"))

	got := s.Tasks(task.FilterAll)
	require.Len(t, got, 1)
	assert.Equal(t, "Buy milk", got[0].Title)
	assert.False(t, got[0].Completed)
	assert.Equal(t, owner.ID, got[0].OwnerID)
	assert.NotEmpty(t, got[0].ID, "ID is store-assigned")
}

func TestAdd_TrimsTitle(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb)

	require.NoError(t, s.Add(context.Background(), "  Buy milk \n"))

	got := s.Tasks(task.FilterAll)
	require.Len(t, got, 1)
	assert.Equal(t, "Buy milk", got[0].Title)
	assert.Equal(t, "Buy milk", fb.Rows()[0].Title, "trimmed before the remote call")
}

func TestAdd_EmptyTitleSilentlyRejected(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb)

	require.NoError(t, s.Add(context.Background(), "   \t"))

	assert.Empty(t, s.Tasks(task.FilterAll))
	assert.Empty(t, fb.Rows(), "no remote call was made")
}

func TestAdd_NoIdentitySilentlyRejected(t *testing.T) {
	fb := testutil.NewFakeBackend()
	s := New(fb, fb, backend.User{})
	go s.Run(context.Background())
	t.Cleanup(s.Stop)

	require.NoError(t, s.Add(context.Background(), "Buy milk"))

	assert.Empty(t, fb.Rows())
}

func TestAdd_FailureLeavesStateUnchanged(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "existing", OwnerID: owner.ID})
	fb.FailInsert = errRemote

	err := s.Add(context.Background(), "Buy milk")

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, []string{"existing"}, titles(s.Tasks(task.FilterAll)))
}

func TestAdd_SuppressesFeedEcho(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb)

	require.NoError(t, s.Add(context.Background(), "Buy milk"))
	created := s.Tasks(task.FilterAll)[0]

	// The feed echoes the insert this session just confirmed.
	fb.Emit(backend.Event{Type: backend.EventInsert, Task: created})

	// Deliver a marker insert behind the echo; once it lands, the echo
	// has been reconciled too (single pump preserves order).
	marker := task.Task{ID: "marker", Title: "marker", OwnerID: owner.ID}
	fb.Emit(backend.Event{Type: backend.EventInsert, Task: marker})

	require.Eventually(t, func() bool {
		return len(s.Tasks(task.FilterAll)) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"marker", "Buy milk"}, titles(s.Tasks(task.FilterAll)),
		"echo did not duplicate the task")
}

func TestToggle(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "Buy milk", OwnerID: owner.ID})

	require.NoError(t, s.Toggle(context.Background(), "a"))
	assert.True(t, s.Tasks(task.FilterAll)[0].Completed)
	assert.True(t, fb.Rows()[0].Completed, "remote row updated")

	require.NoError(t, s.Toggle(context.Background(), "a"))
	assert.False(t, s.Tasks(task.FilterAll)[0].Completed)
}

func TestToggle_UnknownIDNoop(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "Buy milk", OwnerID: owner.ID})

	require.NoError(t, s.Toggle(context.Background(), "ghost"))

	assert.False(t, s.Tasks(task.FilterAll)[0].Completed)
}

func TestToggle_FailureRevertsOptimisticUpdate(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "Buy milk", OwnerID: owner.ID})
	before := s.Tasks(task.FilterAll)
	fb.FailSetCompleted = errRemote

	err := s.Toggle(context.Background(), "a")

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, before, s.Tasks(task.FilterAll), "state equals pre-mutation state")
	assert.False(t, s.Tasks(task.FilterAll)[0].Completed)
}

func TestEdit(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "Buy milk", OwnerID: owner.ID})

	require.NoError(t, s.Edit(context.Background(), "a", "  Buy oat milk "))

	assert.Equal(t, "Buy oat milk", s.Tasks(task.FilterAll)[0].Title)
	assert.Equal(t, "Buy oat milk", fb.Rows()[0].Title)
}

func TestEdit_EmptyTitleNoop(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "Buy milk", OwnerID: owner.ID})

	require.NoError(t, s.Edit(context.Background(), "a", "   "))

	assert.Equal(t, "Buy milk", s.Tasks(task.FilterAll)[0].Title)
}

func TestEdit_UnknownIDNoop(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "Buy milk", OwnerID: owner.ID})

	require.NoError(t, s.Edit(context.Background(), "ghost", "whatever"))

	assert.Equal(t, []string{"Buy milk"}, titles(s.Tasks(task.FilterAll)))
}

func TestEdit_FailureRestoresTitle(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "Buy milk", OwnerID: owner.ID})
	before := s.Tasks(task.FilterAll)
	fb.FailSetTitle = errRemote

	err := s.Edit(context.Background(), "a", "Buy oat milk")

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, before, s.Tasks(task.FilterAll))
}

func TestDelete(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb,
		task.Task{ID: "a", Title: "keep", OwnerID: owner.ID},
		task.Task{ID: "b", Title: "drop", OwnerID: owner.ID},
	)

	require.NoError(t, s.Delete(context.Background(), "b"))

	assert.Equal(t, []string{"keep"}, titles(s.Tasks(task.FilterAll)))
	require.Len(t, fb.Rows(), 1)
	assert.Equal(t, "keep", fb.Rows()[0].Title)
}

func TestDelete_FailureRestoresTask(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb,
		task.Task{ID: "a", Title: "keep", OwnerID: owner.ID},
		task.Task{ID: "b", Title: "drop", OwnerID: owner.ID},
	)
	before := s.Tasks(task.FilterAll)
	fb.FailDelete = errRemote

	err := s.Delete(context.Background(), "b")

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, before, s.Tasks(task.FilterAll))
}

func TestClearCompleted(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb,
		task.Task{ID: "a", Title: "done", Completed: true, OwnerID: owner.ID},
		task.Task{ID: "b", Title: "open", OwnerID: owner.ID},
	)

	require.NoError(t, s.ClearCompleted(context.Background()))

	assert.Equal(t, []string{"open"}, titles(s.Tasks(task.FilterAll)))
	require.Len(t, fb.Rows(), 1)
	assert.Equal(t, "open", fb.Rows()[0].Title)
}

func TestClearCompleted_NoneCompletedNoop(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "b", Title: "open", OwnerID: owner.ID})
	fb.FailDeleteAll = errRemote // would fail if called

	require.NoError(t, s.ClearCompleted(context.Background()))

	assert.Equal(t, []string{"open"}, titles(s.Tasks(task.FilterAll)))
}

func TestClearCompleted_FailureRestoresAll(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb,
		task.Task{ID: "a", Title: "done", Completed: true, OwnerID: owner.ID},
		task.Task{ID: "b", Title: "open", OwnerID: owner.ID},
	)
	before := s.Tasks(task.FilterAll)
	fb.FailDeleteAll = errRemote

	err := s.ClearCompleted(context.Background())

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, before, s.Tasks(task.FilterAll), "both tasks are present again")
}

func TestMove(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb,
		task.Task{ID: "a", Title: "first", Position: 0, OwnerID: owner.ID},
		task.Task{ID: "b", Title: "second", Position: 1, OwnerID: owner.ID},
		task.Task{ID: "c", Title: "third", Position: 2, OwnerID: owner.ID},
	)

	require.NoError(t, s.Move(context.Background(), []string{"c", "a", "b"}))

	got := s.Tasks(task.FilterAll)
	assert.Equal(t, []string{"third", "first", "second"}, titles(got))
	assert.Equal(t, 0, got[0].Position)
	assert.Equal(t, 1, got[1].Position)
	assert.Equal(t, 2, got[2].Position)

	// Positions persisted remotely.
	for _, row := range fb.Rows() {
		switch row.ID {
		case "c":
			assert.Equal(t, 0, row.Position)
		case "a":
			assert.Equal(t, 1, row.Position)
		case "b":
			assert.Equal(t, 2, row.Position)
		}
	}
}

func TestMove_UnknownIDsIgnored(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb,
		task.Task{ID: "a", Title: "first", OwnerID: owner.ID},
		task.Task{ID: "b", Title: "second", OwnerID: owner.ID},
	)

	require.NoError(t, s.Move(context.Background(), []string{"b", "ghost", "a"}))

	assert.Equal(t, []string{"second", "first"}, titles(s.Tasks(task.FilterAll)))
}

func TestMove_FailureRestoresOrder(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb,
		task.Task{ID: "a", Title: "first", Position: 0, OwnerID: owner.ID},
		task.Task{ID: "b", Title: "second", Position: 1, OwnerID: owner.ID},
	)
	before := s.Tasks(task.FilterAll)
	fb.FailSetPositions = errRemote

	err := s.Move(context.Background(), []string{"b", "a"})

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, before, s.Tasks(task.FilterAll))
}

func TestReconcile_InsertIsIdempotent(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb)

	ev := backend.Event{Type: backend.EventInsert, Task: task.Task{ID: "x", Title: "from feed", OwnerID: owner.ID}}
	s.reconcile(ev)
	s.reconcile(ev)

	assert.Equal(t, []string{"from feed"}, titles(s.Tasks(task.FilterAll)),
		"the same insertion event applied twice never produces two items")
}

func TestReconcile_InsertPlacesAtFront(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "existing", OwnerID: owner.ID})

	s.reconcile(backend.Event{Type: backend.EventInsert, Task: task.Task{ID: "x", Title: "new", OwnerID: owner.ID}})

	assert.Equal(t, []string{"new", "existing"}, titles(s.Tasks(task.FilterAll)))
}

func TestReconcile_UpdateReplacesWholesale(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "old title", OwnerID: owner.ID})

	incoming := task.Task{ID: "a", Title: "new title", Completed: true, Position: 7, OwnerID: owner.ID}
	s.reconcile(backend.Event{Type: backend.EventUpdate, Task: incoming})

	got := s.Tasks(task.FilterAll)
	require.Len(t, got, 1)
	assert.Equal(t, incoming, got[0])
}

func TestReconcile_UpdateUnknownIDNoop(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "existing", OwnerID: owner.ID})

	s.reconcile(backend.Event{Type: backend.EventUpdate, Task: task.Task{ID: "ghost", Title: "nope"}})

	assert.Equal(t, []string{"existing"}, titles(s.Tasks(task.FilterAll)))
}

func TestReconcile_Delete(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb,
		task.Task{ID: "a", Title: "stays", OwnerID: owner.ID},
		task.Task{ID: "b", Title: "goes", OwnerID: owner.ID},
	)

	s.reconcile(backend.Event{Type: backend.EventDelete, Task: task.Task{ID: "b"}})

	assert.Equal(t, []string{"stays"}, titles(s.Tasks(task.FilterAll)))
}

func TestReconcile_DeleteUnknownIDNoop(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "existing", OwnerID: owner.ID})

	s.reconcile(backend.Event{Type: backend.EventDelete, Task: task.Task{ID: "ghost"}})

	assert.Equal(t, []string{"existing"}, titles(s.Tasks(task.FilterAll)))
}

func TestFeedDelivery_EndToEnd(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb)

	fb.Emit(backend.Event{Type: backend.EventInsert, Task: task.Task{ID: "x", Title: "from another session", OwnerID: owner.ID}})

	require.Eventually(t, func() bool {
		return len(s.Tasks(task.FilterAll)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "from another session", s.Tasks(task.FilterAll)[0].Title)
}

func TestDerivedViews(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb,
		task.Task{ID: "a", Title: "open", OwnerID: owner.ID},
		task.Task{ID: "b", Title: "done", Completed: true, OwnerID: owner.ID},
	)

	active := s.Tasks(task.FilterActive)
	require.Len(t, active, 1)
	assert.Equal(t, "open", active[0].Title)

	completed := s.Tasks(task.FilterCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, "done", completed[0].Title)

	c := s.Counts()
	assert.Equal(t, 1, c.Active)
	assert.Equal(t, 1, c.Completed)
	assert.Equal(t, len(s.Tasks(task.FilterAll)), c.Active+c.Completed)
}

func TestCounts_StayConsistentAcrossMutations(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "one"))
	require.NoError(t, s.Add(ctx, "two"))
	id := s.Tasks(task.FilterAll)[0].ID
	require.NoError(t, s.Toggle(ctx, id))
	require.NoError(t, s.ClearCompleted(ctx))

	c := s.Counts()
	assert.Equal(t, len(s.Tasks(task.FilterAll)), c.Active+c.Completed)
	assert.Equal(t, 1, c.Active)
	assert.Equal(t, 0, c.Completed)
}

func TestStop(t *testing.T) {
	s, fb := setupSyncer(t)
	seedBacked(t, s, fb, task.Task{ID: "a", Title: "existing", OwnerID: owner.ID})

	s.Stop()

	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Tasks(task.FilterAll), "local state dropped on stop")
	require.Eventually(t, func() bool {
		return fb.SubscriberCount() == 0
	}, 2*time.Second, 5*time.Millisecond)

	err := s.Add(context.Background(), "too late")
	assert.Error(t, err, "operations fail once stopped")
}

func TestRun_ContextCancelTearsDown(t *testing.T) {
	fb := testutil.NewFakeBackend()
	s := New(fb, fb, owner)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	require.NoError(t, s.Load(context.Background()))

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancel")
	}
	assert.Equal(t, StateIdle, s.State())
}
