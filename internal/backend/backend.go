package backend

import (
	"context"

	"github.com/roach88/ticker/internal/task"
)

// User is the authenticated identity as seen by this module. Accounts are
// created and destroyed by the identity service; ticker only references
// them.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a live authenticated session. Token is opaque to callers and
// can be persisted to resume the session in a later process.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Identity is the account-management service.
type Identity interface {
	// SignIn authenticates an existing account and opens a session.
	SignIn(ctx context.Context, email, password string) (Session, error)

	// SignUp registers a new account. A session is returned for providers
	// that activate accounts immediately; callers that require email
	// verification must not treat it as a sign-in.
	SignUp(ctx context.Context, email, password string) (Session, error)

	// SignOut invalidates the session token.
	SignOut(ctx context.Context, token string) error

	// Resume validates a previously issued token and rehydrates its session.
	Resume(ctx context.Context, token string) (Session, error)
}

// TaskStore is row-oriented CRUD over the tasks table, scoped by owner.
type TaskStore interface {
	// ListByOwner returns every task owned by ownerID in display order:
	// explicit positions first, newest created among equals.
	ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error)

	// Insert creates a task with a store-assigned ID and position and
	// returns the created row.
	Insert(ctx context.Context, ownerID, title string) (task.Task, error)

	// SetCompleted updates the completion flag of one task.
	SetCompleted(ctx context.Context, id string, completed bool) error

	// SetTitle updates the title of one task.
	SetTitle(ctx context.Context, id, title string) error

	// SetPositions updates display positions for a set of tasks.
	SetPositions(ctx context.Context, positions map[string]int) error

	// Delete removes one task.
	Delete(ctx context.Context, id string) error

	// DeleteAll removes every task in ids. Unknown ids are ignored.
	DeleteAll(ctx context.Context, ids []string) error
}

// EventType distinguishes change-feed event kinds.
type EventType string

const (
	// EventInsert announces a newly created row.
	EventInsert EventType = "insert"
	// EventUpdate announces a changed row. Task carries the full new version.
	EventUpdate EventType = "update"
	// EventDelete announces a removed row. Task carries the last known version.
	EventDelete EventType = "delete"
)

// Event is one row-level change delivered by the feed.
type Event struct {
	Type EventType `json:"type"`
	Task task.Task `json:"task"`
}

// ChangeFeed delivers row-level change events filtered to one owner.
//
// Delivery is best effort and may include echoes of the subscriber's own
// writes; consumers must merge events idempotently. Events for a single
// subscription arrive in the order the feed committed them.
type ChangeFeed interface {
	// Subscribe opens a stream of events for ownerID. The returned stop
	// function ends delivery and closes the channel; it is safe to call
	// exactly once. The channel is also closed when ctx is cancelled.
	Subscribe(ctx context.Context, ownerID string) (<-chan Event, func(), error)
}
