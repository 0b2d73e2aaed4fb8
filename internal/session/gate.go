package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/ticker/internal/backend"
)

// SignUpNotice is shown after a successful registration. Parity with
// providers that require email confirmation before the first sign-in.
const SignUpNotice = "Check your email for the confirmation link!"

// StateKind is the gate's tri-state signal.
type StateKind int

const (
	// StateLoading means the startup resume has not finished yet.
	StateLoading StateKind = iota + 1
	// StateAuthenticated means a live session exists.
	StateAuthenticated
	// StateUnauthenticated means no identity is present.
	StateUnauthenticated
)

// String implements fmt.Stringer.
func (k StateKind) String() string {
	switch k {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// State is one observation of the gate. Session is zero unless Kind is
// StateAuthenticated.
type State struct {
	Kind    StateKind
	Session backend.Session
}

// Gate owns the current identity for this process.
//
// Thread-safety: all methods are safe for concurrent use. State changes
// are observable via Watch.
type Gate struct {
	identity backend.Identity
	file     *File // nil disables persistence

	mu     sync.Mutex
	state  State
	signal chan State // coalescing, size 1
}

// Option configures a Gate.
type Option func(*Gate)

// WithFile persists the session token at path so later processes resume
// the session.
func WithFile(f *File) Option {
	return func(g *Gate) {
		g.file = f
	}
}

// New creates a Gate in the loading state. Call Resume to settle it.
func New(identity backend.Identity, opts ...Option) *Gate {
	g := &Gate{
		identity: identity,
		state:    State{Kind: StateLoading},
		signal:   make(chan State, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current observation.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session returns the current session and whether one exists.
func (g *Gate) Session() (backend.Session, bool) {
	st := g.State()
	return st.Session, st.Kind == StateAuthenticated
}

// Watch returns a channel that receives state changes. The channel is
// coalescing: a slow consumer sees only the latest state, never a stale
// backlog.
func (g *Gate) Watch() <-chan State {
	return g.signal
}

// Resume settles the startup loading state: it restores the persisted
// session token if one exists and validates it against the identity
// service. An invalid or missing token leaves the gate unauthenticated;
// an invalid token is also removed from disk.
func (g *Gate) Resume(ctx context.Context) State {
	token, err := g.file.Load()
	if err != nil {
		slog.Warn("could not read persisted session", "error", err)
	}
	if token == "" {
		return g.setState(State{Kind: StateUnauthenticated})
	}

	sess, err := g.identity.Resume(ctx, token)
	if err != nil {
		slog.Info("persisted session is no longer valid", "error", err)
		if err := g.file.Delete(); err != nil {
			slog.Warn("could not delete stale session file", "error", err)
		}
		return g.setState(State{Kind: StateUnauthenticated})
	}

	slog.Debug("session resumed", "user_id", sess.User.ID, "email", sess.User.Email)
	return g.setState(State{Kind: StateAuthenticated, Session: sess})
}

// SignIn authenticates against the identity service. On success the gate
// becomes authenticated and the session token is persisted.
func (g *Gate) SignIn(ctx context.Context, email, password string) error {
	sess, err := g.identity.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	if err := g.file.Save(sess); err != nil {
		slog.Warn("could not persist session", "error", err)
	}
	g.setState(State{Kind: StateAuthenticated, Session: sess})
	slog.Info("signed in", "user_id", sess.User.ID, "email", sess.User.Email)
	return nil
}

// SignUp registers a new account and returns a notice for the user. It
// does NOT sign the user in: providers that require email verification
// reject the first sign-in until the account is confirmed, so the gate
// stays in its current state either way.
func (g *Gate) SignUp(ctx context.Context, email, password string) (string, error) {
	if _, err := g.identity.SignUp(ctx, email, password); err != nil {
		return "", err
	}
	slog.Info("account registered", "email", email)
	return SignUpNotice, nil
}

// SignOut clears the current identity. Local state and the persisted
// token are cleared even when the backend call fails; the returned error
// reports that failure so callers can surface it.
func (g *Gate) SignOut(ctx context.Context) error {
	sess, ok := g.Session()

	if err := g.file.Delete(); err != nil {
		slog.Warn("could not delete session file", "error", err)
	}
	g.setState(State{Kind: StateUnauthenticated})

	if !ok {
		return nil
	}
	if err := g.identity.SignOut(ctx, sess.Token); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	slog.Info("signed out", "user_id", sess.User.ID)
	return nil
}

// setState records the new state and signals watchers, replacing any
// undelivered previous signal.
func (g *Gate) setState(st State) State {
	g.mu.Lock()
	g.state = st
	g.mu.Unlock()

	select {
	case g.signal <- st:
	default:
		// Drop the stale observation, then push the fresh one.
		select {
		case <-g.signal:
		default:
		}
		select {
		case g.signal <- st:
		default:
		}
	}
	return st
}
