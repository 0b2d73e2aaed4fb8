package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/roach88/ticker/internal/backend"
)

// FakeIdentity is an in-memory backend.Identity. FailAll simulates a
// network outage: every call returns it while set.
type FakeIdentity struct {
	mu       sync.Mutex
	ids      *SeqIDs
	accounts map[string]fakeAccount // keyed by email
	sessions map[string]backend.User

	FailAll error
}

type fakeAccount struct {
	user     backend.User
	password string
	verified bool
}

// NewFakeIdentity creates an empty identity service.
func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{
		ids:      NewSeqIDs("user"),
		accounts: make(map[string]fakeAccount),
		sessions: make(map[string]backend.User),
	}
}

// AddAccount registers an account directly, bypassing sign-up policy.
func (f *FakeIdentity) AddAccount(email, password string, verified bool) backend.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := backend.User{ID: f.ids.Generate(), Email: email}
	f.accounts[email] = fakeAccount{user: u, password: password, verified: verified}
	return u
}

// SignIn implements backend.Identity.
func (f *FakeIdentity) SignIn(ctx context.Context, email, password string) (backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAll != nil {
		return backend.Session{}, f.FailAll
	}

	acct, ok := f.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || acct.password != password {
		return backend.Session{}, backend.NewAuthError(backend.CodeInvalidCredentials, "invalid email or password")
	}
	if !acct.verified {
		return backend.Session{}, backend.NewAuthError(backend.CodeUnverifiedAccount, "confirm your email address before signing in")
	}
	return f.openSession(acct.user), nil
}

// SignUp implements backend.Identity.
func (f *FakeIdentity) SignUp(ctx context.Context, email, password string) (backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAll != nil {
		return backend.Session{}, f.FailAll
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := f.accounts[email]; ok {
		return backend.Session{}, backend.NewAuthError(backend.CodeDuplicateAccount, "an account with this email already exists")
	}
	if len(password) < 8 {
		return backend.Session{}, backend.NewAuthError(backend.CodeWeakPassword, "password must be at least 8 characters")
	}
	u := backend.User{ID: f.ids.Generate(), Email: email}
	f.accounts[email] = fakeAccount{user: u, password: password, verified: true}
	return f.openSession(u), nil
}

// SignOut implements backend.Identity.
func (f *FakeIdentity) SignOut(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAll != nil {
		return f.FailAll
	}
	delete(f.sessions, token)
	return nil
}

// Resume implements backend.Identity.
func (f *FakeIdentity) Resume(ctx context.Context, token string) (backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAll != nil {
		return backend.Session{}, f.FailAll
	}

	u, ok := f.sessions[token]
	if !ok {
		return backend.Session{}, backend.NewAuthError(backend.CodeSessionExpired, "session is no longer valid")
	}
	return backend.Session{Token: token, User: u}, nil
}

func (f *FakeIdentity) openSession(u backend.User) backend.Session {
	token := f.ids.Generate()
	f.sessions[token] = u
	return backend.Session{Token: token, User: u}
}

var _ backend.Identity = (*FakeIdentity)(nil)
