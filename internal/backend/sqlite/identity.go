package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/ticker/internal/backend"
)

// minPasswordLen is the sign-up password policy.
const minPasswordLen = 8

// SignUp registers a new account and opens a session for it.
//
// Accounts are created verified; the verified flag exists so a deployment
// that adds a confirmation flow can gate sign-in without a schema change.
func (s *Store) SignUp(ctx context.Context, email, password string) (backend.Session, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return backend.Session{}, backend.NewAuthError(backend.CodeInvalidCredentials, "invalid email address")
	}
	if len(password) < minPasswordLen {
		return backend.Session{}, backend.NewAuthError(backend.CodeWeakPassword,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return backend.Session{}, fmt.Errorf("hash password: %w", err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE email = ?`, email).Scan(&exists)
	switch {
	case err == nil:
		return backend.Session{}, backend.NewAuthError(backend.CodeDuplicateAccount, "an account with this email already exists")
	case !errors.Is(err, sql.ErrNoRows):
		return backend.Session{}, fmt.Errorf("check existing account: %w", err)
	}

	id := s.ids.Generate()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, verified, created_at)
		VALUES (?, ?, ?, 1, ?)
	`, id, email, hash, s.stamp())
	if err != nil {
		return backend.Session{}, fmt.Errorf("insert account: %w", err)
	}

	return s.openSession(ctx, backend.User{ID: id, Email: email})
}

// SignIn authenticates an account and opens a session.
//
// Unknown emails and wrong passwords both report CodeInvalidCredentials so
// the response does not leak which emails are registered.
func (s *Store) SignIn(ctx context.Context, email, password string) (backend.Session, error) {
	email = normalizeEmail(email)

	var (
		id       string
		hash     []byte
		verified bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash, verified FROM accounts WHERE email = ?
	`, email).Scan(&id, &hash, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.Session{}, backend.NewAuthError(backend.CodeInvalidCredentials, "invalid email or password")
	}
	if err != nil {
		return backend.Session{}, fmt.Errorf("read account: %w", err)
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return backend.Session{}, backend.NewAuthError(backend.CodeInvalidCredentials, "invalid email or password")
	}
	if !verified {
		return backend.Session{}, backend.NewAuthError(backend.CodeUnverifiedAccount, "confirm your email address before signing in")
	}

	return s.openSession(ctx, backend.User{ID: id, Email: email})
}

// SignOut invalidates a session token. Unknown tokens are silently
// accepted: the session is gone either way.
func (s *Store) SignOut(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Resume rehydrates the session for a previously issued token.
// Reports CodeSessionExpired if the token is unknown or revoked.
func (s *Store) Resume(ctx context.Context, token string) (backend.Session, error) {
	var u backend.User
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.email
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.token = ?
	`, token).Scan(&u.ID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.Session{}, backend.NewAuthError(backend.CodeSessionExpired, "session is no longer valid")
	}
	if err != nil {
		return backend.Session{}, fmt.Errorf("read session: %w", err)
	}

	return backend.Session{Token: token, User: u}, nil
}

// openSession issues a fresh opaque token for the user.
func (s *Store) openSession(ctx context.Context, u backend.User) (backend.Session, error) {
	token := s.ids.Generate()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, account_id, created_at)
		VALUES (?, ?, ?)
	`, token, u.ID, s.stamp())
	if err != nil {
		return backend.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return backend.Session{Token: token, User: u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
