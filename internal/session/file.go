package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/ticker/internal/backend"
)

// File persists the session token between processes.
//
// The directory is created 0700 and the file written 0600: the token is a
// credential and stays owner-only. A nil *File disables persistence; all
// methods are no-ops on a nil receiver.
type File struct {
	path string
}

// fileContents is the on-disk shape. Email is informational only; resume
// uses the token.
type fileContents struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFile creates a session file handle at an explicit path.
func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultFile returns the session file under the user's home directory
// (~/.ticker/session.json).
func DefaultFile() (*File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("home: %w", err)
	}
	return NewFile(filepath.Join(home, ".ticker", "session.json")), nil
}

// Load returns the persisted token, or "" when no session is stored.
func (f *File) Load() (string, error) {
	if f == nil {
		return "", nil
	}

	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil // not logged in
		}
		return "", fmt.Errorf("read session file: %w", err)
	}

	var c fileContents
	if err := json.Unmarshal(b, &c); err != nil {
		return "", fmt.Errorf("parse session file: %w", err)
	}
	return c.Token, nil
}

// Save writes the session token to disk, owner-only.
func (f *File) Save(sess backend.Session) error {
	if f == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	b, err := json.MarshalIndent(fileContents{
		Token:     sess.Token,
		Email:     sess.User.Email,
		CreatedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.WriteFile(f.path, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Delete removes the stored session. Missing files are not an error.
func (f *File) Delete() error {
	if f == nil {
		return nil
	}

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete session file: %w", err)
	}
	return nil
}
