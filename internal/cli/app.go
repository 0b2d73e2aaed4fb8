package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ticker/internal/backend"
	"github.com/roach88/ticker/internal/backend/sqlite"
	"github.com/roach88/ticker/internal/session"
	"github.com/roach88/ticker/internal/sync"
	"github.com/roach88/ticker/internal/task"
)

// app bundles the wiring every command needs: the opened store, the
// identity gate with its persisted session file, and an output formatter
// bound to the command's streams.
type app struct {
	opts  *RootOptions
	store *sqlite.Store
	gate  *session.Gate
	out   *OutputFormatter
}

// openApp resolves configuration, opens the database, and builds the
// identity gate. Callers must Close.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	dir, err := configDir()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "could not resolve config directory", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, WrapExitError(ExitCommandError, "could not create config directory", err)
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "could not load config", err)
	}

	dbPath := resolveDatabase(opts, dir, cfg)
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	slog.Debug("database ready", "path", dbPath)

	gate := session.New(store,
		session.WithFile(session.NewFile(filepath.Join(dir, "session.json"))))

	return &app{
		opts:  opts,
		store: store,
		gate:  gate,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

// Close releases the store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// signedIn settles the gate from the persisted token and returns the live
// session. Commands that need an identity call this first.
func (a *app) signedIn(ctx context.Context) (backend.Session, error) {
	st := a.gate.Resume(ctx)
	if st.Kind != session.StateAuthenticated {
		return backend.Session{}, NewExitError(ExitCommandError, "not signed in (run 'ticker login')")
	}
	return st.Session, nil
}

// withSyncer runs fn against a loaded syncer for the given user. The
// syncer's loop is stopped before returning.
func (a *app) withSyncer(ctx context.Context, user backend.User, fn func(*sync.Syncer) error) error {
	s := sync.New(a.store, a.store, user)
	go s.Run(context.Background())
	defer s.Stop()

	if err := s.Load(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to load tasks", err)
	}
	return fn(s)
}

// authExit translates an identity error into formatted output plus an
// ExitError. Auth rejections carry their backend code; anything else is
// passed through as a command error.
func (a *app) authExit(err error, fallback string) error {
	var authErr *backend.AuthError
	if errors.As(err, &authErr) {
		_ = a.out.Error(string(authErr.Code), authErr.Message, nil)
		return NewExitError(ExitFailure, authErr.Message)
	}
	return WrapExitError(ExitCommandError, fallback, err)
}

// readPassword returns the --password flag value, or prompts on stderr
// and reads one line from stdin. Plain-line reading keeps the command
// scriptable; no terminal echo suppression.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	r := bufio.NewReader(cmd.InOrStdin())
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// resolveTaskID matches arg against the loaded tasks: an exact ID first,
// then a unique ID prefix. Ambiguous or unknown references are errors so
// a typo never mutates the wrong task.
func resolveTaskID(tasks []task.Task, arg string) (string, error) {
	var matches []string
	for _, t := range tasks {
		if t.ID == arg {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, arg) {
			matches = append(matches, t.ID)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", NewExitError(ExitCommandError, fmt.Sprintf("no task matches %q", arg))
	default:
		return "", NewExitError(ExitCommandError, fmt.Sprintf("%q is ambiguous (%d tasks match)", arg, len(matches)))
	}
}
