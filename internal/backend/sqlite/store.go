package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/ticker/internal/backend"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on sessions.account_id
const currentSchemaVersion = 1

// IDGenerator produces opaque identifiers for rows and session tokens.
// Implemented by UUIDv7Generator (production) and testutil.FixedIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so IDs assigned
// later sort after IDs assigned earlier. Handy for debugging and gives
// creation-time ordering a stable tiebreak.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Store is the SQLite-backed implementation of backend.Identity,
// backend.TaskStore, and backend.ChangeFeed.
//
// All task writes publish a change event to matching subscribers after
// the write commits; see feed.go.
type Store struct {
	db  *sql.DB
	ids IDGenerator
	now func() time.Time

	mu      sync.Mutex
	subs    map[int]*subscriber
	nextSub int
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the identifier generator.
// Tests use this with a fixed sequence for deterministic rows.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithClock overrides the time source used for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times on the
// same path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:   db,
		ids:  UUIDv7Generator{},
		now:  func() time.Time { return time.Now().UTC() },
		subs: make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Close closes the database connection and terminates every change-feed
// subscription. Should be called when the store is no longer needed.
func (s *Store) Close() error {
	s.closeSubscribers()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the sessions.account_id index for existing databases.
// New databases get this from schema.sql, but DBs created before v1 need
// it added explicitly.
func migrateToV1(db *sql.DB) error {
	// CREATE INDEX IF NOT EXISTS is safe - no-op if index exists
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sessions_account
		ON sessions(account_id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// timeFormat is how timestamps are stored. RFC 3339 with nanoseconds keeps
// lexical order equal to chronological order within a single store.
const timeFormat = time.RFC3339Nano

func (s *Store) stamp() string {
	return s.now().Format(timeFormat)
}

func parseStamp(v string) (time.Time, error) {
	t, err := time.Parse(timeFormat, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return t, nil
}

// Interface compliance checks.
var (
	_ backend.Identity   = (*Store)(nil)
	_ backend.TaskStore  = (*Store)(nil)
	_ backend.ChangeFeed = (*Store)(nil)
)
