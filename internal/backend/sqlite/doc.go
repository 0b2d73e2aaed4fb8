// Package sqlite is the self-hosted backend: one SQLite database serving
// all three consumed contracts (Identity, TaskStore, ChangeFeed).
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//   - single writer connection: avoids SQLITE_BUSY under load
//
// # Change feed
//
// The feed is an in-process fan-out: every committed task write publishes
// one event to each subscriber registered for the row's owner, including
// the subscriber that issued the write. Delivery is best effort; a full
// subscriber buffer drops the event with a warning. Consumers merge
// idempotently, so dropped or echoed events never corrupt state.
//
// # Passwords and sessions
//
// Passwords are stored as bcrypt hashes, never in clear. Sessions are
// opaque UUIDv7 tokens; sign-out deletes the row, resume validates it.
package sqlite
