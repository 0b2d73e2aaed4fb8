// Package backend declares the contracts ticker consumes from its
// backing services: account management (Identity), row-oriented task
// storage (TaskStore), and row-level change notifications (ChangeFeed).
//
// The contracts are written against the shapes the sync layer needs, not
// against any particular provider. internal/backend/sqlite ships a
// self-hosted implementation; tests substitute fakes.
package backend
