// Package task provides the domain types for the ticker task list.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import task; task imports nothing internal. This keeps
// the domain model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Titles are stored trimmed and NFC-normalized, never raw input
//   - Row IDs are opaque strings assigned by the store, never reused
//   - Position defines a total order per owner but need not be contiguous
//   - All JSON tags use snake_case
package task
