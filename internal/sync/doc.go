// Package sync owns the in-memory task list for the current identity
// session and keeps it reconciled with the remote store.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All local-state mutation happens in the Run loop goroutine. Two event
// sources feed it through one FIFO queue:
//  1. Commands (Load, Add, Toggle, ...) enqueued by public methods, which
//     block until their command has been processed
//  2. Change-feed events pumped from the backend subscription
//
// Queue order preserves feed delivery order but makes no promise about
// how feed events interleave with command outcomes; the idempotent merge
// rules below make any interleaving safe.
//
// Optimistic Mutations:
// Each mutating command is a transaction: the pre-image is captured, the
// post-image applied locally, the matching remote write issued, and on
// write failure the inverse is applied (the pre-image restored). Write
// failures are logged and reported, never retried.
//
// Reconciliation:
// Feed events merge last-writer-wins: inserts are dropped when the ID is
// already present (the echo of this session's own Add), updates replace
// the matching item wholesale, deletes remove it. Events for unknown IDs
// are no-ops. Applying the same event twice never duplicates an item.
//
// The subscription is scoped to the identity session: Load drops any
// previous subscription before opening a new one, and Stop releases it
// along with all local state.
package sync
