package testutil

import (
	"fmt"
	"sync"
)

// FixedIDs returns predetermined identifiers, enabling deterministic rows
// and golden output in tests.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedIDs("id-1", "id-2")
//	gen.Generate() // "id-1"
//	gen.Generate() // "id-2"
//	gen.Generate() // panic: all ids exhausted
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// Generate returns the next predetermined identifier.
//
// Panics when the sequence is exhausted. This is a fail-fast approach to
// catch test misconfiguration (test created more rows than expected).
func (g *FixedIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// SeqIDs returns identifiers "prefix-1", "prefix-2", ... without end.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SeqIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSeqIDs creates an unbounded sequential generator.
func NewSeqIDs(prefix string) *SeqIDs {
	return &SeqIDs{prefix: prefix}
}

// Generate returns the next sequential identifier.
func (g *SeqIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
