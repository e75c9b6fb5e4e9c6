package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator generates predictable IDs: "<prefix>-1", "<prefix>-2", ...
//
// This enables golden comparison of audit records whose production IDs are
// UUIDv7.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator. An empty prefix becomes "id".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
