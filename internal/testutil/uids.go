package testutil

import (
	"fmt"
	"sync"
)

// SequenceUIDs generates predictable calendar event UIDs: prefix-1,
// prefix-2, ...
//
// This enables golden comparison of generated calendars.
//
// Thread-safety: SequenceUIDs is safe for concurrent use via internal mutex.
type SequenceUIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceUIDs creates a generator. An empty prefix becomes "test-uid".
func NewSequenceUIDs(prefix string) *SequenceUIDs {
	if prefix == "" {
		prefix = "test-uid"
	}
	return &SequenceUIDs{prefix: prefix}
}

// Generate returns the next UID.
func (g *SequenceUIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
