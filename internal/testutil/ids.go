package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequentialIDs generates "<prefix>-1", "<prefix>-2", ... as call ids.
// It satisfies engine.CallIDGenerator and never runs out, unlike
// engine.FixedGenerator.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialIDs creates a generator. An empty prefix becomes "call".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "call"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
