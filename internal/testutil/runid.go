package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDs generates predictable run ids ("run-0001", "run-0002",
// ...) so stored run history can be compared in tests. It implements
// store.IDGenerator.
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialRunIDs struct {
	mu   sync.Mutex
	next int
}

// Generate returns the next id.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("run-%04d", g.next)
}
