package store

import (
	"crypto/sha256"
	"sync"

	"proofrank/internal/graph"
)

// Memo is a bounded in-process cache of parsed graphs keyed by record
// digest, so identical proof-graph shapes are parsed once per run. The
// capacity is a safety valve, not a performance guarantee: when full, an
// arbitrary entry is dropped.
type Memo struct {
	mu      sync.Mutex
	max     int
	entries map[[32]byte]*graph.Graph
}

// NewMemo returns a memo holding at most max graphs. A max below 1 is
// treated as 1.
func NewMemo(max int) *Memo {
	if max < 1 {
		max = 1
	}
	return &Memo{max: max, entries: make(map[[32]byte]*graph.Graph, max)}
}

// Get returns the parsed graph for record, or nil.
func (m *Memo) Get(record string) *graph.Graph {
	key := sha256.Sum256([]byte(record))
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key]
}

// Put remembers the parsed graph for record, evicting an arbitrary entry
// if the memo is full.
func (m *Memo) Put(record string, g *graph.Graph) {
	key := sha256.Sum256([]byte(record))
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok && len(m.entries) >= m.max {
		for k := range m.entries {
			delete(m.entries, k)
			break
		}
	}
	m.entries[key] = g
}

// Len returns the current entry count.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
