// Package feature maintains the shared feature-name interning table and the
// dense trainable weight vector indexed by it.
//
// The dictionary is single-writer during setup (grounding, record parsing),
// then frozen and shared read-only across worker goroutines for the hot
// inference/training path. Ids are assigned in first-seen order starting at
// 1; id 0 is reserved and never handed out.
package feature

import (
	"errors"
	"fmt"
	"sync"
)

// ErrFrozen is returned when Intern is called on a frozen dictionary with a
// name it has not seen before.
var ErrFrozen = errors.New("feature: dictionary is frozen")

// Dictionary is an append-only bidirectional name<->id mapping.
type Dictionary struct {
	mu     sync.RWMutex
	ids    map[string]int32
	names  []string // names[0] is the reserved empty slot
	frozen bool
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{
		ids:   make(map[string]int32),
		names: []string{""},
	}
}

// Intern returns the id for name, assigning the next id if the name is new.
// Interning a new name after Freeze fails with ErrFrozen.
func (d *Dictionary) Intern(name string) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.ids[name]; ok {
		return id, nil
	}
	if d.frozen {
		return 0, fmt.Errorf("intern %q: %w", name, ErrFrozen)
	}
	id := int32(len(d.names))
	d.ids[name] = id
	d.names = append(d.names, name)
	return id, nil
}

// ID returns the id for name, or false if the name has never been interned.
func (d *Dictionary) ID(name string) (int32, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.ids[name]
	return id, ok
}

// Name returns the name for id, or "" if id is out of range.
func (d *Dictionary) Name(id int32) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id < 1 || int(id) >= len(d.names) {
		return ""
	}
	return d.names[id]
}

// Size returns the number of interned names.
func (d *Dictionary) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names) - 1
}

// Symbols returns all interned names in id order (id 1 first).
func (d *Dictionary) Symbols() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.names)-1)
	copy(out, d.names[1:])
	return out
}

// Freeze marks the dictionary read-only for the duration of an epoch.
// Lookups remain valid; new interns fail.
func (d *Dictionary) Freeze() {
	d.mu.Lock()
	d.frozen = true
	d.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (d *Dictionary) Frozen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frozen
}
