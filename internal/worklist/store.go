// Package worklist holds the set of services this agent is responsible
// for probing. The control plane owns the content: the store is replaced
// wholesale on each heartbeat, never mutated in place, so readers always
// see a list that was whole at heartbeat time.
package worklist

import (
	"sync"

	"github.com/servicemon/agent/internal/domain"
)

// Store is a snapshot container for the current worklist. Duplicate
// (host, port) entries are kept as-is; the server is the source of truth.
type Store struct {
	mu       sync.RWMutex
	services []domain.ServiceTarget
}

// NewStore creates an empty worklist store.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps the entire worklist for the given one, preserving order.
// The input is copied so later mutation by the caller cannot leak in.
func (s *Store) Replace(services []domain.ServiceTarget) {
	next := make([]domain.ServiceTarget, len(services))
	copy(next, services)

	s.mu.Lock()
	s.services = next
	s.mu.Unlock()
}

// Snapshot returns a copy of the current worklist in server order.
func (s *Store) Snapshot() []domain.ServiceTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ServiceTarget, len(s.services))
	copy(out, s.services)
	return out
}

// Len returns the number of entries in the current worklist.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.services)
}
