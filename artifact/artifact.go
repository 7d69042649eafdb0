// Package artifact archives finalized page definitions so completed
// sessions can be fetched after the coordinator evicts its in-memory
// bookkeeping, or across a service restart when a durable implementation is
// plugged in.
package artifact

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when no artifact exists for a session.
var ErrNotFound = errors.New("artifact: not found")

// Store persists final artifacts keyed by session id.
type Store interface {
	Save(sessionID string, artifact map[string]any) error
	Get(sessionID string) (map[string]any, error)
}

// InMemoryStore is an in-process Store for tests, examples and
// single-process deployments. Artifacts are copied on save and retrieval so
// callers cannot mutate stored state.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string]any
}

// NewInMemoryStore returns an empty in-memory archive.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: map[string]map[string]any{}}
}

// Save stores (or overwrites) the artifact for a session.
func (s *InMemoryStore) Save(sessionID string, artifact map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[sessionID] = copyMap(artifact)
	return nil
}

// Get returns a copy of the stored artifact or ErrNotFound.
func (s *InMemoryStore) Get(sessionID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	artifact, ok := s.artifacts[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMap(artifact), nil
}

// Len reports the number of archived artifacts.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}

// copyMap shallow-copies the top level; nested values are shared JSON-shaped
// data the coordinator never mutates after finalization.
func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
