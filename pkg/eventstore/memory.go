package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// MemoryStore is an in-memory Store used in tests and the admin tooling's
// dry-run mode.
type MemoryStore struct {
	mu      sync.RWMutex
	streams map[string][]StoredEvent
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{streams: make(map[string][]StoredEvent)}
}

// Load returns a copy of the stream's events.
func (s *MemoryStore) Load(_ context.Context, streamID string) ([]StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.streams[streamID]
	out := make([]StoredEvent, len(events))
	copy(out, events)
	return out, nil
}

// Append writes events with optimistic concurrency on the stream version.
func (s *MemoryStore) Append(_ context.Context, streamID string, expectedVersion int64, events []shared.Event) ([]StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := int64(len(s.streams[streamID]))
	if current != expectedVersion {
		return nil, shared.ErrVersionConflict
	}

	stored, err := Marshal(streamID, expectedVersion, events, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.streams[streamID] = append(s.streams[streamID], stored...)
	return stored, nil
}
