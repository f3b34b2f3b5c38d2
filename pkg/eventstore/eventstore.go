// Package eventstore defines the append-only stream store the aggregates
// are persisted through. Streams are identified by a type-qualified id such
// as "assignment:case-<uuid>"; concurrent writers are serialized by
// optimistic concurrency on the stream version.
package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// StoredEvent is one recorded event of a stream.
type StoredEvent struct {
	StreamID   string
	Version    int64
	Name       string
	Data       json.RawMessage
	RecordedAt time.Time
}

// Store is the append-only event stream store.
type Store interface {
	// Load returns a stream's events in version order. A missing stream
	// yields an empty slice, not an error.
	Load(ctx context.Context, streamID string) ([]StoredEvent, error)

	// Append writes events after expectedVersion, the version of the last
	// event the caller saw (0 for a new stream). Returns
	// shared.ErrVersionConflict when another writer got there first.
	Append(ctx context.Context, streamID string, expectedVersion int64, events []shared.Event) ([]StoredEvent, error)
}

// Marshal renders domain events into their stored form, starting at
// expectedVersion+1.
func Marshal(streamID string, expectedVersion int64, events []shared.Event, now time.Time) ([]StoredEvent, error) {
	stored := make([]StoredEvent, 0, len(events))
	for i, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("marshal event %s: %w", event.EventName(), err)
		}
		stored = append(stored, StoredEvent{
			StreamID:   streamID,
			Version:    expectedVersion + int64(i) + 1,
			Name:       event.EventName(),
			Data:       data,
			RecordedAt: now,
		})
	}
	return stored, nil
}
