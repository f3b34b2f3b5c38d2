package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/caseaccessio/api/internal/metrics"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/eventstore"
)

// EventStore implements eventstore.Store on an append-only events table.
// The UNIQUE (stream_id, version) constraint carries the optimistic
// concurrency check: a racing writer hits the constraint and gets
// shared.ErrVersionConflict.
type EventStore struct {
	db *DB
}

var _ eventstore.Store = (*EventStore)(nil)

// NewEventStore creates a new EventStore.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// Load returns a stream's events in version order.
func (s *EventStore) Load(ctx context.Context, streamID string) ([]eventstore.StoredEvent, error) {
	query := `
		SELECT stream_id, version, event_name, payload, recorded_at
		FROM events
		WHERE stream_id = $1
		ORDER BY version ASC
	`

	rows, err := s.db.QueryContext(ctx, query, streamID)
	if err != nil {
		return nil, fmt.Errorf("load stream %s: %w", streamID, err)
	}
	defer rows.Close()

	var events []eventstore.StoredEvent
	for rows.Next() {
		var e eventstore.StoredEvent
		if err := rows.Scan(&e.StreamID, &e.Version, &e.Name, &e.Data, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stream %s: %w", streamID, err)
	}

	return events, nil
}

// ListStreams returns the distinct stream ids starting with prefix, in
// lexical order. Used by operational tooling to replay streams.
func (s *EventStore) ListStreams(ctx context.Context, prefix string) ([]string, error) {
	query := `
		SELECT DISTINCT stream_id
		FROM events
		WHERE stream_id LIKE $1 || '%'
		ORDER BY stream_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("list streams with prefix %s: %w", prefix, err)
	}
	defer rows.Close()

	var streams []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stream id: %w", err)
		}
		streams = append(streams, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stream ids: %w", err)
	}

	return streams, nil
}

// Append writes events after expectedVersion within one transaction.
func (s *EventStore) Append(ctx context.Context, streamID string, expectedVersion int64, events []shared.Event) ([]eventstore.StoredEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	stored, err := eventstore.Marshal(streamID, expectedVersion, events, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO events (stream_id, version, event_name, payload, recorded_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, e := range stored {
			if _, err := tx.ExecContext(ctx, query, e.StreamID, e.Version, e.Name, e.Data, e.RecordedAt); err != nil {
				if isUniqueViolation(err) {
					return shared.ErrVersionConflict
				}
				return fmt.Errorf("append event %s to %s: %w", e.Name, streamID, err)
			}
		}
		return nil
	})
	if err != nil {
		if shared.IsVersionConflict(err) {
			metrics.StreamVersionConflictsTotal.Inc()
		}
		return nil, err
	}

	for _, e := range stored {
		metrics.EventsAppendedTotal.WithLabelValues(e.Name).Inc()
	}
	return stored, nil
}
