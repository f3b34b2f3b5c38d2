package eventstore

import (
	"context"
	"errors"
	"testing"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

type testEvent struct {
	Value string `json:"value"`
}

func (testEvent) EventName() string { return "TestEvent" }

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing stream is empty", func(t *testing.T) {
		store := NewMemoryStore()
		events, err := store.Load(ctx, "assignment:case-1")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(events) != 0 {
			t.Errorf("got %d events, want 0", len(events))
		}
	})

	t.Run("append assigns sequential versions", func(t *testing.T) {
		store := NewMemoryStore()
		stored, err := store.Append(ctx, "assignment:case-1", 0, []shared.Event{
			testEvent{Value: "a"}, testEvent{Value: "b"},
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if stored[0].Version != 1 || stored[1].Version != 2 {
			t.Errorf("versions = %d, %d", stored[0].Version, stored[1].Version)
		}

		stored, err = store.Append(ctx, "assignment:case-1", 2, []shared.Event{testEvent{Value: "c"}})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if stored[0].Version != 3 {
			t.Errorf("version = %d, want 3", stored[0].Version)
		}
	})

	t.Run("stale expected version conflicts", func(t *testing.T) {
		store := NewMemoryStore()
		if _, err := store.Append(ctx, "s", 0, []shared.Event{testEvent{}}); err != nil {
			t.Fatal(err)
		}
		_, err := store.Append(ctx, "s", 0, []shared.Event{testEvent{}})
		if !errors.Is(err, shared.ErrVersionConflict) {
			t.Errorf("error = %v, want ErrVersionConflict", err)
		}
	})

	t.Run("streams are independent", func(t *testing.T) {
		store := NewMemoryStore()
		if _, err := store.Append(ctx, "a", 0, []shared.Event{testEvent{}}); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Append(ctx, "b", 0, []shared.Event{testEvent{}}); err != nil {
			t.Errorf("Append() error = %v", err)
		}
	})
}
