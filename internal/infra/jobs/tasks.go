// Package jobs runs background maintenance over Asynq: the automatic
// unassignment sweep for expired hearing-based access and the purge of
// expired access records.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names. Scheduled tasks carry no payload of their own; the
// handlers read current state when they run.
const (
	TypeAutoUnassignSweep = "assignment:auto_unassign_sweep"
	TypePurgeExpired      = "access:purge_expired"
)

// queueMaintenance is the queue all maintenance tasks run on.
const queueMaintenance = "maintenance"

// SweepPayload carries the enqueue time so a handler can log sweep latency.
type SweepPayload struct {
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// NewAutoUnassignSweepTask creates the automatic unassignment sweep task.
func NewAutoUnassignSweepTask() (*asynq.Task, error) {
	payload, err := json.Marshal(SweepPayload{EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal sweep payload: %w", err)
	}
	return asynq.NewTask(TypeAutoUnassignSweep, payload,
		asynq.Queue(queueMaintenance),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	), nil
}

// NewPurgeExpiredTask creates the expired-record purge task.
func NewPurgeExpiredTask() (*asynq.Task, error) {
	payload, err := json.Marshal(SweepPayload{EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal purge payload: %w", err)
	}
	return asynq.NewTask(TypePurgeExpired, payload,
		asynq.Queue(queueMaintenance),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	), nil
}
