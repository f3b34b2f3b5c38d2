package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/caseaccessio/api/internal/app"
	"github.com/caseaccessio/api/internal/metrics"
	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/logger"
)

// MaintenanceHandler processes the maintenance tasks.
type MaintenanceHandler struct {
	assignments *app.AssignmentService
	projector   *access.Service
	log         *logger.Logger
}

// NewMaintenanceHandler creates a new MaintenanceHandler.
func NewMaintenanceHandler(assignments *app.AssignmentService, projector *access.Service, log *logger.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		assignments: assignments,
		projector:   projector,
		log:         log.With("component", "maintenance"),
	}
}

// HandleAutoUnassignSweep removes the assignments behind every expired
// hearing-based access record. Each removal goes through the aggregate so the
// stream records it; records whose removal fails stay for the next sweep.
func (h *MaintenanceHandler) HandleAutoUnassignSweep(ctx context.Context, _ *asynq.Task) error {
	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues(TypeAutoUnassignSweep).Observe(time.Since(start).Seconds())
	}()

	expired, err := h.projector.Expired(ctx)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(TypeAutoUnassignSweep, "error").Inc()
		return err
	}
	if len(expired) == 0 {
		metrics.JobRunsTotal.WithLabelValues(TypeAutoUnassignSweep, "ok").Inc()
		return nil
	}

	var failed int
	for _, record := range expired {
		// Hearing-based records carry the listing stream the assignment was
		// recorded on; the removal must fold that stream to find it.
		_, err := h.assignments.RemoveCaseAssignment(ctx, app.RemoveCaseAssignmentRequest{
			CaseID:                  record.Key.CaseID,
			AssigneeUserID:          record.AssigneeDetails.UserID,
			RemovedByUserID:         record.AssigneeDetails.UserID,
			HearingID:               record.HearingID,
			IsAutomaticUnassignment: true,
		})
		if err != nil {
			failed++
			h.log.WithError(err).Error("automatic unassignment failed",
				"case_id", record.Key.CaseID.String(),
				"subject_id", record.Key.SubjectID.String(),
				"kind", string(record.Key.Kind))
		}
	}

	h.log.Info("automatic unassignment sweep finished",
		"expired", len(expired),
		"failed", failed,
		"duration", time.Since(start).String())
	if failed > 0 {
		metrics.JobRunsTotal.WithLabelValues(TypeAutoUnassignSweep, "partial").Inc()
		return nil
	}
	metrics.JobRunsTotal.WithLabelValues(TypeAutoUnassignSweep, "ok").Inc()
	return nil
}

// HandlePurgeExpired deletes expired access records that the sweep left
// behind, typically records whose streams already carry the removal.
func (h *MaintenanceHandler) HandlePurgeExpired(ctx context.Context, _ *asynq.Task) error {
	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues(TypePurgeExpired).Observe(time.Since(start).Seconds())
	}()

	count, err := h.projector.PurgeExpired(ctx)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(TypePurgeExpired, "error").Inc()
		return err
	}
	metrics.AccessRecordsPurged.Add(float64(count))
	metrics.JobRunsTotal.WithLabelValues(TypePurgeExpired, "ok").Inc()
	return nil
}
