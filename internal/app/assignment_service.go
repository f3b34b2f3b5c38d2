package app

import (
	"context"
	"fmt"
	"time"

	"github.com/caseaccessio/api/internal/metrics"
	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/domain/assignment"
	"github.com/caseaccessio/api/pkg/domain/permission"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/eventstore"
	"github.com/caseaccessio/api/pkg/locking"
	"github.com/caseaccessio/api/pkg/logger"
)

// AssignCaseRequest carries the caller-supplied inputs of a single-case
// assignment. The service resolves the assignee against the directory and
// checks the stream for defending-counsel history before the aggregate
// decides.
type AssignCaseRequest struct {
	CaseID                       shared.ID
	AssigneeEmail                string
	AssigneeIsDefendingCase      bool
	AssignorUserID               shared.ID
	IsPolice                     bool
	IsCPS                        bool
	RepresentingOrganisationCode string
}

// RemoveCaseAssignmentRequest carries the inputs of an assignment removal.
// HearingID, when set, targets the hearing-listing stream the assignment was
// recorded on instead of the per-case stream; the expiry sweep uses it.
type RemoveCaseAssignmentRequest struct {
	CaseID                  shared.ID
	AssigneeUserID          shared.ID
	RemovedByUserID         shared.ID
	HearingID               *shared.ID
	IsAutomaticUnassignment bool
}

// HearingDetail is one case/hearing element of a hearing-listing request.
type HearingDetail struct {
	CaseID        shared.ID
	HearingID     shared.ID
	ErrorCode     string
	FailureReason string
}

// AssignHearingRequest carries the inputs of a hearing-listing batch. All
// details belong to one hearing listing.
type AssignHearingRequest struct {
	HearingID                    shared.ID
	AssigneeEmail                string
	AssigneeIsDefendingCase      bool
	AssignorUserID               shared.ID
	IsPolice                     bool
	IsCPS                        bool
	RepresentingOrganisationCode string
	Details                      []HearingDetail
}

// AssignmentService handles case-assignment commands end to end: directory
// resolution, stream load, aggregate decision, append, projection and
// publication.
type AssignmentService struct {
	store         eventstore.Store
	locks         *locking.Keyed
	allowlist     permission.Allowlist
	directory     Directory
	projector     *access.Service
	publisher     EventPublisher
	hearingExpiry access.ExpiryPolicy
	log           *logger.Logger
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	store eventstore.Store,
	allowlist permission.Allowlist,
	directory Directory,
	projector *access.Service,
	publisher EventPublisher,
	hearingExpiry access.ExpiryPolicy,
	log *logger.Logger,
) *AssignmentService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &AssignmentService{
		store:         store,
		locks:         locking.NewKeyed(),
		allowlist:     allowlist,
		directory:     directory,
		projector:     projector,
		publisher:     publisher,
		hearingExpiry: hearingExpiry,
		log:           log,
	}
}

// AssignCase assigns a case to an advocate or, through a defence lawyer, to
// their organisation. Business rejections come back as events.
func (s *AssignmentService) AssignCase(ctx context.Context, req AssignCaseRequest) ([]shared.Event, error) {
	timer := time.Now()
	defer func() {
		metrics.CommandDuration.WithLabelValues("assignment", "assign_case").Observe(time.Since(timer).Seconds())
	}()

	assignee, err := s.directory.FindByEmail(ctx, req.AssigneeEmail)
	if err != nil {
		return nil, fmt.Errorf("resolve assignee %s: %w", req.AssigneeEmail, err)
	}
	assignor, err := s.directory.FindByID(ctx, req.AssignorUserID)
	if err != nil {
		return nil, fmt.Errorf("resolve assignor %s: %w", req.AssignorUserID, err)
	}

	cmd := assignment.AssignCaseCommand{
		CaseID:                       req.CaseID,
		AssigneeEmail:                req.AssigneeEmail,
		AssigneeIsDefendingCase:      req.AssigneeIsDefendingCase,
		AssignorUserID:               req.AssignorUserID,
		IsPolice:                     req.IsPolice,
		IsCPS:                        req.IsCPS,
		RepresentingOrganisationCode: req.RepresentingOrganisationCode,
		Timestamp:                    time.Now().UTC(),
	}
	if assignee != nil {
		details := assignee.Details
		cmd.Assignee = &details
		cmd.AssigneeGroups = assignee.Groups
		cmd.AssigneeOrganisation = assignee.Organisation
	}
	if assignor != nil {
		details := assignor.Details
		cmd.Assignor = &details
		cmd.AssignorOrganisation = assignor.Organisation
	}

	return s.decide(ctx, assignmentStream(req.CaseID), "assign_case", func(agg *assignment.Aggregate) ([]shared.Event, error) {
		return agg.AssignCase(cmd)
	})
}

// RemoveCaseAssignment removes an assignment. Automatic sweeps are silent
// when there is nothing to remove.
func (s *AssignmentService) RemoveCaseAssignment(ctx context.Context, req RemoveCaseAssignmentRequest) ([]shared.Event, error) {
	timer := time.Now()
	defer func() {
		metrics.CommandDuration.WithLabelValues("assignment", "remove_assignment").Observe(time.Since(timer).Seconds())
	}()

	assignee, err := s.directory.FindByID(ctx, req.AssigneeUserID)
	if err != nil {
		return nil, fmt.Errorf("resolve assignee %s: %w", req.AssigneeUserID, err)
	}

	cmd := assignment.RemoveCaseAssignmentCommand{
		CaseID:                  req.CaseID,
		AssigneeUserID:          req.AssigneeUserID,
		RemovedByUserID:         req.RemovedByUserID,
		IsAutomaticUnassignment: req.IsAutomaticUnassignment,
		Timestamp:               time.Now().UTC(),
	}
	if assignee != nil {
		cmd.AssigneeGroups = assignee.Groups
	}

	stream := assignmentStream(req.CaseID)
	if req.HearingID != nil && !req.HearingID.IsZero() {
		stream = hearingStream(*req.HearingID)
	}

	return s.decide(ctx, stream, "remove_assignment", func(agg *assignment.Aggregate) ([]shared.Event, error) {
		cmd.HasOtherAdvocatesAssignedToCase = s.hasOtherAdvocates(ctx, req, assignee)
		return agg.RemoveCaseAssignment(cmd)
	})
}

// AssignHearing assigns an assignee across the cases of a hearing listing in
// one all-or-nothing batch.
func (s *AssignmentService) AssignHearing(ctx context.Context, req AssignHearingRequest) ([]shared.Event, error) {
	timer := time.Now()
	defer func() {
		metrics.CommandDuration.WithLabelValues("assignment", "assign_hearing").Observe(time.Since(timer).Seconds())
	}()

	if req.HearingID.IsZero() {
		return nil, fmt.Errorf("%w: hearing id is required", shared.ErrValidation)
	}

	assignee, err := s.directory.FindByEmail(ctx, req.AssigneeEmail)
	if err != nil {
		return nil, fmt.Errorf("resolve assignee %s: %w", req.AssigneeEmail, err)
	}
	assignor, err := s.directory.FindByID(ctx, req.AssignorUserID)
	if err != nil {
		return nil, fmt.Errorf("resolve assignor %s: %w", req.AssignorUserID, err)
	}

	details := make([]assignment.HearingAssignmentDetail, 0, len(req.Details))
	for _, d := range req.Details {
		details = append(details, assignment.HearingAssignmentDetail{
			CaseID:        d.CaseID,
			HearingID:     d.HearingID,
			ErrorCode:     d.ErrorCode,
			FailureReason: d.FailureReason,
		})
	}

	cmd := assignment.AssignCaseHearingCommand{
		AssigneeEmail:                req.AssigneeEmail,
		AssigneeIsDefendingCase:      req.AssigneeIsDefendingCase,
		IsPolice:                     req.IsPolice,
		IsCPS:                        req.IsCPS,
		RepresentingOrganisationCode: req.RepresentingOrganisationCode,
		Details:                      details,
		Timestamp:                    time.Now().UTC(),
	}
	if assignee != nil {
		d := assignee.Details
		cmd.Assignee = &d
		cmd.AssigneeGroups = assignee.Groups
		cmd.AssigneeOrganisation = assignee.Organisation
	}
	if assignor != nil {
		d := assignor.Details
		cmd.Assignor = &d
		cmd.AssignorOrganisation = assignor.Organisation
	}

	return s.decide(ctx, hearingStream(req.HearingID), "assign_hearing", func(agg *assignment.Aggregate) ([]shared.Event, error) {
		return agg.AssignCaseHearing(cmd)
	})
}

// ReplayStream re-projects every event of an assignment stream into the
// access read model. The projection is idempotent, so replaying over live
// records is safe; tooling calls this to repair drift.
func (s *AssignmentService) ReplayStream(ctx context.Context, streamID string) error {
	unlock := s.locks.Lock(streamID)
	defer unlock()

	stored, err := s.store.Load(ctx, streamID)
	if err != nil {
		return fmt.Errorf("load stream %s: %w", streamID, err)
	}
	history, err := decodeStream(stored, assignment.UnmarshalEvent)
	if err != nil {
		return fmt.Errorf("decode stream %s: %w", streamID, err)
	}
	return s.project(ctx, history)
}

// decide runs one command against a stream under the stream's lock.
func (s *AssignmentService) decide(ctx context.Context, streamID, command string, fn func(*assignment.Aggregate) ([]shared.Event, error)) ([]shared.Event, error) {
	unlock := s.locks.Lock(streamID)
	defer unlock()

	loadStart := time.Now()
	stored, err := s.store.Load(ctx, streamID)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("assignment", command, "error").Inc()
		return nil, fmt.Errorf("load stream %s: %w", streamID, err)
	}
	metrics.StreamLoadDuration.WithLabelValues("assignment").Observe(time.Since(loadStart).Seconds())

	history, err := decodeStream(stored, assignment.UnmarshalEvent)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("assignment", command, "error").Inc()
		return nil, fmt.Errorf("decode stream %s: %w", streamID, err)
	}

	agg := assignment.NewAggregate(s.allowlist, history)
	events, err := fn(agg)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("assignment", command, "error").Inc()
		return nil, err
	}
	if len(events) == 0 {
		metrics.CommandsTotal.WithLabelValues("assignment", command, "accepted").Inc()
		return nil, nil
	}

	recorded, err := s.store.Append(ctx, streamID, int64(len(stored)), events)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("assignment", command, "error").Inc()
		return nil, fmt.Errorf("append to stream %s: %w", streamID, err)
	}

	if err := s.project(ctx, events); err != nil {
		// The stream is the source of truth; a projection failure is logged
		// and repaired by rebuild, not rolled back.
		s.log.WithError(err).Error("access projection update failed", "stream", streamID)
	}

	s.publisher.Publish(streamID, recorded)
	metrics.CommandsTotal.WithLabelValues("assignment", command, outcomeOf(events)).Inc()
	return events, nil
}

// hasOtherAdvocates reports whether advocates from the assignee's
// organisation other than the assignee remain on the case's access record.
func (s *AssignmentService) hasOtherAdvocates(ctx context.Context, req RemoveCaseAssignmentRequest, assignee *DirectoryUser) bool {
	if assignee == nil || assignee.Organisation == nil {
		return false
	}
	record, err := s.projector.Get(ctx, access.OrganisationKey(req.CaseID, assignee.Organisation.ID))
	if err != nil || record == nil {
		return false
	}
	for _, adv := range record.Advocates {
		if !adv.Details.UserID.Equals(req.AssigneeUserID) {
			return true
		}
	}
	return false
}

// project folds freshly appended events into the access read model.
func (s *AssignmentService) project(ctx context.Context, events []shared.Event) error {
	for _, event := range events {
		switch e := event.(type) {
		case assignment.CaseAssignedToOrganisation:
			if err := s.upsert(ctx, access.OrganisationKey(e.CaseID, e.AssigneeOrganisation.ID), e.AssigneeDetails, e.AssigneeOrganisation, e.AssignorDetails, e.AssignorOrganisation.ID, e.RepresentingOrganisation, e.AssignedAt, access.NoExpiry, nil, nil); err != nil {
				return err
			}
		case assignment.CaseAssignedToAdvocate:
			advocate := e.AssigneeDetails
			if err := s.upsert(ctx, access.AdvocateKey(e.CaseID, e.AssigneeDetails.UserID), e.AssigneeDetails, e.AssigneeOrganisation, e.AssignorDetails, e.AssignorOrganisation.ID, e.RepresentingOrganisation, e.AssignedAt, access.NoExpiry, nil, nil); err != nil {
				return err
			}
			// The advocate also appears as a sub-record of their
			// organisation's access, so organisation-level removal can see
			// who is left.
			if !e.AssigneeOrganisation.ID.IsZero() {
				if err := s.upsert(ctx, access.OrganisationKey(e.CaseID, e.AssigneeOrganisation.ID), e.AssigneeDetails, e.AssigneeOrganisation, e.AssignorDetails, e.AssignorOrganisation.ID, e.RepresentingOrganisation, e.AssignedAt, access.NoExpiry, nil, &advocate); err != nil {
					return err
				}
			}
		case assignment.CasesAssignedToOrganisation:
			for _, entry := range e.Assignments {
				hearingID := entry.HearingID
				if err := s.upsert(ctx, access.OrganisationKey(entry.CaseID, e.AssigneeOrganisation.ID), e.AssigneeDetails, e.AssigneeOrganisation, e.AssignorDetails, e.AssignorOrganisation.ID, e.RepresentingOrganisation, entry.AssignedAt, s.hearingExpiry, &hearingID, nil); err != nil {
					return err
				}
			}
		case assignment.CasesAssignedToAdvocate:
			advocate := e.AssigneeDetails
			for _, entry := range e.Assignments {
				hearingID := entry.HearingID
				if err := s.upsert(ctx, access.AdvocateKey(entry.CaseID, e.AssigneeDetails.UserID), e.AssigneeDetails, e.AssigneeOrganisation, e.AssignorDetails, e.AssignorOrganisation.ID, e.RepresentingOrganisation, entry.AssignedAt, s.hearingExpiry, &hearingID, nil); err != nil {
					return err
				}
				if !e.AssigneeOrganisation.ID.IsZero() {
					if err := s.upsert(ctx, access.OrganisationKey(entry.CaseID, e.AssigneeOrganisation.ID), e.AssigneeDetails, e.AssigneeOrganisation, e.AssignorDetails, e.AssignorOrganisation.ID, e.RepresentingOrganisation, entry.AssignedAt, s.hearingExpiry, &hearingID, &advocate); err != nil {
						return err
					}
				}
			}
		case assignment.CaseAssignmentToAdvocateRemoved:
			if err := s.projector.Remove(ctx, access.AdvocateKey(e.CaseID, e.AssigneeUserID)); err != nil {
				return err
			}
			if !e.AssigneeOrganisationID.IsZero() {
				if err := s.projector.RemoveAdvocate(ctx, e.CaseID, e.AssigneeOrganisationID, e.AssigneeUserID); err != nil {
					return err
				}
			}
		case assignment.CaseAssignmentToOrganisationRemoved:
			if err := s.projector.Remove(ctx, access.OrganisationKey(e.CaseID, e.AssigneeOrganisationID)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *AssignmentService) upsert(
	ctx context.Context,
	key access.Key,
	assignee shared.PersonDetails,
	assigneeOrg shared.Organisation,
	assignor shared.PersonDetails,
	assignorOrgID shared.ID,
	representing string,
	assignedAt time.Time,
	expiry access.ExpiryPolicy,
	hearingID *shared.ID,
	advocate *shared.PersonDetails,
) error {
	_, err := s.projector.UpdateOrSave(ctx, access.UpsertInput{
		Key:                      key,
		AssigneeDetails:          assignee,
		AssigneeOrganisation:     assigneeOrg,
		AssignorDetails:          assignor,
		AssignorOrganisationID:   assignorOrgID,
		RepresentingOrganisation: representing,
		AssignmentTimestamp:      assignedAt,
		Expiry:                   expiry,
		HearingID:                hearingID,
		Advocate:                 advocate,
	})
	if err != nil {
		return err
	}
	metrics.AccessRecordsUpserted.WithLabelValues(string(key.Kind)).Inc()
	return nil
}
