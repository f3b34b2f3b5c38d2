package assignment

import (
	"fmt"
	"time"

	"github.com/caseaccessio/api/pkg/domain/permission"
	"github.com/caseaccessio/api/pkg/domain/shared"
)

// Aggregate decides assignment commands against the folded history of its
// stream. Commands return the events they emit; the caller appends them to
// the stream and re-folds before the next command.
type Aggregate struct {
	allowlist permission.Allowlist
	state     State
}

// NewAggregate folds a prior event history into a ready aggregate.
func NewAggregate(allowlist permission.Allowlist, history []shared.Event) *Aggregate {
	return &Aggregate{allowlist: allowlist, state: Fold(history)}
}

// State returns the current folded state, for read-side callers.
func (a *Aggregate) State() State {
	return a.state
}

// emit applies the events to the aggregate's own state and returns them.
func (a *Aggregate) emit(events ...shared.Event) []shared.Event {
	for _, event := range events {
		a.state = a.state.Apply(event)
	}
	return events
}

// AssignCase evaluates an assignment command.
//
// The decision order is fixed: identity, role membership, the
// defending/prosecuting conflict, then idempotency, then routing. The
// conflict check fires before routing and regardless of the
// representing-organisation code; that code only lands in the event payload.
func (a *Aggregate) AssignCase(cmd AssignCaseCommand) ([]shared.Event, error) {
	if cmd.CaseID.IsZero() {
		return nil, fmt.Errorf("%w: caseID is required", shared.ErrValidation)
	}
	if cmd.AssigneeEmail == "" {
		return nil, fmt.Errorf("%w: assignee email is required", shared.ErrValidation)
	}

	if cmd.Assignee == nil {
		return a.emit(UserNotFound{Email: cmd.AssigneeEmail}), nil
	}
	if !a.allowlist.HasAllowedRole(cmd.AssigneeGroups) {
		return a.emit(AssigneeNotInAllowedGroups{Email: cmd.AssigneeEmail}), nil
	}
	if cmd.AssigneeIsDefendingCase && cmd.prosecutingContext() {
		return a.emit(AssigneeForProsecutionIsDefendingCase{Email: cmd.AssigneeEmail}), nil
	}

	if active, ok := a.state.ActiveFor(cmd.CaseID, cmd.Assignee.UserID); ok {
		if sameAssignmentTuple(active, cmd) {
			return a.emit(UserAlreadyAssigned{Email: cmd.AssigneeEmail}), nil
		}
	}

	assignedAt := cmd.Timestamp
	if assignedAt.IsZero() {
		assignedAt = time.Now().UTC()
	}

	// Defence-lawyer membership routes to the organisation event and takes
	// precedence when the assignee holds both roles.
	if a.allowlist.IsDefenceLawyer(cmd.AssigneeGroups) {
		return a.emit(CaseAssignedToOrganisation{
			CaseID:                   cmd.CaseID,
			AssigneeOrganisation:     orgOrZero(cmd.AssigneeOrganisation),
			AssignorOrganisation:     orgOrZero(cmd.AssignorOrganisation),
			AssigneeDetails:          *cmd.Assignee,
			AssignorDetails:          personOrZero(cmd.Assignor),
			RepresentingOrganisation: cmd.RepresentingOrganisationCode,
			AssignedAt:               assignedAt,
		}), nil
	}
	return a.emit(CaseAssignedToAdvocate{
		CaseID:                   cmd.CaseID,
		AssigneeOrganisation:     orgOrZero(cmd.AssigneeOrganisation),
		AssignorOrganisation:     orgOrZero(cmd.AssignorOrganisation),
		AssigneeDetails:          *cmd.Assignee,
		AssignorDetails:          personOrZero(cmd.Assignor),
		RepresentingOrganisation: cmd.RepresentingOrganisationCode,
		AssignedAt:               assignedAt,
	}), nil
}

// RemoveCaseAssignment evaluates a removal command. Organisation-level access
// survives while other advocates from the organisation remain assigned to the
// case; automatic sweeps are silent when there is nothing to remove.
func (a *Aggregate) RemoveCaseAssignment(cmd RemoveCaseAssignmentCommand) ([]shared.Event, error) {
	if cmd.CaseID.IsZero() {
		return nil, fmt.Errorf("%w: caseID is required", shared.ErrValidation)
	}
	if cmd.AssigneeUserID.IsZero() {
		return nil, fmt.Errorf("%w: assignee userID is required", shared.ErrValidation)
	}

	active, ok := a.state.ActiveFor(cmd.CaseID, cmd.AssigneeUserID)
	if !ok {
		if cmd.IsAutomaticUnassignment {
			return nil, nil
		}
		return a.emit(UserNotAssigned{
			AssigneeUserID: cmd.AssigneeUserID,
			ErrorCode:      ErrorCodeUserNotAssigned,
		}), nil
	}

	removedAt := cmd.Timestamp
	if removedAt.IsZero() {
		removedAt = time.Now().UTC()
	}

	if a.allowlist.IsAdvocate(cmd.AssigneeGroups) {
		return a.emit(CaseAssignmentToAdvocateRemoved{
			CaseID:                  cmd.CaseID,
			AssigneeUserID:          cmd.AssigneeUserID,
			AssigneeOrganisationID:  active.assigneeOrgID,
			RemovedByUserID:         cmd.RemovedByUserID,
			RemovedAt:               removedAt,
			IsAutomaticUnassignment: cmd.IsAutomaticUnassignment,
		}), nil
	}
	if a.allowlist.IsDefenceLawyer(cmd.AssigneeGroups) {
		if cmd.HasOtherAdvocatesAssignedToCase {
			return nil, nil
		}
		return a.emit(CaseAssignmentToOrganisationRemoved{
			CaseID:                  cmd.CaseID,
			AssigneeOrganisationID:  active.assigneeOrgID,
			RemovedByUserID:         cmd.RemovedByUserID,
			RemovedAt:               removedAt,
			IsAutomaticUnassignment: cmd.IsAutomaticUnassignment,
		}), nil
	}
	// Upstream validation guarantees one of the two roles on removal.
	return nil, fmt.Errorf("%w: assignee holds neither the advocate nor the defence-lawyer role", shared.ErrValidation)
}

// AssignCaseHearing evaluates a hearing-listing batch. Every element is
// validated before anything is emitted; one bad element fails the batch with
// a single event carrying all per-element errors.
func (a *Aggregate) AssignCaseHearing(cmd AssignCaseHearingCommand) ([]shared.Event, error) {
	if len(cmd.Details) == 0 {
		return nil, fmt.Errorf("%w: at least one hearing assignment detail is required", shared.ErrValidation)
	}
	if cmd.AssigneeEmail == "" {
		return nil, fmt.Errorf("%w: assignee email is required", shared.ErrValidation)
	}

	var batchErrors []HearingAssignmentError
	for _, detail := range cmd.Details {
		switch {
		case cmd.Assignee == nil:
			batchErrors = append(batchErrors, HearingAssignmentError{
				CaseID:        detail.CaseID,
				HearingID:     detail.HearingID,
				ErrorCode:     ErrorCodeUserNotFound,
				FailureReason: fmt.Sprintf("assignee %s could not be resolved", cmd.AssigneeEmail),
			})
		case detail.Failed():
			batchErrors = append(batchErrors, HearingAssignmentError{
				CaseID:        detail.CaseID,
				HearingID:     detail.HearingID,
				ErrorCode:     detail.ErrorCode,
				FailureReason: detail.FailureReason,
			})
		}
	}
	if len(batchErrors) > 0 {
		return a.emit(CaseAssignmentsByHearingListingFailed{
			Email:            cmd.AssigneeEmail,
			AssignmentErrors: batchErrors,
		}), nil
	}

	if !a.allowlist.HasAllowedRole(cmd.AssigneeGroups) {
		return a.emit(AssigneeNotInAllowedGroups{Email: cmd.AssigneeEmail}), nil
	}
	if cmd.AssigneeIsDefendingCase && cmd.prosecutingContext() {
		return a.emit(AssigneeForProsecutionIsDefendingCase{Email: cmd.AssigneeEmail}), nil
	}

	assignedAt := cmd.Timestamp
	if assignedAt.IsZero() {
		assignedAt = time.Now().UTC()
	}
	entries := make([]HearingAssignment, 0, len(cmd.Details))
	for _, detail := range cmd.Details {
		entries = append(entries, HearingAssignment{
			CaseID:     detail.CaseID,
			HearingID:  detail.HearingID,
			AssignedAt: assignedAt,
		})
	}

	if a.allowlist.IsDefenceLawyer(cmd.AssigneeGroups) {
		return a.emit(CasesAssignedToOrganisation{
			AssigneeOrganisation:     orgOrZero(cmd.AssigneeOrganisation),
			AssignorOrganisation:     orgOrZero(cmd.AssignorOrganisation),
			AssigneeDetails:          *cmd.Assignee,
			AssignorDetails:          personOrZero(cmd.Assignor),
			RepresentingOrganisation: cmd.RepresentingOrganisationCode,
			Assignments:              entries,
		}), nil
	}
	return a.emit(CasesAssignedToAdvocate{
		AssigneeOrganisation:     orgOrZero(cmd.AssigneeOrganisation),
		AssignorOrganisation:     orgOrZero(cmd.AssignorOrganisation),
		AssigneeDetails:          *cmd.Assignee,
		AssignorDetails:          personOrZero(cmd.Assignor),
		RepresentingOrganisation: cmd.RepresentingOrganisationCode,
		Assignments:              entries,
	}), nil
}

// sameAssignmentTuple reports whether the active assignment matches the
// command's exact (assigneeOrg, assignorOrg, assignee, assignor) tuple.
// Only an exact repeat is the idempotent no-op; a changed assignor or
// organisation re-emits the assignment.
func sameAssignmentTuple(active activeAssignment, cmd AssignCaseCommand) bool {
	return active.assignee.UserID.Equals(cmd.Assignee.UserID) &&
		active.assigneeOrgID.Equals(orgOrZero(cmd.AssigneeOrganisation).ID) &&
		active.assignorOrgID.Equals(orgOrZero(cmd.AssignorOrganisation).ID) &&
		active.assignor.UserID.Equals(personOrZero(cmd.Assignor).UserID)
}

func orgOrZero(org *shared.Organisation) shared.Organisation {
	if org == nil {
		return shared.Organisation{}
	}
	return *org
}

func personOrZero(p *shared.PersonDetails) shared.PersonDetails {
	if p == nil {
		return shared.PersonDetails{}
	}
	return *p
}
