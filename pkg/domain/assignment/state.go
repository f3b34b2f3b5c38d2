package assignment

import "github.com/caseaccessio/api/pkg/domain/shared"

// activeAssignment is the folded record of a currently active assignment for
// one (case, assignee) target.
type activeAssignment struct {
	caseID        shared.ID
	assignee      shared.PersonDetails
	assigneeOrgID shared.ID
	assignor      shared.PersonDetails
	assignorOrgID shared.ID
}

type assignmentKey struct {
	caseID         shared.ID
	assigneeUserID shared.ID
}

// State is the folded state of the assignment aggregate: the set of currently
// active assignments keyed by (case, assignee). It is rebuilt from events and
// never mutated in place; Apply returns a fresh map on every step.
type State struct {
	active map[assignmentKey]activeAssignment
}

// NewState returns the empty state.
func NewState() State {
	return State{active: map[assignmentKey]activeAssignment{}}
}

// Apply folds one event into the state and returns the resulting state.
// Failure and idempotency events leave the state unchanged.
func (s State) Apply(event shared.Event) State {
	switch e := event.(type) {
	case CaseAssignedToOrganisation:
		return s.withActive(activeAssignment{
			caseID:        e.CaseID,
			assignee:      e.AssigneeDetails,
			assigneeOrgID: e.AssigneeOrganisation.ID,
			assignor:      e.AssignorDetails,
			assignorOrgID: e.AssignorOrganisation.ID,
		})
	case CaseAssignedToAdvocate:
		return s.withActive(activeAssignment{
			caseID:        e.CaseID,
			assignee:      e.AssigneeDetails,
			assigneeOrgID: e.AssigneeOrganisation.ID,
			assignor:      e.AssignorDetails,
			assignorOrgID: e.AssignorOrganisation.ID,
		})
	case CasesAssignedToOrganisation:
		next := s
		for _, entry := range e.Assignments {
			next = next.withActive(activeAssignment{
				caseID:        entry.CaseID,
				assignee:      e.AssigneeDetails,
				assigneeOrgID: e.AssigneeOrganisation.ID,
				assignor:      e.AssignorDetails,
				assignorOrgID: e.AssignorOrganisation.ID,
			})
		}
		return next
	case CasesAssignedToAdvocate:
		next := s
		for _, entry := range e.Assignments {
			next = next.withActive(activeAssignment{
				caseID:        entry.CaseID,
				assignee:      e.AssigneeDetails,
				assigneeOrgID: e.AssigneeOrganisation.ID,
				assignor:      e.AssignorDetails,
				assignorOrgID: e.AssignorOrganisation.ID,
			})
		}
		return next
	case CaseAssignmentToAdvocateRemoved:
		return s.without(assignmentKey{caseID: e.CaseID, assigneeUserID: e.AssigneeUserID})
	case CaseAssignmentToOrganisationRemoved:
		return s.withoutOrganisation(e.CaseID, e.AssigneeOrganisationID)
	default:
		return s
	}
}

// Fold replays a full event history into state.
func Fold(events []shared.Event) State {
	state := NewState()
	for _, event := range events {
		state = state.Apply(event)
	}
	return state
}

// ActiveFor returns the active assignment for (case, assignee), if any.
func (s State) ActiveFor(caseID, assigneeUserID shared.ID) (activeAssignment, bool) {
	a, ok := s.active[assignmentKey{caseID: caseID, assigneeUserID: assigneeUserID}]
	return a, ok
}

func (s State) withActive(a activeAssignment) State {
	next := make(map[assignmentKey]activeAssignment, len(s.active)+1)
	for k, v := range s.active {
		next[k] = v
	}
	next[assignmentKey{caseID: a.caseID, assigneeUserID: a.assignee.UserID}] = a
	return State{active: next}
}

func (s State) without(key assignmentKey) State {
	next := make(map[assignmentKey]activeAssignment, len(s.active))
	for k, v := range s.active {
		if k != key {
			next[k] = v
		}
	}
	return State{active: next}
}

// withoutOrganisation clears every active assignment of an organisation on a
// case. An organisation removal only fires once its last advocate is gone,
// but replayed legacy streams may still carry several entries.
func (s State) withoutOrganisation(caseID, organisationID shared.ID) State {
	next := make(map[assignmentKey]activeAssignment, len(s.active))
	for k, v := range s.active {
		if k.caseID.Equals(caseID) && v.assigneeOrgID.Equals(organisationID) {
			continue
		}
		next[k] = v
	}
	return State{active: next}
}
