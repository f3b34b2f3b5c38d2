package grant

import (
	"github.com/caseaccessio/api/pkg/domain/permission"
	"github.com/caseaccessio/api/pkg/domain/shared"
)

// State is the folded state of the grant aggregate for one defence client:
// the active permission bundle per grantee. The map is rebuilt on every fold
// step rather than mutated, so no state leaks across commands or tests.
type State struct {
	grants map[shared.ID][]permission.Permission
}

// NewState returns the empty state.
func NewState() State {
	return State{grants: map[shared.ID][]permission.Permission{}}
}

// Apply folds one event into the state and returns the resulting state.
func (s State) Apply(event shared.Event) State {
	switch e := event.(type) {
	case AccessGranted:
		next := s.clone()
		next.grants[e.GranteeDetails.UserID] = append([]permission.Permission(nil), e.Permissions...)
		return next
	case AccessGrantRemoved:
		next := s.clone()
		delete(next.grants, e.GranteeUserID)
		return next
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

// PermissionsFor returns the active permission bundle of a grantee, if any.
func (s State) PermissionsFor(granteeUserID shared.ID) ([]permission.Permission, bool) {
	perms, ok := s.grants[granteeUserID]
	return perms, ok
}

// Grantees returns the user IDs of every currently tracked grantee.
// Order is unspecified.
func (s State) Grantees() []shared.ID {
	ids := make([]shared.ID, 0, len(s.grants))
	for id := range s.grants {
		ids = append(ids, id)
	}
	return ids
}

func (s State) clone() State {
	next := State{grants: make(map[shared.ID][]permission.Permission, len(s.grants))}
	for id, perms := range s.grants {
		next.grants[id] = perms
	}
	return next
}
