package association

import (
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// Association is the folded view of a defendant's representation by a defence
// organisation. EndDate is nil while the association is active.
type Association struct {
	DefendantID        shared.ID  `json:"defendantId"`
	OrganisationID     shared.ID  `json:"organisationId"`
	OrganisationName   string     `json:"organisationName"`
	RepresentationType string     `json:"representationType"`
	LAAContractNumber  string     `json:"laaContractNumber"`
	StartDate          time.Time  `json:"startDate"`
	EndDate            *time.Time `json:"endDate,omitempty"`
	LockedByRepOrder   bool       `json:"lockedByRepOrder"`
}

// Active reports whether the association is current.
func (a Association) Active() bool {
	return a.EndDate == nil
}

// State is the folded state of the association aggregate for one defendant:
// the active association (if any), the last historical one for read purposes,
// and the representation-order lock. The lock, once set, survives every later
// association event; only a dedicated unlock outside this aggregate clears it.
type State struct {
	active    *Association
	lastKnown *Association
	locked    bool
}

// NewState returns the empty state.
func NewState() State {
	return State{}
}

// Apply folds one event into the state and returns the resulting state.
func (s State) Apply(event shared.Event) State {
	switch e := event.(type) {
	case DefenceOrganisationAssociated:
		assoc := Association{
			DefendantID:        e.DefendantID,
			OrganisationID:     e.OrganisationID,
			OrganisationName:   e.OrganisationName,
			RepresentationType: e.RepresentationType,
			LAAContractNumber:  e.LAAContractNumber,
			StartDate:          e.StartDate,
			LockedByRepOrder:   s.locked,
		}
		return State{active: &assoc, lastKnown: s.lastKnown, locked: s.locked}
	case DefenceOrganisationDisassociated:
		if s.active == nil {
			return s
		}
		ended := *s.active
		end := e.EndDate
		ended.EndDate = &end
		return State{active: nil, lastKnown: &ended, locked: s.locked}
	case DefenceOrganisationLAAReferenceReceived:
		if s.active == nil || !s.active.OrganisationID.Equals(e.OrganisationID) {
			return s
		}
		updated := *s.active
		updated.LAAContractNumber = e.LAAContractNumber
		return State{active: &updated, lastKnown: s.lastKnown, locked: s.locked}
	case DefendantDefenceAssociationLocked:
		next := State{active: s.active, lastKnown: s.lastKnown, locked: true}
		if s.active != nil {
			lockedAssoc := *s.active
			lockedAssoc.LockedByRepOrder = true
			next.active = &lockedAssoc
		}
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

// Active returns the current association, if any.
func (s State) Active() (Association, bool) {
	if s.active == nil {
		return Association{}, false
	}
	return *s.active, true
}

// LastKnown returns the most recent ended association, if any.
func (s State) LastKnown() (Association, bool) {
	if s.lastKnown == nil {
		return Association{}, false
	}
	return *s.lastKnown, true
}

// Locked reports whether a representation order has locked the association.
func (s State) Locked() bool {
	return s.locked
}
