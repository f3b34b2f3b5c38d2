package association

import (
	"fmt"
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// AssociateOrganisationCommand requests that an organisation start
// representing a defendant.
type AssociateOrganisationCommand struct {
	DefendantID        shared.ID
	OrganisationID     shared.ID
	OrganisationName   string
	RepresentationType string
	LAAContractNumber  string
	UserID             shared.ID
	Timestamp          time.Time
}

// DisassociateOrganisationCommand requests that an organisation stop
// representing a defendant.
type DisassociateOrganisationCommand struct {
	DefendantID    shared.ID
	OrganisationID shared.ID
	UserID         shared.ID
	Timestamp      time.Time
}

// Aggregate decides association commands against the folded history of one
// defendant's stream.
type Aggregate struct {
	state State
}

// NewAggregate folds a prior event history into a ready aggregate.
func NewAggregate(history []shared.Event) *Aggregate {
	return &Aggregate{state: Fold(history)}
}

// State returns the current folded state, for read-side callers.
func (a *Aggregate) State() State {
	return a.state
}

func (a *Aggregate) emit(events ...shared.Event) []shared.Event {
	for _, event := range events {
		a.state = a.state.Apply(event)
	}
	return events
}

// AssociateOrganisation associates an organisation with the defendant.
// Re-associating the active organisation is rejected; a different active
// organisation is implicitly disassociated first, in that order, unless a
// representation order has locked the association.
func (a *Aggregate) AssociateOrganisation(cmd AssociateOrganisationCommand) ([]shared.Event, error) {
	if err := validateAssociate(cmd); err != nil {
		return nil, err
	}
	return a.associate(cmd, false), nil
}

// AssociateOrganisationForRepOrder is the statutory representation-order
// channel. The decision tree matches AssociateOrganisation except that a
// changed LAA reference for the already-active organisation produces a
// reference-received event instead of a rejection.
func (a *Aggregate) AssociateOrganisationForRepOrder(cmd AssociateOrganisationCommand) ([]shared.Event, error) {
	if err := validateAssociate(cmd); err != nil {
		return nil, err
	}
	return a.associate(cmd, true), nil
}

func (a *Aggregate) associate(cmd AssociateOrganisationCommand, repOrder bool) []shared.Event {
	now := timestampOrNow(cmd.Timestamp)

	active, ok := a.state.Active()
	if ok && active.OrganisationID.Equals(cmd.OrganisationID) {
		if repOrder && active.LAAContractNumber != cmd.LAAContractNumber {
			return a.emit(DefenceOrganisationLAAReferenceReceived{
				DefendantID:       cmd.DefendantID,
				OrganisationID:    cmd.OrganisationID,
				LAAContractNumber: cmd.LAAContractNumber,
				UserID:            cmd.UserID,
			})
		}
		return a.emit(DefenceAssociationFailed{
			DefendantID:    cmd.DefendantID,
			OrganisationID: cmd.OrganisationID,
			Reason:         ReasonAlreadyAssociated,
		})
	}

	// A representation order locks the active association; a different
	// organisation cannot take over while the lock holds.
	if ok && a.state.Locked() {
		return a.emit(DefenceAssociationFailed{
			DefendantID:    cmd.DefendantID,
			OrganisationID: cmd.OrganisationID,
			Reason:         ReasonAssociationLocked,
		})
	}

	associated := DefenceOrganisationAssociated{
		DefendantID:        cmd.DefendantID,
		OrganisationID:     cmd.OrganisationID,
		OrganisationName:   cmd.OrganisationName,
		RepresentationType: cmd.RepresentationType,
		LAAContractNumber:  cmd.LAAContractNumber,
		StartDate:          now,
		UserID:             cmd.UserID,
	}
	if ok {
		return a.emit(
			DefenceOrganisationDisassociated{
				DefendantID:    cmd.DefendantID,
				OrganisationID: active.OrganisationID,
				EndDate:        now,
				UserID:         cmd.UserID,
			},
			associated,
		)
	}
	return a.emit(associated)
}

// DisassociateOrganisation ends the defendant's active association, provided
// the named organisation is the active one. Anything else, including a
// repeated disassociation, is a failure event.
func (a *Aggregate) DisassociateOrganisation(cmd DisassociateOrganisationCommand) ([]shared.Event, error) {
	if cmd.DefendantID.IsZero() {
		return nil, fmt.Errorf("%w: defendantID is required", shared.ErrValidation)
	}
	if cmd.OrganisationID.IsZero() {
		return nil, fmt.Errorf("%w: organisationID is required", shared.ErrValidation)
	}

	active, ok := a.state.Active()
	if !ok || !active.OrganisationID.Equals(cmd.OrganisationID) {
		return a.emit(DefenceDisassociationFailed{
			DefendantID:    cmd.DefendantID,
			OrganisationID: cmd.OrganisationID,
			Reason:         ReasonNotAssociated,
		}), nil
	}
	return a.emit(DefenceOrganisationDisassociated{
		DefendantID:    cmd.DefendantID,
		OrganisationID: cmd.OrganisationID,
		EndDate:        timestampOrNow(cmd.Timestamp),
		UserID:         cmd.UserID,
	}), nil
}

// HandleOrphanedDefendantAssociation repairs an association that arrived
// before the defendant's case record existed locally. An active association
// is replaced with the usual disassociate-then-associate pair; otherwise a
// single association is emitted.
func (a *Aggregate) HandleOrphanedDefendantAssociation(cmd AssociateOrganisationCommand) ([]shared.Event, error) {
	if err := validateAssociate(cmd); err != nil {
		return nil, err
	}
	now := timestampOrNow(cmd.Timestamp)

	associated := DefenceOrganisationAssociated{
		DefendantID:       cmd.DefendantID,
		OrganisationID:    cmd.OrganisationID,
		OrganisationName:  cmd.OrganisationName,
		LAAContractNumber: cmd.LAAContractNumber,
		StartDate:         now,
		UserID:            cmd.UserID,
	}
	if active, ok := a.state.Active(); ok {
		return a.emit(
			DefenceOrganisationDisassociated{
				DefendantID:    cmd.DefendantID,
				OrganisationID: active.OrganisationID,
				EndDate:        now,
				UserID:         cmd.UserID,
			},
			associated,
		), nil
	}
	return a.emit(associated), nil
}

// HandleDefendantDefenceAssociationLocked records a representation order for
// the defendant. Each call is independent and emits exactly one event; the
// folded lock flag then blocks takeover by a different organisation.
func (a *Aggregate) HandleDefendantDefenceAssociationLocked(defendantID shared.ID, laaContractNumber string) ([]shared.Event, error) {
	if defendantID.IsZero() {
		return nil, fmt.Errorf("%w: defendantID is required", shared.ErrValidation)
	}
	return a.emit(DefendantDefenceAssociationLocked{
		DefendantID:       defendantID,
		LAAContractNumber: laaContractNumber,
	}), nil
}

func validateAssociate(cmd AssociateOrganisationCommand) error {
	if cmd.DefendantID.IsZero() {
		return fmt.Errorf("%w: defendantID is required", shared.ErrValidation)
	}
	if cmd.OrganisationID.IsZero() {
		return fmt.Errorf("%w: organisationID is required", shared.ErrValidation)
	}
	return nil
}

func timestampOrNow(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts
}
