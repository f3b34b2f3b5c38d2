// Package association implements the defence-association aggregate: the
// lifecycle of a defendant's association with a defence organisation.
//
// A defendant holds at most one active association. Associating a new
// organisation while one is active implicitly disassociates the old one
// first, and consumers rely on the disassociation preceding the association.
package association

import (
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// Wire names of the association events. DefenceOrganisationLaareferenceReceived
// keeps the casing of the legacy stream.
const (
	EventDefenceOrganisationAssociated        = "DefenceOrganisationAssociated"
	EventDefenceOrganisationDisassociated     = "DefenceOrganisationDisassociated"
	EventDefenceOrganisationLAARefReceived    = "DefenceOrganisationLaareferenceReceived"
	EventDefendantAssociationLockedForLAA     = "DefendantDefenceAssociationLockedForLaa"
	EventDefenceAssociationFailed             = "DefenceAssociationFailed"
	EventDefenceDisassociationFailed          = "DefenceDisassociationFailed"
)

// Failure reasons carried by the rejection events.
const (
	ReasonAlreadyAssociated = "ALREADY_ASSOCIATED"
	ReasonNotAssociated     = "NOT_ASSOCIATED"
	ReasonAssociationLocked = "ASSOCIATION_LOCKED"
)

// DefenceOrganisationAssociated records an organisation starting to represent
// a defendant.
type DefenceOrganisationAssociated struct {
	DefendantID        shared.ID `json:"defendantId"`
	OrganisationID     shared.ID `json:"organisationId"`
	OrganisationName   string    `json:"organisationName"`
	RepresentationType string    `json:"representationType"`
	LAAContractNumber  string    `json:"laaContractNumber"`
	StartDate          time.Time `json:"startDate"`
	UserID             shared.ID `json:"userId"`
}

// EventName implements shared.Event.
func (DefenceOrganisationAssociated) EventName() string {
	return EventDefenceOrganisationAssociated
}

// DefenceOrganisationDisassociated records an organisation ceasing to
// represent a defendant.
type DefenceOrganisationDisassociated struct {
	DefendantID    shared.ID `json:"defendantId"`
	OrganisationID shared.ID `json:"organisationId"`
	EndDate        time.Time `json:"endDate"`
	UserID         shared.ID `json:"userId"`
}

// EventName implements shared.Event.
func (DefenceOrganisationDisassociated) EventName() string {
	return EventDefenceOrganisationDisassociated
}

// DefenceOrganisationLAAReferenceReceived records an updated LAA contract
// reference for the already-associated organisation. Only the statutory
// representation-order channel produces it.
type DefenceOrganisationLAAReferenceReceived struct {
	DefendantID       shared.ID `json:"defendantId"`
	OrganisationID    shared.ID `json:"organisationId"`
	LAAContractNumber string    `json:"laaContractNumber"`
	UserID            shared.ID `json:"userId"`
}

// EventName implements shared.Event.
func (DefenceOrganisationLAAReferenceReceived) EventName() string {
	return EventDefenceOrganisationLAARefReceived
}

// DefendantDefenceAssociationLocked records a representation order locking a
// defendant's association. The lock flag is maintained by consumers; emitting
// this event repeatedly is harmless.
type DefendantDefenceAssociationLocked struct {
	DefendantID       shared.ID `json:"defendantId"`
	LAAContractNumber string    `json:"laaContractNumber"`
}

// EventName implements shared.Event.
func (DefendantDefenceAssociationLocked) EventName() string {
	return EventDefendantAssociationLockedForLAA
}

// DefenceAssociationFailed is the idempotent rejection of associating an
// organisation that is already the active association.
type DefenceAssociationFailed struct {
	DefendantID    shared.ID `json:"defendantId"`
	OrganisationID shared.ID `json:"organisationId"`
	Reason         string    `json:"reason"`
}

// EventName implements shared.Event.
func (DefenceAssociationFailed) EventName() string { return EventDefenceAssociationFailed }

// Failure implements shared.FailureEvent.
func (DefenceAssociationFailed) Failure() bool { return false }

// DefenceDisassociationFailed records a disassociation of the wrong or absent
// organisation, including a repeated disassociation.
type DefenceDisassociationFailed struct {
	DefendantID    shared.ID `json:"defendantId"`
	OrganisationID shared.ID `json:"organisationId"`
	Reason         string    `json:"reason"`
}

// EventName implements shared.Event.
func (DefenceDisassociationFailed) EventName() string { return EventDefenceDisassociationFailed }

// Failure implements shared.FailureEvent.
func (DefenceDisassociationFailed) Failure() bool { return true }
