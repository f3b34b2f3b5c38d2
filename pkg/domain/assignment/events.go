// Package assignment implements the case-assignment aggregate: assigning and
// removing advocates and defence organisations on a case.
//
// The aggregate is a pure decision function. It folds its prior events into
// state, evaluates a command against that state and returns new events; it
// never performs lookups or I/O. Business failures (unknown user, conflict,
// idempotent repeat) are events of their own so every command is auditable.
package assignment

import (
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// Wire names of the assignment events. These are part of the stored stream
// format and must never change; CaseAssigmentToOrganisationRemoved keeps its
// historic misspelling for compatibility with existing streams.
const (
	EventCaseAssignedToOrganisation           = "CaseAssignedToOrganisation"
	EventCaseAssignedToAdvocate               = "CaseAssignedToAdvocate"
	EventCasesAssignedToOrganisation          = "CasesAssignedToOrganisation"
	EventCasesAssignedToAdvocate              = "CasesAssignedToAdvocate"
	EventCaseAssignmentToAdvocateRemoved      = "CaseAssignmentToAdvocateRemoved"
	EventCaseAssignmentToOrganisationRemoved  = "CaseAssigmentToOrganisationRemoved"
	EventUserNotFound                         = "UserNotFound"
	EventAssigneeNotInAllowedGroups           = "AssigneeNotInAllowedGroups"
	EventAssigneeForProsecutionIsDefendingCase = "AssigneeForProsecutionIsDefendingCase"
	EventUserAlreadyAssigned                  = "UserAlreadyAssigned"
	EventUserNotAssigned                      = "UserNotAssigned"
	EventCaseAssignmentsByHearingListingFailed = "CaseAssignmentsByHearingListingFailed"
)

// ErrorCodeUserNotAssigned is carried by UserNotAssigned events.
const ErrorCodeUserNotAssigned = "USER_NOT_ASSIGNED"

// ErrorCodeUserNotFound is carried by hearing-batch failures when the
// assignee lookup failed upstream.
const ErrorCodeUserNotFound = "USER_NOT_FOUND"

// CaseAssignedToOrganisation records a defence organisation gaining access to
// a case through one of its defence lawyers.
type CaseAssignedToOrganisation struct {
	CaseID                   shared.ID             `json:"caseId"`
	AssigneeOrganisation     shared.Organisation   `json:"assigneeOrganisation"`
	AssignorOrganisation     shared.Organisation   `json:"assignorOrganisation"`
	AssigneeDetails          shared.PersonDetails  `json:"assigneeDetails"`
	AssignorDetails          shared.PersonDetails  `json:"assignorDetails"`
	RepresentingOrganisation string                `json:"representingOrganisation"`
	AssignedAt               time.Time             `json:"assignmentTimestamp"`
}

// EventName implements shared.Event.
func (CaseAssignedToOrganisation) EventName() string { return EventCaseAssignedToOrganisation }

// CaseAssignedToAdvocate records an individual advocate gaining access to a
// case.
type CaseAssignedToAdvocate struct {
	CaseID                   shared.ID             `json:"caseId"`
	AssigneeOrganisation     shared.Organisation   `json:"assigneeOrganisation"`
	AssignorOrganisation     shared.Organisation   `json:"assignorOrganisation"`
	AssigneeDetails          shared.PersonDetails  `json:"assigneeDetails"`
	AssignorDetails          shared.PersonDetails  `json:"assignorDetails"`
	RepresentingOrganisation string                `json:"representingOrganisation"`
	AssignedAt               time.Time             `json:"assignmentTimestamp"`
}

// EventName implements shared.Event.
func (CaseAssignedToAdvocate) EventName() string { return EventCaseAssignedToAdvocate }

// HearingAssignment is one case/hearing entry of a successful hearing batch.
type HearingAssignment struct {
	CaseID     shared.ID `json:"caseId"`
	HearingID  shared.ID `json:"hearingId"`
	AssignedAt time.Time `json:"assignmentTimestamp"`
}

// CasesAssignedToOrganisation records a hearing-listing batch assigning an
// organisation across several cases in one event.
type CasesAssignedToOrganisation struct {
	AssigneeOrganisation     shared.Organisation  `json:"assigneeOrganisation"`
	AssignorOrganisation     shared.Organisation  `json:"assignorOrganisation"`
	AssigneeDetails          shared.PersonDetails `json:"assigneeDetails"`
	AssignorDetails          shared.PersonDetails `json:"assignorDetails"`
	RepresentingOrganisation string               `json:"representingOrganisation"`
	Assignments              []HearingAssignment  `json:"assignments"`
}

// EventName implements shared.Event.
func (CasesAssignedToOrganisation) EventName() string { return EventCasesAssignedToOrganisation }

// CasesAssignedToAdvocate records a hearing-listing batch assigning an
// advocate across several cases in one event.
type CasesAssignedToAdvocate struct {
	AssigneeOrganisation     shared.Organisation  `json:"assigneeOrganisation"`
	AssignorOrganisation     shared.Organisation  `json:"assignorOrganisation"`
	AssigneeDetails          shared.PersonDetails `json:"assigneeDetails"`
	AssignorDetails          shared.PersonDetails `json:"assignorDetails"`
	RepresentingOrganisation string               `json:"representingOrganisation"`
	Assignments              []HearingAssignment  `json:"assignments"`
}

// EventName implements shared.Event.
func (CasesAssignedToAdvocate) EventName() string { return EventCasesAssignedToAdvocate }

// CaseAssignmentToAdvocateRemoved records an advocate losing access to a case.
type CaseAssignmentToAdvocateRemoved struct {
	CaseID                  shared.ID `json:"caseId"`
	AssigneeUserID          shared.ID `json:"assigneeUserId"`
	AssigneeOrganisationID  shared.ID `json:"assigneeOrganisationId"`
	RemovedByUserID         shared.ID `json:"removedByUserId"`
	RemovedAt               time.Time `json:"removedTimestamp"`
	IsAutomaticUnassignment bool      `json:"isAutomaticUnassignment"`
}

// EventName implements shared.Event.
func (CaseAssignmentToAdvocateRemoved) EventName() string {
	return EventCaseAssignmentToAdvocateRemoved
}

// CaseAssignmentToOrganisationRemoved records an organisation losing access
// to a case once its last assigned advocate is gone.
type CaseAssignmentToOrganisationRemoved struct {
	CaseID                  shared.ID `json:"caseId"`
	AssigneeOrganisationID  shared.ID `json:"assigneeOrganisationId"`
	RemovedByUserID         shared.ID `json:"removedByUserId"`
	RemovedAt               time.Time `json:"removedTimestamp"`
	IsAutomaticUnassignment bool      `json:"isAutomaticUnassignment"`
}

// EventName implements shared.Event.
func (CaseAssignmentToOrganisationRemoved) EventName() string {
	return EventCaseAssignmentToOrganisationRemoved
}

// UserNotFound records an assignment attempt for an email the directory could
// not resolve.
type UserNotFound struct {
	Email string `json:"email"`
}

// EventName implements shared.Event.
func (UserNotFound) EventName() string { return EventUserNotFound }

// Failure implements shared.FailureEvent.
func (UserNotFound) Failure() bool { return true }

// AssigneeNotInAllowedGroups records an assignment attempt for a user holding
// neither the advocate nor the defence-lawyer role.
type AssigneeNotInAllowedGroups struct {
	Email string `json:"email"`
}

// EventName implements shared.Event.
func (AssigneeNotInAllowedGroups) EventName() string { return EventAssigneeNotInAllowedGroups }

// Failure implements shared.FailureEvent.
func (AssigneeNotInAllowedGroups) Failure() bool { return true }

// AssigneeForProsecutionIsDefendingCase records a prosecution assignment
// attempt for a user already defending the same case.
type AssigneeForProsecutionIsDefendingCase struct {
	Email string `json:"email"`
}

// EventName implements shared.Event.
func (AssigneeForProsecutionIsDefendingCase) EventName() string {
	return EventAssigneeForProsecutionIsDefendingCase
}

// Failure implements shared.FailureEvent.
func (AssigneeForProsecutionIsDefendingCase) Failure() bool { return true }

// UserAlreadyAssigned is the idempotency signal for repeating an assignment
// that is already active. It is not an error: the requested state holds.
type UserAlreadyAssigned struct {
	Email string `json:"email"`
}

// EventName implements shared.Event.
func (UserAlreadyAssigned) EventName() string { return EventUserAlreadyAssigned }

// Failure implements shared.FailureEvent.
func (UserAlreadyAssigned) Failure() bool { return false }

// UserNotAssigned records a manual removal of an assignment that does not
// exist. Automatic sweeps suppress it.
type UserNotAssigned struct {
	AssigneeUserID shared.ID `json:"assigneeUserId"`
	ErrorCode      string    `json:"errorCode"`
}

// EventName implements shared.Event.
func (UserNotAssigned) EventName() string { return EventUserNotAssigned }

// Failure implements shared.FailureEvent.
func (UserNotAssigned) Failure() bool { return true }

// HearingAssignmentError is one per-element failure of a hearing batch.
type HearingAssignmentError struct {
	CaseID        shared.ID `json:"caseId"`
	HearingID     shared.ID `json:"hearingId"`
	ErrorCode     string    `json:"errorCode"`
	FailureReason string    `json:"failureReason"`
}

// CaseAssignmentsByHearingListingFailed records a hearing batch rejected as a
// whole. Batches never partially succeed: one bad element fails them all.
type CaseAssignmentsByHearingListingFailed struct {
	Email            string                   `json:"email"`
	AssignmentErrors []HearingAssignmentError `json:"assignmentErrors"`
}

// EventName implements shared.Event.
func (CaseAssignmentsByHearingListingFailed) EventName() string {
	return EventCaseAssignmentsByHearingListingFailed
}

// Failure implements shared.FailureEvent.
func (CaseAssignmentsByHearingListingFailed) Failure() bool { return true }
