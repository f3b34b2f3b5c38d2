// Package grant implements the grant-access aggregate: granting and revoking
// bundles of material-access permissions for users against one defence client.
//
// Permissions granted together form one logical grant; revocation always
// removes the whole bundle. Users of the case's own associated organisation
// hold access implicitly and are never tracked here.
package grant

import (
	"github.com/caseaccessio/api/pkg/domain/permission"
	"github.com/caseaccessio/api/pkg/domain/shared"
)

// Wire names of the grant events.
const (
	EventAccessGranted                      = "AccessGranted"
	EventAccessGrantRemoved                 = "AccessGrantRemoved"
	EventUserNotFound                       = "UserNotFound"
	EventAssigneeForDefenceIsProsecutingCase = "AssigneeForDefenceIsProsecutingCase"
	EventGranteeUserNotInAllowedGroups      = "GranteeUserNotInAllowedGroups"
	EventUserAlreadyGranted                 = "UserAlreadyGranted"
	EventGrantAccessFailed                  = "GrantAccessFailed"
	EventDefenceClientDoesNotExist          = "DefenceClientDoesNotExist"
)

// ErrorCodeUnauthorizedRemoveGranting is carried by GrantAccessFailed when
// the acting user may not revoke the grantee's access.
const ErrorCodeUnauthorizedRemoveGranting = "UNAUTHORIZED_REMOVE_GRANTING"

// AccessGranted records a bundle of permissions granted to a user against the
// defence client.
type AccessGranted struct {
	GranteeDetails      shared.PersonDetails    `json:"granteeDetails"`
	GranterDetails      shared.PersonDetails    `json:"granterDetails"`
	GranteeOrganisation shared.Organisation     `json:"granteeOrganisation"`
	Permissions         []permission.Permission `json:"permissions"`
}

// EventName implements shared.Event.
func (AccessGranted) EventName() string { return EventAccessGranted }

// AccessGrantRemoved records the revocation of a grantee's whole permission
// bundle, whether by self-revoke, an authorised member, or a remove-all sweep.
type AccessGrantRemoved struct {
	GranteeUserID shared.ID               `json:"granteeUserId"`
	Permissions   []permission.Permission `json:"permissions"`
}

// EventName implements shared.Event.
func (AccessGrantRemoved) EventName() string { return EventAccessGrantRemoved }

// UserNotFound records a grant attempt for an email the directory could not
// resolve.
type UserNotFound struct {
	Email string `json:"email"`
}

// EventName implements shared.Event.
func (UserNotFound) EventName() string { return EventUserNotFound }

// Failure implements shared.FailureEvent.
func (UserNotFound) Failure() bool { return true }

// AssigneeForDefenceIsProsecutingCase records a defence grant attempt for a
// user already prosecuting the same case.
type AssigneeForDefenceIsProsecutingCase struct {
	Email string `json:"email"`
}

// EventName implements shared.Event.
func (AssigneeForDefenceIsProsecutingCase) EventName() string {
	return EventAssigneeForDefenceIsProsecutingCase
}

// Failure implements shared.FailureEvent.
func (AssigneeForDefenceIsProsecutingCase) Failure() bool { return true }

// GranteeUserNotInAllowedGroups records a grant attempt for a user without an
// organisation or without an allowed role group.
type GranteeUserNotInAllowedGroups struct {
	Email string `json:"email"`
}

// EventName implements shared.Event.
func (GranteeUserNotInAllowedGroups) EventName() string {
	return EventGranteeUserNotInAllowedGroups
}

// Failure implements shared.FailureEvent.
func (GranteeUserNotInAllowedGroups) Failure() bool { return true }

// UserAlreadyGranted is the idempotency signal for granting access the user
// already holds, explicitly or implicitly through the associated organisation.
type UserAlreadyGranted struct {
	Email string `json:"email"`
}

// EventName implements shared.Event.
func (UserAlreadyGranted) EventName() string { return EventUserAlreadyGranted }

// Failure implements shared.FailureEvent.
func (UserAlreadyGranted) Failure() bool { return false }

// GrantAccessFailed records an unauthorized attempt to revoke a grant.
type GrantAccessFailed struct {
	ErrorCode string    `json:"errorCode"`
	UserID    shared.ID `json:"userId"`
}

// EventName implements shared.Event.
func (GrantAccessFailed) EventName() string { return EventGrantAccessFailed }

// Failure implements shared.FailureEvent.
func (GrantAccessFailed) Failure() bool { return true }

// DefenceClientDoesNotExist records a grant attempt against an unknown
// defence client.
type DefenceClientDoesNotExist struct {
	DefenceClientID shared.ID `json:"defenceClientId"`
}

// EventName implements shared.Event.
func (DefenceClientDoesNotExist) EventName() string { return EventDefenceClientDoesNotExist }

// Failure implements shared.FailureEvent.
func (DefenceClientDoesNotExist) Failure() bool { return true }
