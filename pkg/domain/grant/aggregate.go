package grant

import (
	"fmt"

	"github.com/caseaccessio/api/pkg/domain/permission"
	"github.com/caseaccessio/api/pkg/domain/shared"
)

// GrantAccessToUserCommand requests material-access permissions for a user
// against the aggregate's defence client. Identity, group and existence
// resolution happen upstream; nil means the lookup failed.
type GrantAccessToUserCommand struct {
	DefenceClientID          shared.ID
	DefenceClientExists      bool
	GranteeEmail             string
	Grantee                  *shared.PersonDetails
	GranteeGroups            []string
	GranterGroups            []string
	GranteeOrganisation      *shared.Organisation
	GranterOrganisation      *shared.Organisation
	Granter                  *shared.PersonDetails
	AssociatedOrganisationID *shared.ID
	GranteeIsProsecutingCase bool
}

// RemoveGrantAccessToUserCommand requests revocation of a grantee's bundle.
type RemoveGrantAccessToUserCommand struct {
	GranteeUserID            shared.ID
	LoggedInUserID           shared.ID
	AssociatedOrganisationID *shared.ID
	LoggedInUserOrganisation *shared.Organisation
	GranteeOrganisation      *shared.Organisation
	LoggedInUserGroups       []string
}

// Aggregate decides grant commands against the folded history of one defence
// client's stream.
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

func (a *Aggregate) emit(events ...shared.Event) []shared.Event {
	for _, event := range events {
		a.state = a.state.Apply(event)
	}
	return events
}

// GrantAccessToUser evaluates a grant command. The decision order is fixed:
// client existence, identity, the prosecuting conflict, organisation, groups,
// idempotency, then the grant itself.
func (a *Aggregate) GrantAccessToUser(cmd GrantAccessToUserCommand) ([]shared.Event, error) {
	if cmd.DefenceClientID.IsZero() {
		return nil, fmt.Errorf("%w: defence client id is required", shared.ErrValidation)
	}
	if cmd.GranteeEmail == "" {
		return nil, fmt.Errorf("%w: grantee email is required", shared.ErrValidation)
	}

	if !cmd.DefenceClientExists {
		return a.emit(DefenceClientDoesNotExist{DefenceClientID: cmd.DefenceClientID}), nil
	}
	if cmd.Grantee == nil {
		return a.emit(UserNotFound{Email: cmd.GranteeEmail}), nil
	}
	if cmd.GranteeIsProsecutingCase {
		return a.emit(AssigneeForDefenceIsProsecutingCase{Email: cmd.GranteeEmail}), nil
	}
	// An organisation is a prerequisite for group evaluation.
	if cmd.GranteeOrganisation == nil {
		return a.emit(GranteeUserNotInAllowedGroups{Email: cmd.GranteeEmail}), nil
	}
	if !a.allowlist.HasAllowedRole(cmd.GranteeGroups) {
		return a.emit(GranteeUserNotInAllowedGroups{Email: cmd.GranteeEmail}), nil
	}
	if a.IsAlreadyGranted(cmd.Grantee.UserID, cmd.AssociatedOrganisationID, cmd.GranteeOrganisation) {
		return a.emit(UserAlreadyGranted{Email: cmd.GranteeEmail}), nil
	}

	permissions, err := a.permissionsFor(cmd)
	if err != nil {
		return nil, err
	}
	return a.emit(AccessGranted{
		GranteeDetails:      *cmd.Grantee,
		GranterDetails:      granterOrZero(cmd.Granter),
		GranteeOrganisation: *cmd.GranteeOrganisation,
		Permissions:         permissions,
	}), nil
}

// permissionsFor computes the bundle for a grantee. Everyone gets
// ViewDefendant; document permissions are added when the grantee's
// organisation differs from the associated organisation, since an in-house
// member of the associated organisation holds them implicitly.
func (a *Aggregate) permissionsFor(cmd GrantAccessToUserCommand) ([]permission.Permission, error) {
	grantee := cmd.Grantee.UserID
	target := cmd.DefenceClientID

	viewDefendant, err := permission.New(permission.KindViewDefendant, grantee, target)
	if err != nil {
		return nil, err
	}
	permissions := []permission.Permission{viewDefendant}

	if externalOrganisation(cmd.AssociatedOrganisationID, cmd.GranteeOrganisation) {
		viewDocument, err := permission.New(permission.KindViewDocument, grantee, target)
		if err != nil {
			return nil, err
		}
		uploadDocument, err := permission.New(permission.KindUploadDocument, grantee, target)
		if err != nil {
			return nil, err
		}
		permissions = append(permissions, viewDocument, uploadDocument)
	}
	return permissions, nil
}

// IsAlreadyGranted reports whether granting would be redundant. It merges two
// distinct conditions behind one predicate, and both callers need exactly the
// merged semantics:
//
//   - the grantee belongs to the case's associated organisation, so access is
//     implicit and nothing is tracked here; or
//   - an active permission bundle already exists for the grantee.
//
// It is false only for a member of a different organisation with no active
// bundle.
func (a *Aggregate) IsAlreadyGranted(granteeUserID shared.ID, associatedOrganisationID *shared.ID, granteeOrganisation *shared.Organisation) bool {
	if granteeOrganisation != nil && associatedOrganisationID != nil &&
		granteeOrganisation.ID.Equals(*associatedOrganisationID) {
		return true
	}
	_, tracked := a.state.PermissionsFor(granteeUserID)
	return tracked
}

// RemoveGrantAccessToUser evaluates a revocation. The acting user may revoke
// when they belong to the associated organisation, when they self-revoke as
// an advocate, or when they administer the grantee's own chambers.
func (a *Aggregate) RemoveGrantAccessToUser(cmd RemoveGrantAccessToUserCommand) ([]shared.Event, error) {
	if cmd.GranteeUserID.IsZero() {
		return nil, fmt.Errorf("%w: grantee userID is required", shared.ErrValidation)
	}
	if cmd.LoggedInUserID.IsZero() {
		return nil, fmt.Errorf("%w: logged-in userID is required", shared.ErrValidation)
	}

	if !a.mayRemoveGrant(cmd) {
		return a.emit(GrantAccessFailed{
			ErrorCode: ErrorCodeUnauthorizedRemoveGranting,
			UserID:    cmd.LoggedInUserID,
		}), nil
	}

	permissions, ok := a.state.PermissionsFor(cmd.GranteeUserID)
	if !ok {
		// Authorised, but nothing tracked to remove.
		return nil, nil
	}
	return a.emit(AccessGrantRemoved{
		GranteeUserID: cmd.GranteeUserID,
		Permissions:   permissions,
	}), nil
}

func (a *Aggregate) mayRemoveGrant(cmd RemoveGrantAccessToUserCommand) bool {
	// In-house staff of the associated organisation may always revoke.
	if cmd.LoggedInUserOrganisation != nil && cmd.AssociatedOrganisationID != nil &&
		cmd.LoggedInUserOrganisation.ID.Equals(*cmd.AssociatedOrganisationID) {
		return true
	}
	// Advocates may revoke their own grant.
	if cmd.LoggedInUserID.Equals(cmd.GranteeUserID) && a.allowlist.IsAdvocate(cmd.LoggedInUserGroups) {
		return true
	}
	// Chambers admins may revoke within their own organisation.
	if a.allowlist.IsChambersAdmin(cmd.LoggedInUserGroups) &&
		cmd.LoggedInUserOrganisation != nil && cmd.GranteeOrganisation != nil &&
		cmd.LoggedInUserOrganisation.ID.Equals(cmd.GranteeOrganisation.ID) {
		return true
	}
	return false
}

// RemoveAllGrantees revokes every tracked grantee's bundle, one event per
// grantee in unspecified order. Used when an organisation is disassociated
// from a case.
func (a *Aggregate) RemoveAllGrantees() ([]shared.Event, error) {
	var events []shared.Event
	for _, granteeID := range a.state.Grantees() {
		permissions, _ := a.state.PermissionsFor(granteeID)
		events = append(events, AccessGrantRemoved{
			GranteeUserID: granteeID,
			Permissions:   permissions,
		})
	}
	return a.emit(events...), nil
}

func externalOrganisation(associatedOrganisationID *shared.ID, granteeOrganisation *shared.Organisation) bool {
	if associatedOrganisationID == nil {
		return true
	}
	return !granteeOrganisation.ID.Equals(*associatedOrganisationID)
}

func granterOrZero(p *shared.PersonDetails) shared.PersonDetails {
	if p == nil {
		return shared.PersonDetails{}
	}
	return *p
}
