// Package access holds the case-access read model: who currently has access
// to which case, with expiry semantics.
//
// Records are a projection folded from assignment events. The package owns
// its own copy of the data and never reaches back into aggregate state.
package access

import (
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// SubjectKind distinguishes the two projection key shapes.
type SubjectKind string

const (
	// SubjectOrganisation keys a record by (case, organisation).
	SubjectOrganisation SubjectKind = "organisation"
	// SubjectAdvocate keys a record by (case, advocate user).
	SubjectAdvocate SubjectKind = "advocate"
)

// IsValid reports whether the kind is known.
func (k SubjectKind) IsValid() bool {
	return k == SubjectOrganisation || k == SubjectAdvocate
}

// Key identifies one access record.
type Key struct {
	CaseID    shared.ID   `json:"caseId"`
	SubjectID shared.ID   `json:"subjectId"`
	Kind      SubjectKind `json:"kind"`
}

// String renders the key for logging and lock scoping.
func (k Key) String() string {
	return string(k.Kind) + ":" + k.CaseID.String() + ":" + k.SubjectID.String()
}

// OrganisationKey builds the (case, organisation) key.
func OrganisationKey(caseID, organisationID shared.ID) Key {
	return Key{CaseID: caseID, SubjectID: organisationID, Kind: SubjectOrganisation}
}

// AdvocateKey builds the (case, advocate) key.
func AdvocateKey(caseID, advocateUserID shared.ID) Key {
	return Key{CaseID: caseID, SubjectID: advocateUserID, Kind: SubjectAdvocate}
}

// AdvocateEntry is an advocate-level sub-record of an organisation record.
type AdvocateEntry struct {
	Details      shared.PersonDetails `json:"details"`
	AssignedDate time.Time            `json:"assignedDate"`
}

// Record is the current-state access record for one projection key.
// A nil AssignmentExpiryDate marks a permanent, case-based assignment;
// hearing-based assignments always carry one, plus the hearing listing the
// assignment was recorded under, so expiry handling can address the right
// stream.
type Record struct {
	Key                      Key                  `json:"key"`
	AssigneeDetails          shared.PersonDetails `json:"assigneeDetails"`
	AssigneeOrganisation     shared.Organisation  `json:"assigneeOrganisation"`
	AssignorDetails          shared.PersonDetails `json:"assignorDetails"`
	AssignorOrganisationID   shared.ID            `json:"assignorOrganisationId"`
	RepresentingOrganisation string               `json:"representingOrganisation"`
	AssignedDate             time.Time            `json:"assignedDate"`
	AssignmentExpiryDate     *time.Time           `json:"assignmentExpiryDate,omitempty"`
	HearingID                *shared.ID           `json:"hearingId,omitempty"`
	Advocates                []AdvocateEntry      `json:"advocates,omitempty"`
}

// Permanent reports whether the record never expires.
func (r *Record) Permanent() bool {
	return r.AssignmentExpiryDate == nil
}

// Expired reports whether the record has an expiry in the past.
func (r *Record) Expired(now time.Time) bool {
	return r.AssignmentExpiryDate != nil && r.AssignmentExpiryDate.Before(now)
}

// HasAdvocate reports whether an advocate sub-record exists.
func (r *Record) HasAdvocate(userID shared.ID) bool {
	for _, a := range r.Advocates {
		if a.Details.UserID.Equals(userID) {
			return true
		}
	}
	return false
}

// ExpiryPolicy derives an expiry from an assignment timestamp. A nil result
// means the assignment never expires. The number of hours or days is
// deployment configuration; the projection only applies the function.
type ExpiryPolicy func(assignedAt time.Time) *time.Time

// NoExpiry is the policy of permanent, case-based assignments.
func NoExpiry(time.Time) *time.Time { return nil }

// ExpiresAfter returns the time-bounded policy used for hearing-based
// assignments.
func ExpiresAfter(d time.Duration) ExpiryPolicy {
	return func(assignedAt time.Time) *time.Time {
		expiry := assignedAt.Add(d)
		return &expiry
	}
}
