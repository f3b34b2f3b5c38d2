package assignment

import (
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// AssignCaseCommand requests that a case be assigned to an advocate or, via a
// defence lawyer, to their organisation. Identity and group resolution happen
// upstream: a nil Assignee means the directory lookup failed.
type AssignCaseCommand struct {
	CaseID                       shared.ID
	AssigneeEmail                string
	Assignee                     *shared.PersonDetails
	AssigneeOrganisation         *shared.Organisation
	AssignorOrganisation         *shared.Organisation
	Assignor                     *shared.PersonDetails
	AssigneeGroups               []string
	AssigneeIsDefendingCase      bool
	AssignorUserID               shared.ID
	IsPolice                     bool
	IsCPS                        bool
	RepresentingOrganisationCode string
	Timestamp                    time.Time
}

// prosecutingContext reports whether the command is issued on behalf of a
// prosecuting body. The defending/prosecuting conflict check only applies
// then; the representing-organisation code never influences it.
func (c AssignCaseCommand) prosecutingContext() bool {
	return c.IsCPS || c.IsPolice
}

// RemoveCaseAssignmentCommand requests removal of a case assignment.
// IsAutomaticUnassignment marks system-triggered sweeps, which tolerate
// already-cleared state silently.
type RemoveCaseAssignmentCommand struct {
	CaseID                            shared.ID
	AssigneeUserID                    shared.ID
	AssigneeGroups                    []string
	HasOtherAdvocatesAssignedToCase   bool
	RemovedByUserID                   shared.ID
	IsAutomaticUnassignment           bool
	Timestamp                         time.Time
}

// HearingAssignmentDetail is one element of a hearing-listing batch. An
// upstream validation failure arrives with ErrorCode/FailureReason pre-set.
type HearingAssignmentDetail struct {
	CaseID        shared.ID
	HearingID     shared.ID
	ErrorCode     string
	FailureReason string
}

// Failed reports whether the element carries a pre-computed upstream error.
func (d HearingAssignmentDetail) Failed() bool {
	return d.ErrorCode != "" || d.FailureReason != ""
}

// AssignCaseHearingCommand requests assignment of an assignee across the
// cases of a hearing listing. Validation is all-or-nothing: a single bad
// element fails the whole batch.
type AssignCaseHearingCommand struct {
	AssigneeEmail                string
	Assignee                     *shared.PersonDetails
	AssigneeOrganisation         *shared.Organisation
	AssignorOrganisation         *shared.Organisation
	Assignor                     *shared.PersonDetails
	AssigneeGroups               []string
	AssigneeIsDefendingCase      bool
	IsPolice                     bool
	IsCPS                        bool
	Details                      []HearingAssignmentDetail
	RepresentingOrganisationCode string
	Timestamp                    time.Time
}

func (c AssignCaseHearingCommand) prosecutingContext() bool {
	return c.IsCPS || c.IsPolice
}
