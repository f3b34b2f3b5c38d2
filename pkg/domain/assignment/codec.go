package assignment

import (
	"encoding/json"
	"fmt"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// UnmarshalEvent decodes a stored assignment event by its wire name.
// Used by the event store when folding a stream back into state.
func UnmarshalEvent(name string, data []byte) (shared.Event, error) {
	switch name {
	case EventCaseAssignedToOrganisation:
		return decodeAs[CaseAssignedToOrganisation](name, data)
	case EventCaseAssignedToAdvocate:
		return decodeAs[CaseAssignedToAdvocate](name, data)
	case EventCasesAssignedToOrganisation:
		return decodeAs[CasesAssignedToOrganisation](name, data)
	case EventCasesAssignedToAdvocate:
		return decodeAs[CasesAssignedToAdvocate](name, data)
	case EventCaseAssignmentToAdvocateRemoved:
		return decodeAs[CaseAssignmentToAdvocateRemoved](name, data)
	case EventCaseAssignmentToOrganisationRemoved:
		return decodeAs[CaseAssignmentToOrganisationRemoved](name, data)
	case EventUserNotFound:
		return decodeAs[UserNotFound](name, data)
	case EventAssigneeNotInAllowedGroups:
		return decodeAs[AssigneeNotInAllowedGroups](name, data)
	case EventAssigneeForProsecutionIsDefendingCase:
		return decodeAs[AssigneeForProsecutionIsDefendingCase](name, data)
	case EventUserAlreadyAssigned:
		return decodeAs[UserAlreadyAssigned](name, data)
	case EventUserNotAssigned:
		return decodeAs[UserNotAssigned](name, data)
	case EventCaseAssignmentsByHearingListingFailed:
		return decodeAs[CaseAssignmentsByHearingListingFailed](name, data)
	default:
		return nil, fmt.Errorf("unknown assignment event %q", name)
	}
}

// decodeAs decodes into the concrete value type so folded events compare and
// type-switch exactly like the ones the aggregate emits.
func decodeAs[E shared.Event](name string, data []byte) (shared.Event, error) {
	var event E
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return event, nil
}
