package grant

import (
	"encoding/json"
	"fmt"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// UnmarshalEvent decodes a stored grant event by its wire name.
func UnmarshalEvent(name string, data []byte) (shared.Event, error) {
	switch name {
	case EventAccessGranted:
		return decodeAs[AccessGranted](name, data)
	case EventAccessGrantRemoved:
		return decodeAs[AccessGrantRemoved](name, data)
	case EventUserNotFound:
		return decodeAs[UserNotFound](name, data)
	case EventAssigneeForDefenceIsProsecutingCase:
		return decodeAs[AssigneeForDefenceIsProsecutingCase](name, data)
	case EventGranteeUserNotInAllowedGroups:
		return decodeAs[GranteeUserNotInAllowedGroups](name, data)
	case EventUserAlreadyGranted:
		return decodeAs[UserAlreadyGranted](name, data)
	case EventGrantAccessFailed:
		return decodeAs[GrantAccessFailed](name, data)
	case EventDefenceClientDoesNotExist:
		return decodeAs[DefenceClientDoesNotExist](name, data)
	default:
		return nil, fmt.Errorf("unknown grant event %q", name)
	}
}

func decodeAs[E shared.Event](name string, data []byte) (shared.Event, error) {
	var event E
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return event, nil
}
