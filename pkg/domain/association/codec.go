package association

import (
	"encoding/json"
	"fmt"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// UnmarshalEvent decodes a stored association event by its wire name.
func UnmarshalEvent(name string, data []byte) (shared.Event, error) {
	switch name {
	case EventDefenceOrganisationAssociated:
		return decodeAs[DefenceOrganisationAssociated](name, data)
	case EventDefenceOrganisationDisassociated:
		return decodeAs[DefenceOrganisationDisassociated](name, data)
	case EventDefenceOrganisationLAARefReceived:
		return decodeAs[DefenceOrganisationLAAReferenceReceived](name, data)
	case EventDefendantAssociationLockedForLAA:
		return decodeAs[DefendantDefenceAssociationLocked](name, data)
	case EventDefenceAssociationFailed:
		return decodeAs[DefenceAssociationFailed](name, data)
	case EventDefenceDisassociationFailed:
		return decodeAs[DefenceDisassociationFailed](name, data)
	default:
		return nil, fmt.Errorf("unknown association event %q", name)
	}
}

func decodeAs[E shared.Event](name string, data []byte) (shared.Event, error) {
	var event E
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return event, nil
}
