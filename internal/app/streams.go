package app

import (
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/eventstore"
)

// Stream id builders. One stream per aggregate identity: assignments fold
// per case, hearing batches per hearing listing, associations and grants
// per defendant.
func assignmentStream(caseID shared.ID) string {
	return "assignment:case-" + caseID.String()
}

func hearingStream(hearingID shared.ID) string {
	return "assignment:hearing-" + hearingID.String()
}

func associationStream(defendantID shared.ID) string {
	return "association:defendant-" + defendantID.String()
}

func grantStream(defenceClientID shared.ID) string {
	return "grant:defendant-" + defenceClientID.String()
}

// decodeStream turns stored events back into domain events with the given
// package codec.
func decodeStream(stored []eventstore.StoredEvent, unmarshal func(name string, data []byte) (shared.Event, error)) ([]shared.Event, error) {
	events := make([]shared.Event, 0, len(stored))
	for _, e := range stored {
		event, err := unmarshal(e.Name, e.Data)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// outcomeOf labels a decision for metrics: "accepted" when the aggregate
// emitted no failure event, "rejected" otherwise.
func outcomeOf(events []shared.Event) string {
	for _, event := range events {
		if failure, ok := event.(shared.FailureEvent); ok && failure.Failure() {
			return "rejected"
		}
	}
	return "accepted"
}
