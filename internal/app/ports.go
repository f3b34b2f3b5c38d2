// Package app hosts the command services: they load an aggregate's stream,
// let the aggregate decide, append what it emitted and feed the read model.
// All business outcomes travel as events; the services only return errors
// for infrastructure failures and programming mistakes.
package app

import (
	"context"

	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/eventstore"
)

// DirectoryUser is a user resolved from the identity provider.
type DirectoryUser struct {
	Details      shared.PersonDetails
	Email        string
	Groups       []string
	Organisation *shared.Organisation
}

// Directory resolves users against the identity provider. Lookups return
// (nil, nil) when the user does not exist; the aggregates turn that into
// their UserNotFound events.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*DirectoryUser, error)
	FindByID(ctx context.Context, userID shared.ID) (*DirectoryUser, error)
}

// DefenceClients reports whether a defence client is known to the case
// management system. Grants against unknown clients are rejected with an
// event, not an error.
type DefenceClients interface {
	Exists(ctx context.Context, defenceClientID shared.ID) (bool, error)
}

// EventPublisher broadcasts recorded events to feed subscribers. Publishing
// is best-effort: a slow subscriber must never fail a command.
type EventPublisher interface {
	Publish(streamID string, events []eventstore.StoredEvent)
}

// NopPublisher discards events. Used in tests and the admin CLI.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(string, []eventstore.StoredEvent) {}
