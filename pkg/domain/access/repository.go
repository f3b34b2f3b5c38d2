package access

import (
	"context"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// Repository is the keyed get/put/delete contract of the projection store.
// Get returns (nil, nil) when no record exists for the key.
type Repository interface {
	Get(ctx context.Context, key Key) (*Record, error)
	Put(ctx context.Context, record *Record) error
	Delete(ctx context.Context, key Key) error

	// FindByCase lists all records of a case, for the query surface.
	FindByCase(ctx context.Context, caseID shared.ID) ([]*Record, error)

	// FindExpired lists every record whose expiry has passed. Driven by the
	// automatic unassignment sweep, which removes the underlying
	// assignments before the purge deletes the records.
	FindExpired(ctx context.Context) ([]*Record, error)

	// DeleteExpired removes every record whose expiry has passed and
	// returns the number removed. Driven by the purge job.
	DeleteExpired(ctx context.Context) (int64, error)
}
