package access

import (
	"context"
	"fmt"
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/locking"
	"github.com/caseaccessio/api/pkg/logger"
)

// Service provides the idempotent create-or-extend upsert over access
// records. Each key's read-check-write runs under its own lock: two
// concurrent hearing updates for one (case, organisation) must not race a
// stale expiry into the store.
type Service struct {
	repo  Repository
	locks *locking.Keyed
	log   *logger.Logger
}

// NewService creates a new access projection service.
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, locks: locking.NewKeyed(), log: log}
}

// UpsertInput contains input for UpdateOrSave.
type UpsertInput struct {
	Key                      Key
	AssigneeDetails          shared.PersonDetails
	AssigneeOrganisation     shared.Organisation
	AssignorDetails          shared.PersonDetails
	AssignorOrganisationID   shared.ID
	RepresentingOrganisation string
	AssignmentTimestamp      time.Time
	Expiry                   ExpiryPolicy // nil means no expiry
	HearingID                *shared.ID   // set for hearing-based assignments
	Advocate                 *shared.PersonDetails
}

// UpdateOrSave creates the record for the key or extends the existing one.
//
// A record without an expiry is a permanent case-based assignment and is
// returned unchanged: a later hearing-based update must never silently
// convert it into a time-bounded one. A record with an expiry has it
// recomputed from the new timestamp, the assignor overwritten only when it
// actually changed, and any advocate sub-record merged in.
func (s *Service) UpdateOrSave(ctx context.Context, input UpsertInput) (*Record, error) {
	if !input.Key.Kind.IsValid() {
		return nil, fmt.Errorf("%w: invalid projection key kind", shared.ErrValidation)
	}
	if input.Key.CaseID.IsZero() || input.Key.SubjectID.IsZero() {
		return nil, fmt.Errorf("%w: projection key is required", shared.ErrValidation)
	}

	unlock := s.locks.Lock(input.Key.String())
	defer unlock()

	existing, err := s.repo.Get(ctx, input.Key)
	if err != nil {
		return nil, fmt.Errorf("load access record: %w", err)
	}

	expiry := input.Expiry
	if expiry == nil {
		expiry = NoExpiry
	}

	if existing == nil {
		record := &Record{
			Key:                      input.Key,
			AssigneeDetails:          input.AssigneeDetails,
			AssigneeOrganisation:     input.AssigneeOrganisation,
			AssignorDetails:          input.AssignorDetails,
			AssignorOrganisationID:   input.AssignorOrganisationID,
			RepresentingOrganisation: input.RepresentingOrganisation,
			AssignedDate:             input.AssignmentTimestamp,
			AssignmentExpiryDate:     expiry(input.AssignmentTimestamp),
			HearingID:                input.HearingID,
		}
		if input.Advocate != nil {
			record.Advocates = []AdvocateEntry{{
				Details:      *input.Advocate,
				AssignedDate: input.AssignmentTimestamp,
			}}
		}
		if err := s.repo.Put(ctx, record); err != nil {
			return nil, fmt.Errorf("save access record: %w", err)
		}
		return record, nil
	}

	if existing.Permanent() {
		// The permanent guard: nothing on a non-expiring record changes.
		return existing, nil
	}

	existing.AssignmentExpiryDate = expiry(input.AssignmentTimestamp)
	if input.HearingID != nil {
		existing.HearingID = input.HearingID
	}
	if !input.AssignorDetails.UserID.Equals(existing.AssignorDetails.UserID) {
		existing.AssignorDetails = input.AssignorDetails
		existing.AssignorOrganisationID = input.AssignorOrganisationID
	}
	existing.AssignedDate = input.AssignmentTimestamp
	if input.Advocate != nil && !existing.HasAdvocate(input.Advocate.UserID) {
		existing.Advocates = append(existing.Advocates, AdvocateEntry{
			Details:      *input.Advocate,
			AssignedDate: input.AssignmentTimestamp,
		})
	}

	if err := s.repo.Put(ctx, existing); err != nil {
		return nil, fmt.Errorf("save access record: %w", err)
	}
	return existing, nil
}

// RemoveAdvocate drops an advocate sub-record from an organisation record.
// The parent survives while other advocates remain; removing the last one
// deletes it entirely.
func (s *Service) RemoveAdvocate(ctx context.Context, caseID, organisationID, advocateUserID shared.ID) error {
	key := OrganisationKey(caseID, organisationID)
	unlock := s.locks.Lock(key.String())
	defer unlock()

	record, err := s.repo.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load access record: %w", err)
	}
	if record == nil {
		return nil
	}

	remaining := record.Advocates[:0:0]
	for _, a := range record.Advocates {
		if !a.Details.UserID.Equals(advocateUserID) {
			remaining = append(remaining, a)
		}
	}
	if len(remaining) == 0 {
		if err := s.repo.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete access record: %w", err)
		}
		return nil
	}
	record.Advocates = remaining
	if err := s.repo.Put(ctx, record); err != nil {
		return fmt.Errorf("save access record: %w", err)
	}
	return nil
}

// Get returns the record for a key, or (nil, nil) when none exists.
func (s *Service) Get(ctx context.Context, key Key) (*Record, error) {
	record, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load access record: %w", err)
	}
	return record, nil
}

// ByCase lists every access record of a case.
func (s *Service) ByCase(ctx context.Context, caseID shared.ID) ([]*Record, error) {
	records, err := s.repo.FindByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("list access records: %w", err)
	}
	return records, nil
}

// Remove deletes the record for a key, if present.
func (s *Service) Remove(ctx context.Context, key Key) error {
	unlock := s.locks.Lock(key.String())
	defer unlock()

	if err := s.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete access record: %w", err)
	}
	return nil
}

// Expired lists every record whose expiry has passed.
func (s *Service) Expired(ctx context.Context) ([]*Record, error) {
	records, err := s.repo.FindExpired(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expired access records: %w", err)
	}
	return records, nil
}

// PurgeExpired removes every expired record. Returns the number removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired access records: %w", err)
	}
	if count > 0 && s.log != nil {
		s.log.Info("purged expired access records", "count", count)
	}
	return count, nil
}
