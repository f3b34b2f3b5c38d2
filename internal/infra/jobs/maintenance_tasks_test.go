package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseaccessio/api/internal/app"
	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/domain/assignment"
	"github.com/caseaccessio/api/pkg/domain/permission"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/eventstore"
	"github.com/caseaccessio/api/pkg/logger"
)

type sweepAccessRepo struct {
	mu      sync.Mutex
	records map[access.Key]*access.Record
}

func newSweepAccessRepo() *sweepAccessRepo {
	return &sweepAccessRepo{records: make(map[access.Key]*access.Record)}
}

func (r *sweepAccessRepo) Get(_ context.Context, key access.Key) (*access.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[key], nil
}

func (r *sweepAccessRepo) Put(_ context.Context, record *access.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.Key] = record
	return nil
}

func (r *sweepAccessRepo) Delete(_ context.Context, key access.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}

func (r *sweepAccessRepo) FindByCase(_ context.Context, caseID shared.ID) ([]*access.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*access.Record
	for _, rec := range r.records {
		if rec.Key.CaseID.Equals(caseID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *sweepAccessRepo) FindExpired(_ context.Context) ([]*access.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*access.Record
	for _, rec := range r.records {
		if rec.Expired(now) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *sweepAccessRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var n int64
	for key, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, key)
			n++
		}
	}
	return n, nil
}

type sweepDirectory struct {
	users []*app.DirectoryUser
}

func (d *sweepDirectory) FindByEmail(_ context.Context, email string) (*app.DirectoryUser, error) {
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (d *sweepDirectory) FindByID(_ context.Context, userID shared.ID) (*app.DirectoryUser, error) {
	for _, u := range d.users {
		if u.Details.UserID.Equals(userID) {
			return u, nil
		}
	}
	return nil, nil
}

func expiredRecord(caseID shared.ID, advocate shared.PersonDetails) *access.Record {
	expiry := time.Now().Add(-time.Hour)
	assigned := expiry.Add(-24 * time.Hour)
	return &access.Record{
		Key:                  access.AdvocateKey(caseID, advocate.UserID),
		AssigneeDetails:      advocate,
		AssignedDate:         assigned,
		AssignmentExpiryDate: &expiry,
	}
}

type maintenanceFixture struct {
	handler     *MaintenanceHandler
	assignments *app.AssignmentService
	repo        *sweepAccessRepo
	store       *eventstore.MemoryStore
}

func newMaintenanceFixture(hearingExpiry access.ExpiryPolicy, users ...*app.DirectoryUser) *maintenanceFixture {
	log := logger.NewNop()
	store := eventstore.NewMemoryStore()
	repo := newSweepAccessRepo()
	projector := access.NewService(repo, log)
	assignments := app.NewAssignmentService(
		store, permission.DefaultAllowlist(), &sweepDirectory{users: users}, projector, nil,
		hearingExpiry, log)
	return &maintenanceFixture{
		handler:     NewMaintenanceHandler(assignments, projector, log),
		assignments: assignments,
		repo:        repo,
		store:       store,
	}
}

func TestAutoUnassignSweep_NothingExpired(t *testing.T) {
	f := newMaintenanceFixture(access.ExpiresAfter(24 * time.Hour))
	require.NoError(t, f.handler.HandleAutoUnassignSweep(context.Background(), nil))
}

func TestAutoUnassignSweep_RemovesExpiredHearingAssignment(t *testing.T) {
	ctx := context.Background()
	chambers := &shared.Organisation{ID: shared.NewID(), Name: "Chambers A"}
	advocate := &app.DirectoryUser{
		Details:      shared.PersonDetails{UserID: shared.NewID(), FirstName: "Ada", LastName: "Jones"},
		Email:        "adv@example.com",
		Groups:       []string{"Advocates"},
		Organisation: chambers,
	}
	clerk := &app.DirectoryUser{
		Details:      shared.PersonDetails{UserID: shared.NewID(), FirstName: "Cal", LastName: "Smith"},
		Email:        "clerk@example.com",
		Groups:       []string{"Chambers Admin"},
		Organisation: chambers,
	}

	// Records born expired: the sweep runs against assignments whose window
	// has already closed.
	f := newMaintenanceFixture(access.ExpiresAfter(-time.Hour), advocate, clerk)
	caseID := shared.NewID()
	hearingID := shared.NewID()

	events, err := f.assignments.AssignHearing(ctx, app.AssignHearingRequest{
		HearingID:      hearingID,
		AssigneeEmail:  advocate.Email,
		AssignorUserID: clerk.Details.UserID,
		Details:        []app.HearingDetail{{CaseID: caseID, HearingID: hearingID}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	expired, err := f.repo.FindExpired(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, expired)
	for _, record := range expired {
		require.NotNil(t, record.HearingID, "hearing assignment record must carry its hearing")
		assert.True(t, record.HearingID.Equals(hearingID))
	}

	require.NoError(t, f.handler.HandleAutoUnassignSweep(ctx, nil))

	// The removal lands on the hearing stream, flagged as automatic.
	stored, err := f.store.Load(ctx, "assignment:hearing-"+hearingID.String())
	require.NoError(t, err)
	var sawRemoval bool
	for _, e := range stored {
		if e.Name == assignment.EventCaseAssignmentToAdvocateRemoved {
			sawRemoval = true
			removed, err := assignment.UnmarshalEvent(e.Name, e.Data)
			require.NoError(t, err)
			assert.True(t, removed.(assignment.CaseAssignmentToAdvocateRemoved).IsAutomaticUnassignment)
		}
	}
	assert.True(t, sawRemoval, "sweep should record the removal on the stream")

	records, err := f.repo.FindByCase(ctx, caseID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAutoUnassignSweep_AlreadyClearedAssignmentIsSilent(t *testing.T) {
	caseID := shared.NewID()
	advocate := &app.DirectoryUser{
		Details: shared.PersonDetails{UserID: shared.NewID(), FirstName: "Ada", LastName: "Jones"},
		Email:   "adv@example.com",
		Groups:  []string{"Advocates"},
	}
	f := newMaintenanceFixture(access.ExpiresAfter(24*time.Hour), advocate)

	// Expired projection row with no assignment left in the stream. The
	// sweep must not write a failure event or error; the purge task is what
	// clears the row.
	require.NoError(t, f.repo.Put(context.Background(), expiredRecord(caseID, advocate.Details)))

	require.NoError(t, f.handler.HandleAutoUnassignSweep(context.Background(), nil))

	events, err := f.store.Load(context.Background(), "assignment:case-"+caseID.String())
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, f.handler.HandlePurgeExpired(context.Background(), nil))
	remaining, err := f.repo.FindExpired(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestPurgeExpired_KeepsPermanentRecords(t *testing.T) {
	caseID := shared.NewID()
	advocate := shared.PersonDetails{UserID: shared.NewID(), FirstName: "Ada", LastName: "Jones"}
	other := shared.PersonDetails{UserID: shared.NewID(), FirstName: "Bea", LastName: "King"}
	f := newMaintenanceFixture(access.ExpiresAfter(24 * time.Hour))

	require.NoError(t, f.repo.Put(context.Background(), expiredRecord(caseID, advocate)))
	require.NoError(t, f.repo.Put(context.Background(), &access.Record{
		Key:             access.AdvocateKey(caseID, other.UserID),
		AssigneeDetails: other,
		AssignedDate:    time.Now().Add(-48 * time.Hour),
	}))

	require.NoError(t, f.handler.HandlePurgeExpired(context.Background(), nil))

	records, err := f.repo.FindByCase(context.Background(), caseID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Key.SubjectID.Equals(other.UserID))
}
