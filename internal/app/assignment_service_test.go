package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/domain/assignment"
	"github.com/caseaccessio/api/pkg/domain/permission"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/eventstore"
	"github.com/caseaccessio/api/pkg/logger"
)

type assignmentFixture struct {
	service *AssignmentService
	store   *eventstore.MemoryStore
	repo    *memoryAccessRepo
}

func newAssignmentFixture(t *testing.T, users ...*DirectoryUser) *assignmentFixture {
	t.Helper()
	store := eventstore.NewMemoryStore()
	repo := newMemoryAccessRepo()
	log := logger.NewNop()
	projector := access.NewService(repo, log)
	service := NewAssignmentService(
		store,
		permission.DefaultAllowlist(),
		newFakeDirectory(users...),
		projector,
		nil,
		access.ExpiresAfter(28*24*time.Hour),
		log,
	)
	return &assignmentFixture{service: service, store: store, repo: repo}
}

func TestAssignmentService_AssignCase(t *testing.T) {
	ctx := context.Background()

	t.Run("advocate assignment projects an advocate record", func(t *testing.T) {
		chambers := organisation("Chambers A")
		advocate := directoryUser("adv@example.com", "Ada", "Jones", chambers, "Advocates")
		assignor := directoryUser("clerk@example.com", "Cal", "Smith", chambers, "Chambers Admin")
		f := newAssignmentFixture(t, advocate, assignor)
		caseID := shared.NewID()

		events, err := f.service.AssignCase(ctx, AssignCaseRequest{
			CaseID:         caseID,
			AssigneeEmail:  advocate.Email,
			AssignorUserID: assignor.Details.UserID,
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assigned, ok := events[0].(assignment.CaseAssignedToAdvocate)
		require.True(t, ok, "expected CaseAssignedToAdvocate, got %T", events[0])
		assert.True(t, assigned.AssigneeDetails.UserID.Equals(advocate.Details.UserID))

		record, err := f.repo.Get(ctx, access.AdvocateKey(caseID, advocate.Details.UserID))
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.True(t, record.Permanent())

		orgRecord, err := f.repo.Get(ctx, access.OrganisationKey(caseID, chambers.ID))
		require.NoError(t, err)
		require.NotNil(t, orgRecord)
		assert.True(t, orgRecord.HasAdvocate(advocate.Details.UserID))
	})

	t.Run("defence lawyer routes to their organisation", func(t *testing.T) {
		firm := organisation("Firm B")
		lawyer := directoryUser("dl@example.com", "Dee", "Law", firm, "Defence Lawyers")
		assignor := directoryUser("boss@example.com", "Bo", "Ss", firm, "Defence Lawyers")
		f := newAssignmentFixture(t, lawyer, assignor)
		caseID := shared.NewID()

		events, err := f.service.AssignCase(ctx, AssignCaseRequest{
			CaseID:         caseID,
			AssigneeEmail:  lawyer.Email,
			AssignorUserID: assignor.Details.UserID,
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		_, ok := events[0].(assignment.CaseAssignedToOrganisation)
		require.True(t, ok, "expected CaseAssignedToOrganisation, got %T", events[0])

		record, err := f.repo.Get(ctx, access.OrganisationKey(caseID, firm.ID))
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.True(t, record.Permanent())
	})

	t.Run("unknown assignee yields UserNotFound", func(t *testing.T) {
		assignor := directoryUser("clerk@example.com", "Cal", "Smith", organisation("Chambers A"), "Chambers Admin")
		f := newAssignmentFixture(t, assignor)

		events, err := f.service.AssignCase(ctx, AssignCaseRequest{
			CaseID:         shared.NewID(),
			AssigneeEmail:  "ghost@example.com",
			AssignorUserID: assignor.Details.UserID,
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		notFound, ok := events[0].(assignment.UserNotFound)
		require.True(t, ok)
		assert.Equal(t, "ghost@example.com", notFound.Email)
	})

	t.Run("repeat assignment is idempotent", func(t *testing.T) {
		chambers := organisation("Chambers A")
		advocate := directoryUser("adv@example.com", "Ada", "Jones", chambers, "Advocates")
		assignor := directoryUser("clerk@example.com", "Cal", "Smith", chambers, "Chambers Admin")
		f := newAssignmentFixture(t, advocate, assignor)
		caseID := shared.NewID()
		req := AssignCaseRequest{
			CaseID:         caseID,
			AssigneeEmail:  advocate.Email,
			AssignorUserID: assignor.Details.UserID,
		}

		_, err := f.service.AssignCase(ctx, req)
		require.NoError(t, err)
		events, err := f.service.AssignCase(ctx, req)
		require.NoError(t, err)
		require.Len(t, events, 1)
		_, ok := events[0].(assignment.UserAlreadyAssigned)
		assert.True(t, ok, "expected UserAlreadyAssigned, got %T", events[0])

		stored, err := f.store.Load(ctx, assignmentStream(caseID))
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})
}

func TestAssignmentService_RemoveCaseAssignment(t *testing.T) {
	ctx := context.Background()

	t.Run("removing the only advocate removes the organisation record too", func(t *testing.T) {
		chambers := organisation("Chambers A")
		advocate := directoryUser("adv@example.com", "Ada", "Jones", chambers, "Advocates")
		assignor := directoryUser("clerk@example.com", "Cal", "Smith", chambers, "Chambers Admin")
		f := newAssignmentFixture(t, advocate, assignor)
		caseID := shared.NewID()

		_, err := f.service.AssignCase(ctx, AssignCaseRequest{
			CaseID:         caseID,
			AssigneeEmail:  advocate.Email,
			AssignorUserID: assignor.Details.UserID,
		})
		require.NoError(t, err)

		events, err := f.service.RemoveCaseAssignment(ctx, RemoveCaseAssignmentRequest{
			CaseID:          caseID,
			AssigneeUserID:  advocate.Details.UserID,
			RemovedByUserID: assignor.Details.UserID,
		})
		require.NoError(t, err)
		require.NotEmpty(t, events)
		_, ok := events[0].(assignment.CaseAssignmentToAdvocateRemoved)
		require.True(t, ok, "expected CaseAssignmentToAdvocateRemoved, got %T", events[0])

		record, err := f.repo.Get(ctx, access.AdvocateKey(caseID, advocate.Details.UserID))
		require.NoError(t, err)
		assert.Nil(t, record)
		orgRecord, err := f.repo.Get(ctx, access.OrganisationKey(caseID, chambers.ID))
		require.NoError(t, err)
		assert.Nil(t, orgRecord)
	})

	t.Run("automatic sweep is silent when nothing is assigned", func(t *testing.T) {
		advocate := directoryUser("adv@example.com", "Ada", "Jones", organisation("Chambers A"), "Advocates")
		f := newAssignmentFixture(t, advocate)
		caseID := shared.NewID()

		events, err := f.service.RemoveCaseAssignment(ctx, RemoveCaseAssignmentRequest{
			CaseID:                  caseID,
			AssigneeUserID:          advocate.Details.UserID,
			RemovedByUserID:         advocate.Details.UserID,
			IsAutomaticUnassignment: true,
		})
		require.NoError(t, err)
		assert.Empty(t, events)

		stored, err := f.store.Load(ctx, assignmentStream(caseID))
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("manual removal of an unassigned user is recorded", func(t *testing.T) {
		advocate := directoryUser("adv@example.com", "Ada", "Jones", organisation("Chambers A"), "Advocates")
		f := newAssignmentFixture(t, advocate)

		events, err := f.service.RemoveCaseAssignment(ctx, RemoveCaseAssignmentRequest{
			CaseID:          shared.NewID(),
			AssigneeUserID:  advocate.Details.UserID,
			RemovedByUserID: advocate.Details.UserID,
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		notAssigned, ok := events[0].(assignment.UserNotAssigned)
		require.True(t, ok)
		assert.Equal(t, assignment.ErrorCodeUserNotAssigned, notAssigned.ErrorCode)
	})
}

func TestAssignmentService_AssignHearing(t *testing.T) {
	ctx := context.Background()

	t.Run("batch projects expiring records for every case", func(t *testing.T) {
		chambers := organisation("Chambers A")
		advocate := directoryUser("adv@example.com", "Ada", "Jones", chambers, "Advocates")
		assignor := directoryUser("clerk@example.com", "Cal", "Smith", chambers, "Chambers Admin")
		f := newAssignmentFixture(t, advocate, assignor)
		hearingID := shared.NewID()
		caseA, caseB := shared.NewID(), shared.NewID()

		events, err := f.service.AssignHearing(ctx, AssignHearingRequest{
			HearingID:      hearingID,
			AssigneeEmail:  advocate.Email,
			AssignorUserID: assignor.Details.UserID,
			Details: []HearingDetail{
				{CaseID: caseA, HearingID: hearingID},
				{CaseID: caseB, HearingID: hearingID},
			},
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		batch, ok := events[0].(assignment.CasesAssignedToAdvocate)
		require.True(t, ok, "expected CasesAssignedToAdvocate, got %T", events[0])
		assert.Len(t, batch.Assignments, 2)

		for _, caseID := range []shared.ID{caseA, caseB} {
			record, err := f.repo.Get(ctx, access.AdvocateKey(caseID, advocate.Details.UserID))
			require.NoError(t, err)
			require.NotNil(t, record)
			assert.False(t, record.Permanent())
		}
	})

	t.Run("one failed element fails the whole batch", func(t *testing.T) {
		chambers := organisation("Chambers A")
		advocate := directoryUser("adv@example.com", "Ada", "Jones", chambers, "Advocates")
		assignor := directoryUser("clerk@example.com", "Cal", "Smith", chambers, "Chambers Admin")
		f := newAssignmentFixture(t, advocate, assignor)
		hearingID := shared.NewID()
		caseA, caseB := shared.NewID(), shared.NewID()

		events, err := f.service.AssignHearing(ctx, AssignHearingRequest{
			HearingID:      hearingID,
			AssigneeEmail:  advocate.Email,
			AssignorUserID: assignor.Details.UserID,
			Details: []HearingDetail{
				{CaseID: caseA, HearingID: hearingID},
				{CaseID: caseB, HearingID: hearingID, ErrorCode: "CASE_NOT_FOUND", FailureReason: "unknown case"},
			},
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		failed, ok := events[0].(assignment.CaseAssignmentsByHearingListingFailed)
		require.True(t, ok, "expected CaseAssignmentsByHearingListingFailed, got %T", events[0])
		require.Len(t, failed.AssignmentErrors, 1)
		assert.Equal(t, "CASE_NOT_FOUND", failed.AssignmentErrors[0].ErrorCode)

		record, err := f.repo.Get(ctx, access.AdvocateKey(caseA, advocate.Details.UserID))
		require.NoError(t, err)
		assert.Nil(t, record, "no projection for a failed batch")
	})

	t.Run("missing hearing id is a validation error", func(t *testing.T) {
		f := newAssignmentFixture(t)

		_, err := f.service.AssignHearing(ctx, AssignHearingRequest{
			AssigneeEmail: "adv@example.com",
		})
		require.ErrorIs(t, err, shared.ErrValidation)
	})
}
