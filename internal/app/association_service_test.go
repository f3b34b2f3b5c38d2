package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseaccessio/api/pkg/domain/association"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/eventstore"
	"github.com/caseaccessio/api/pkg/logger"
)

type recordingSweeper struct {
	mu    sync.Mutex
	swept []shared.ID
}

func (s *recordingSweeper) RemoveAllGrantees(_ context.Context, id shared.ID) ([]shared.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swept = append(s.swept, id)
	return nil, nil
}

func (s *recordingSweeper) sweptIDs() []shared.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.ID(nil), s.swept...)
}

func associateRequest(defendantID shared.ID) AssociateRequest {
	return AssociateRequest{
		DefendantID:        defendantID,
		OrganisationID:     shared.NewID(),
		OrganisationName:   "Firm A",
		RepresentationType: "REPRESENTATION_ORDER",
		LAAContractNumber:  "1A234B",
		UserID:             shared.NewID(),
	}
}

func TestAssociationService(t *testing.T) {
	ctx := context.Background()
	newFixture := func() (*AssociationService, *eventstore.MemoryStore, *recordingSweeper) {
		store := eventstore.NewMemoryStore()
		sweeper := &recordingSweeper{}
		return NewAssociationService(store, sweeper, nil, logger.NewNop()), store, sweeper
	}

	t.Run("first association emits a single event", func(t *testing.T) {
		service, store, sweeper := newFixture()
		defendantID := shared.NewID()

		events, err := service.Associate(ctx, associateRequest(defendantID))
		require.NoError(t, err)
		require.Len(t, events, 1)
		_, ok := events[0].(association.DefenceOrganisationAssociated)
		require.True(t, ok, "expected DefenceOrganisationAssociated, got %T", events[0])

		stored, err := store.Load(ctx, associationStream(defendantID))
		require.NoError(t, err)
		assert.Len(t, stored, 1)
		assert.Empty(t, sweeper.sweptIDs())
	})

	t.Run("switching organisations disassociates first and sweeps grants", func(t *testing.T) {
		service, _, sweeper := newFixture()
		defendantID := shared.NewID()
		first := associateRequest(defendantID)

		_, err := service.Associate(ctx, first)
		require.NoError(t, err)

		second := associateRequest(defendantID)
		events, err := service.Associate(ctx, second)
		require.NoError(t, err)
		require.Len(t, events, 2)
		disassociated, ok := events[0].(association.DefenceOrganisationDisassociated)
		require.True(t, ok, "expected DefenceOrganisationDisassociated first, got %T", events[0])
		assert.True(t, disassociated.OrganisationID.Equals(first.OrganisationID))
		_, ok = events[1].(association.DefenceOrganisationAssociated)
		require.True(t, ok, "expected DefenceOrganisationAssociated second, got %T", events[1])

		swept := sweeper.sweptIDs()
		require.Len(t, swept, 1)
		assert.True(t, swept[0].Equals(defendantID))
	})

	t.Run("re-associating the active organisation is rejected", func(t *testing.T) {
		service, _, sweeper := newFixture()
		req := associateRequest(shared.NewID())

		_, err := service.Associate(ctx, req)
		require.NoError(t, err)
		events, err := service.Associate(ctx, req)
		require.NoError(t, err)
		require.Len(t, events, 1)
		failed, ok := events[0].(association.DefenceAssociationFailed)
		require.True(t, ok)
		assert.Equal(t, association.ReasonAlreadyAssociated, failed.Reason)
		assert.Empty(t, sweeper.sweptIDs())
	})

	t.Run("rep order accepts a changed LAA reference", func(t *testing.T) {
		service, _, _ := newFixture()
		req := associateRequest(shared.NewID())

		_, err := service.AssociateForRepOrder(ctx, req)
		require.NoError(t, err)

		req.LAAContractNumber = "9Z876Y"
		events, err := service.AssociateForRepOrder(ctx, req)
		require.NoError(t, err)
		require.Len(t, events, 1)
		received, ok := events[0].(association.DefenceOrganisationLAAReferenceReceived)
		require.True(t, ok, "expected DefenceOrganisationLAAReferenceReceived, got %T", events[0])
		assert.Equal(t, "9Z876Y", received.LAAContractNumber)
	})

	t.Run("disassociation sweeps grants", func(t *testing.T) {
		service, _, sweeper := newFixture()
		req := associateRequest(shared.NewID())

		_, err := service.Associate(ctx, req)
		require.NoError(t, err)

		events, err := service.Disassociate(ctx, DisassociateRequest{
			DefendantID:    req.DefendantID,
			OrganisationID: req.OrganisationID,
			UserID:         req.UserID,
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		_, ok := events[0].(association.DefenceOrganisationDisassociated)
		require.True(t, ok)
		assert.Len(t, sweeper.sweptIDs(), 1)
	})

	t.Run("disassociating a non-active organisation fails without a sweep", func(t *testing.T) {
		service, _, sweeper := newFixture()

		events, err := service.Disassociate(ctx, DisassociateRequest{
			DefendantID:    shared.NewID(),
			OrganisationID: shared.NewID(),
			UserID:         shared.NewID(),
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		failed, ok := events[0].(association.DefenceDisassociationFailed)
		require.True(t, ok)
		assert.Equal(t, association.ReasonNotAssociated, failed.Reason)
		assert.Empty(t, sweeper.sweptIDs())
	})

	t.Run("locked handler records the representation order", func(t *testing.T) {
		service, store, _ := newFixture()
		defendantID := shared.NewID()

		events, err := service.HandleLocked(ctx, defendantID, "1A234B")
		require.NoError(t, err)
		require.Len(t, events, 1)
		locked, ok := events[0].(association.DefendantDefenceAssociationLocked)
		require.True(t, ok)
		assert.Equal(t, "1A234B", locked.LAAContractNumber)

		stored, err := store.Load(ctx, associationStream(defendantID))
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, association.EventDefendantAssociationLockedForLAA, stored[0].Name)
	})

	t.Run("orphan repair replaces an active association", func(t *testing.T) {
		service, _, sweeper := newFixture()
		req := associateRequest(shared.NewID())

		_, err := service.Associate(ctx, req)
		require.NoError(t, err)

		repair := associateRequest(req.DefendantID)
		events, err := service.HandleOrphaned(ctx, repair)
		require.NoError(t, err)
		require.Len(t, events, 2)
		_, ok := events[0].(association.DefenceOrganisationDisassociated)
		require.True(t, ok)
		_, ok = events[1].(association.DefenceOrganisationAssociated)
		require.True(t, ok)
		assert.Len(t, sweeper.sweptIDs(), 1)
	})
}
