package app

import (
	"context"
	"fmt"
	"time"

	"github.com/caseaccessio/api/internal/metrics"
	"github.com/caseaccessio/api/pkg/domain/association"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/eventstore"
	"github.com/caseaccessio/api/pkg/locking"
	"github.com/caseaccessio/api/pkg/logger"
)

// GranteeSweeper revokes every tracked grantee of a defence client. The
// association service invokes it whenever an organisation loses its
// association, so stale grants never outlive the representation.
type GranteeSweeper interface {
	RemoveAllGrantees(ctx context.Context, defenceClientID shared.ID) ([]shared.Event, error)
}

// AssociateRequest carries the inputs of an association command. The same
// shape serves the standard, representation-order and orphan-repair channels.
type AssociateRequest struct {
	DefendantID        shared.ID
	OrganisationID     shared.ID
	OrganisationName   string
	RepresentationType string
	LAAContractNumber  string
	UserID             shared.ID
}

// DisassociateRequest carries the inputs of a disassociation command.
type DisassociateRequest struct {
	DefendantID    shared.ID
	OrganisationID shared.ID
	UserID         shared.ID
}

// AssociationService handles the lifecycle of defendant/defence-organisation
// associations.
type AssociationService struct {
	store     eventstore.Store
	locks     *locking.Keyed
	sweeper   GranteeSweeper
	publisher EventPublisher
	log       *logger.Logger
}

// NewAssociationService creates a new AssociationService.
func NewAssociationService(store eventstore.Store, sweeper GranteeSweeper, publisher EventPublisher, log *logger.Logger) *AssociationService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &AssociationService{
		store:     store,
		locks:     locking.NewKeyed(),
		sweeper:   sweeper,
		publisher: publisher,
		log:       log,
	}
}

// Associate associates an organisation with a defendant, implicitly
// disassociating a different active organisation first.
func (s *AssociationService) Associate(ctx context.Context, req AssociateRequest) ([]shared.Event, error) {
	return s.decide(ctx, req.DefendantID, "associate", func(agg *association.Aggregate) ([]shared.Event, error) {
		return agg.AssociateOrganisation(s.associateCommand(req))
	})
}

// AssociateForRepOrder is the statutory representation-order channel, where a
// changed LAA reference for the active organisation is accepted rather than
// rejected.
func (s *AssociationService) AssociateForRepOrder(ctx context.Context, req AssociateRequest) ([]shared.Event, error) {
	return s.decide(ctx, req.DefendantID, "associate_rep_order", func(agg *association.Aggregate) ([]shared.Event, error) {
		return agg.AssociateOrganisationForRepOrder(s.associateCommand(req))
	})
}

// Disassociate ends the defendant's active association and sweeps the
// organisation's grants.
func (s *AssociationService) Disassociate(ctx context.Context, req DisassociateRequest) ([]shared.Event, error) {
	return s.decide(ctx, req.DefendantID, "disassociate", func(agg *association.Aggregate) ([]shared.Event, error) {
		return agg.DisassociateOrganisation(association.DisassociateOrganisationCommand{
			DefendantID:    req.DefendantID,
			OrganisationID: req.OrganisationID,
			UserID:         req.UserID,
			Timestamp:      time.Now().UTC(),
		})
	})
}

// HandleOrphaned repairs an association that arrived before the defendant's
// case record existed locally.
func (s *AssociationService) HandleOrphaned(ctx context.Context, req AssociateRequest) ([]shared.Event, error) {
	return s.decide(ctx, req.DefendantID, "handle_orphaned", func(agg *association.Aggregate) ([]shared.Event, error) {
		return agg.HandleOrphanedDefendantAssociation(s.associateCommand(req))
	})
}

// HandleLocked records a representation order locking the defendant's
// association.
func (s *AssociationService) HandleLocked(ctx context.Context, defendantID shared.ID, laaContractNumber string) ([]shared.Event, error) {
	return s.decide(ctx, defendantID, "handle_locked", func(agg *association.Aggregate) ([]shared.Event, error) {
		return agg.HandleDefendantDefenceAssociationLocked(defendantID, laaContractNumber)
	})
}

func (s *AssociationService) associateCommand(req AssociateRequest) association.AssociateOrganisationCommand {
	return association.AssociateOrganisationCommand{
		DefendantID:        req.DefendantID,
		OrganisationID:     req.OrganisationID,
		OrganisationName:   req.OrganisationName,
		RepresentationType: req.RepresentationType,
		LAAContractNumber:  req.LAAContractNumber,
		UserID:             req.UserID,
		Timestamp:          time.Now().UTC(),
	}
}

func (s *AssociationService) decide(ctx context.Context, defendantID shared.ID, command string, fn func(*association.Aggregate) ([]shared.Event, error)) ([]shared.Event, error) {
	timer := time.Now()
	defer func() {
		metrics.CommandDuration.WithLabelValues("association", command).Observe(time.Since(timer).Seconds())
	}()

	streamID := associationStream(defendantID)
	unlock := s.locks.Lock(streamID)
	defer unlock()

	loadStart := time.Now()
	stored, err := s.store.Load(ctx, streamID)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("association", command, "error").Inc()
		return nil, fmt.Errorf("load stream %s: %w", streamID, err)
	}
	metrics.StreamLoadDuration.WithLabelValues("association").Observe(time.Since(loadStart).Seconds())

	history, err := decodeStream(stored, association.UnmarshalEvent)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("association", command, "error").Inc()
		return nil, fmt.Errorf("decode stream %s: %w", streamID, err)
	}

	agg := association.NewAggregate(history)
	events, err := fn(agg)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("association", command, "error").Inc()
		return nil, err
	}
	if len(events) == 0 {
		metrics.CommandsTotal.WithLabelValues("association", command, "accepted").Inc()
		return nil, nil
	}

	recorded, err := s.store.Append(ctx, streamID, int64(len(stored)), events)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("association", command, "error").Inc()
		return nil, fmt.Errorf("append to stream %s: %w", streamID, err)
	}

	s.publisher.Publish(streamID, recorded)
	metrics.CommandsTotal.WithLabelValues("association", command, outcomeOf(events)).Inc()

	s.sweepDisassociated(ctx, defendantID, events)
	return events, nil
}

// sweepDisassociated revokes the grants of a defendant whose active
// association just ended. The sweep is a follow-on command on the grant
// stream; a failure there is logged and left to the next sweep, never rolled
// back into the association stream.
func (s *AssociationService) sweepDisassociated(ctx context.Context, defendantID shared.ID, events []shared.Event) {
	if s.sweeper == nil {
		return
	}
	for _, event := range events {
		if _, ok := event.(association.DefenceOrganisationDisassociated); ok {
			if _, err := s.sweeper.RemoveAllGrantees(ctx, defendantID); err != nil {
				s.log.WithError(err).Error("grant sweep after disassociation failed",
					"defendant_id", defendantID.String())
			}
			return
		}
	}
}
