package app

import (
	"context"
	"fmt"
	"time"

	"github.com/caseaccessio/api/internal/metrics"
	"github.com/caseaccessio/api/pkg/domain/association"
	"github.com/caseaccessio/api/pkg/domain/grant"
	"github.com/caseaccessio/api/pkg/domain/permission"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/eventstore"
	"github.com/caseaccessio/api/pkg/locking"
	"github.com/caseaccessio/api/pkg/logger"
)

// GrantAccessRequest carries the caller-supplied inputs of a grant. The
// service resolves both parties against the directory, checks the defence
// client exists and reads the defendant's active association before the
// aggregate decides.
type GrantAccessRequest struct {
	DefenceClientID          shared.ID
	GranteeEmail             string
	GranterUserID            shared.ID
	GranteeIsProsecutingCase bool
}

// RemoveGrantAccessRequest carries the inputs of a grant revocation.
type RemoveGrantAccessRequest struct {
	DefenceClientID shared.ID
	GranteeUserID   shared.ID
	LoggedInUserID  shared.ID
}

// GrantService handles material-access grants for defence clients.
type GrantService struct {
	store     eventstore.Store
	locks     *locking.Keyed
	allowlist permission.Allowlist
	directory Directory
	clients   DefenceClients
	publisher EventPublisher
	log       *logger.Logger
}

// NewGrantService creates a new GrantService.
func NewGrantService(
	store eventstore.Store,
	allowlist permission.Allowlist,
	directory Directory,
	clients DefenceClients,
	publisher EventPublisher,
	log *logger.Logger,
) *GrantService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &GrantService{
		store:     store,
		locks:     locking.NewKeyed(),
		allowlist: allowlist,
		directory: directory,
		clients:   clients,
		publisher: publisher,
		log:       log,
	}
}

// GrantAccessToUser grants a permission bundle to a user for a defence
// client. Business rejections come back as events.
func (s *GrantService) GrantAccessToUser(ctx context.Context, req GrantAccessRequest) ([]shared.Event, error) {
	timer := time.Now()
	defer func() {
		metrics.CommandDuration.WithLabelValues("grant", "grant_access").Observe(time.Since(timer).Seconds())
	}()

	exists, err := s.clients.Exists(ctx, req.DefenceClientID)
	if err != nil {
		return nil, fmt.Errorf("check defence client %s: %w", req.DefenceClientID, err)
	}
	grantee, err := s.directory.FindByEmail(ctx, req.GranteeEmail)
	if err != nil {
		return nil, fmt.Errorf("resolve grantee %s: %w", req.GranteeEmail, err)
	}
	granter, err := s.directory.FindByID(ctx, req.GranterUserID)
	if err != nil {
		return nil, fmt.Errorf("resolve granter %s: %w", req.GranterUserID, err)
	}
	associatedOrg, err := s.associatedOrganisation(ctx, req.DefenceClientID)
	if err != nil {
		return nil, err
	}

	cmd := grant.GrantAccessToUserCommand{
		DefenceClientID:          req.DefenceClientID,
		DefenceClientExists:      exists,
		GranteeEmail:             req.GranteeEmail,
		AssociatedOrganisationID: associatedOrg,
		GranteeIsProsecutingCase: req.GranteeIsProsecutingCase,
	}
	if grantee != nil {
		details := grantee.Details
		cmd.Grantee = &details
		cmd.GranteeGroups = grantee.Groups
		cmd.GranteeOrganisation = grantee.Organisation
	}
	if granter != nil {
		details := granter.Details
		cmd.Granter = &details
		cmd.GranterGroups = granter.Groups
		cmd.GranterOrganisation = granter.Organisation
	}

	return s.decide(ctx, req.DefenceClientID, "grant_access", func(agg *grant.Aggregate) ([]shared.Event, error) {
		return agg.GrantAccessToUser(cmd)
	})
}

// RemoveGrantAccessToUser revokes a grantee's bundle. Revoking an untracked
// grantee by an authorised caller is a silent no-op.
func (s *GrantService) RemoveGrantAccessToUser(ctx context.Context, req RemoveGrantAccessRequest) ([]shared.Event, error) {
	timer := time.Now()
	defer func() {
		metrics.CommandDuration.WithLabelValues("grant", "remove_grant").Observe(time.Since(timer).Seconds())
	}()

	grantee, err := s.directory.FindByID(ctx, req.GranteeUserID)
	if err != nil {
		return nil, fmt.Errorf("resolve grantee %s: %w", req.GranteeUserID, err)
	}
	loggedIn, err := s.directory.FindByID(ctx, req.LoggedInUserID)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", req.LoggedInUserID, err)
	}
	associatedOrg, err := s.associatedOrganisation(ctx, req.DefenceClientID)
	if err != nil {
		return nil, err
	}

	cmd := grant.RemoveGrantAccessToUserCommand{
		GranteeUserID:            req.GranteeUserID,
		LoggedInUserID:           req.LoggedInUserID,
		AssociatedOrganisationID: associatedOrg,
	}
	if grantee != nil {
		cmd.GranteeOrganisation = grantee.Organisation
	}
	if loggedIn != nil {
		cmd.LoggedInUserOrganisation = loggedIn.Organisation
		cmd.LoggedInUserGroups = loggedIn.Groups
	}

	return s.decide(ctx, req.DefenceClientID, "remove_grant", func(agg *grant.Aggregate) ([]shared.Event, error) {
		return agg.RemoveGrantAccessToUser(cmd)
	})
}

// RemoveAllGrantees revokes every tracked grantee of a defence client. Called
// when the defendant's organisation is disassociated.
func (s *GrantService) RemoveAllGrantees(ctx context.Context, defenceClientID shared.ID) ([]shared.Event, error) {
	timer := time.Now()
	defer func() {
		metrics.CommandDuration.WithLabelValues("grant", "remove_all_grantees").Observe(time.Since(timer).Seconds())
	}()

	return s.decide(ctx, defenceClientID, "remove_all_grantees", func(agg *grant.Aggregate) ([]shared.Event, error) {
		return agg.RemoveAllGrantees()
	})
}

// associatedOrganisation reads the defendant's association stream for the
// currently associated organisation. Grants key off it to spot in-house
// grantees; nil means no active association.
func (s *GrantService) associatedOrganisation(ctx context.Context, defendantID shared.ID) (*shared.ID, error) {
	stored, err := s.store.Load(ctx, associationStream(defendantID))
	if err != nil {
		return nil, fmt.Errorf("load association stream for %s: %w", defendantID, err)
	}
	history, err := decodeStream(stored, association.UnmarshalEvent)
	if err != nil {
		return nil, fmt.Errorf("decode association stream for %s: %w", defendantID, err)
	}
	active, ok := association.Fold(history).Active()
	if !ok {
		return nil, nil
	}
	orgID := active.OrganisationID
	return &orgID, nil
}

func (s *GrantService) decide(ctx context.Context, defenceClientID shared.ID, command string, fn func(*grant.Aggregate) ([]shared.Event, error)) ([]shared.Event, error) {
	streamID := grantStream(defenceClientID)
	unlock := s.locks.Lock(streamID)
	defer unlock()

	loadStart := time.Now()
	stored, err := s.store.Load(ctx, streamID)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("grant", command, "error").Inc()
		return nil, fmt.Errorf("load stream %s: %w", streamID, err)
	}
	metrics.StreamLoadDuration.WithLabelValues("grant").Observe(time.Since(loadStart).Seconds())

	history, err := decodeStream(stored, grant.UnmarshalEvent)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("grant", command, "error").Inc()
		return nil, fmt.Errorf("decode stream %s: %w", streamID, err)
	}

	agg := grant.NewAggregate(s.allowlist, history)
	events, err := fn(agg)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("grant", command, "error").Inc()
		return nil, err
	}
	if len(events) == 0 {
		metrics.CommandsTotal.WithLabelValues("grant", command, "accepted").Inc()
		return nil, nil
	}

	recorded, err := s.store.Append(ctx, streamID, int64(len(stored)), events)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("grant", command, "error").Inc()
		return nil, fmt.Errorf("append to stream %s: %w", streamID, err)
	}

	s.publisher.Publish(streamID, recorded)
	metrics.CommandsTotal.WithLabelValues("grant", command, outcomeOf(events)).Inc()
	return events, nil
}
