package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/caseaccessio/api/internal/infra/postgres"
	"github.com/caseaccessio/api/internal/infra/redis"
	"github.com/caseaccessio/api/pkg/apierror"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/logger"
	"github.com/caseaccessio/api/pkg/validator"
)

// messageIDHeader carries the upstream feed message id used for
// de-duplication of redelivered messages.
const messageIDHeader = "X-Message-Id"

// DefenceClientStore is the persistence contract of the defence-client feed.
type DefenceClientStore interface {
	Upsert(ctx context.Context, client *postgres.DefenceClient) error
	Get(ctx context.Context, id shared.ID) (*postgres.DefenceClient, error)
	FindByCase(ctx context.Context, caseID shared.ID) ([]*postgres.DefenceClient, error)
}

// DefenceClientHandler ingests defence clients from the case management feed
// and serves them back per case.
type DefenceClientHandler struct {
	repo        DefenceClientStore
	idempotency *redis.IdempotencyStore
	validator   *validator.Validator
	logger      *logger.Logger
}

// NewDefenceClientHandler creates a new DefenceClientHandler. idempotency may
// be nil, in which case redelivered feed messages are applied again; the
// upsert keeps that safe.
func NewDefenceClientHandler(repo DefenceClientStore, idem *redis.IdempotencyStore, v *validator.Validator, log *logger.Logger) *DefenceClientHandler {
	return &DefenceClientHandler{
		repo:        repo,
		idempotency: idem,
		validator:   v,
		logger:      log,
	}
}

// UpsertDefenceClientRequest is the feed message describing a defence client.
type UpsertDefenceClientRequest struct {
	ID          string     `json:"id" validate:"required,case_uuid"`
	FirstName   string     `json:"first_name" validate:"required,max=255"`
	LastName    string     `json:"last_name" validate:"required,max=255"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	CaseID      string     `json:"case_id" validate:"required,case_uuid"`
}

// DefenceClientResponse represents a defence client.
type DefenceClientResponse struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	CaseID      string     `json:"case_id"`
}

// Upsert handles POST /api/v1/feed/defence-clients
func (h *DefenceClientHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertDefenceClientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	messageID := r.Header.Get(messageIDHeader)
	if messageID != "" && h.idempotency != nil {
		first, err := h.idempotency.MarkProcessed(r.Context(), messageID)
		if err != nil {
			h.logger.Warn("idempotency check failed, processing anyway", "error", err)
		} else if !first {
			respondJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
	}

	client := &postgres.DefenceClient{
		ID:          shared.MustIDFromString(req.ID),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		CaseID:      shared.MustIDFromString(req.CaseID),
	}
	if err := h.repo.Upsert(r.Context(), client); err != nil {
		if messageID != "" && h.idempotency != nil {
			if clearErr := h.idempotency.Clear(r.Context(), messageID); clearErr != nil {
				h.logger.Warn("failed to clear idempotency mark", "error", clearErr)
			}
		}
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// ByCase handles GET /api/v1/cases/{caseId}/defence-clients
func (h *DefenceClientHandler) ByCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := pathID(r, "caseId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	clients, err := h.repo.FindByCase(r.Context(), caseID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]DefenceClientResponse, len(clients))
	for i, c := range clients {
		data[i] = DefenceClientResponse{
			ID:          c.ID.String(),
			FirstName:   c.FirstName,
			LastName:    c.LastName,
			DateOfBirth: c.DateOfBirth,
			CaseID:      c.CaseID.String(),
		}
	}

	respondJSON(w, http.StatusOK, struct {
		Data []DefenceClientResponse `json:"data"`
	}{Data: data})
}

// Get handles GET /api/v1/defence-clients/{clientId}
func (h *DefenceClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	client, err := h.repo.Get(r.Context(), clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if client == nil {
		writeError(w, r, apierror.NotFound("Defence client"))
		return
	}

	respondJSON(w, http.StatusOK, DefenceClientResponse{
		ID:          client.ID.String(),
		FirstName:   client.FirstName,
		LastName:    client.LastName,
		DateOfBirth: client.DateOfBirth,
		CaseID:      client.CaseID.String(),
	})
}
