package handler

import (
	"net/http"

	"github.com/caseaccessio/api/internal/app"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/logger"
	"github.com/caseaccessio/api/pkg/validator"
)

// AssociationHandler handles HTTP requests for defendant/defence-organisation
// associations, both the authenticated API and the court-feed endpoints.
type AssociationHandler struct {
	service   *app.AssociationService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewAssociationHandler creates a new AssociationHandler.
func NewAssociationHandler(svc *app.AssociationService, v *validator.Validator, log *logger.Logger) *AssociationHandler {
	return &AssociationHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// --- Request Types ---

// AssociateRequest represents the request to associate a defence organisation
// with a defendant.
type AssociateRequest struct {
	OrganisationID     string `json:"organisation_id" validate:"required,case_uuid"`
	OrganisationName   string `json:"organisation_name" validate:"required,max=255"`
	RepresentationType string `json:"representation_type" validate:"required,representation_type"`
	LAAContractNumber  string `json:"laa_contract_number" validate:"omitempty,laa_contract_number"`
}

// DisassociateRequest represents the request to end an active association.
type DisassociateRequest struct {
	OrganisationID string `json:"organisation_id" validate:"required,case_uuid"`
}

// RepresentationOrderRequest is the legal-aid feed message establishing or
// refreshing an association from a representation order.
type RepresentationOrderRequest struct {
	DefendantID        string `json:"defendant_id" validate:"required,case_uuid"`
	OrganisationID     string `json:"organisation_id" validate:"required,case_uuid"`
	OrganisationName   string `json:"organisation_name" validate:"required,max=255"`
	RepresentationType string `json:"representation_type" validate:"required,representation_type"`
	LAAContractNumber  string `json:"laa_contract_number" validate:"required,laa_contract_number"`
}

// LockAssociationRequest is the legal-aid feed message locking an association
// to a contract.
type LockAssociationRequest struct {
	LAAContractNumber string `json:"laa_contract_number" validate:"required,laa_contract_number"`
}

// --- Handlers ---

// Associate handles POST /api/v1/defendants/{defendantId}/association
func (h *AssociationHandler) Associate(w http.ResponseWriter, r *http.Request) {
	defendantID, err := pathID(r, "defendantId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req AssociateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	events, err := h.service.Associate(r.Context(), app.AssociateRequest{
		DefendantID:        defendantID,
		OrganisationID:     shared.MustIDFromString(req.OrganisationID),
		OrganisationName:   req.OrganisationName,
		RepresentationType: req.RepresentationType,
		LAAContractNumber:  req.LAAContractNumber,
		UserID:             userID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCommandResponse(events))
}

// Disassociate handles DELETE /api/v1/defendants/{defendantId}/association
func (h *AssociationHandler) Disassociate(w http.ResponseWriter, r *http.Request) {
	defendantID, err := pathID(r, "defendantId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req DisassociateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	events, err := h.service.Disassociate(r.Context(), app.DisassociateRequest{
		DefendantID:    defendantID,
		OrganisationID: shared.MustIDFromString(req.OrganisationID),
		UserID:         userID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCommandResponse(events))
}

// RepresentationOrder handles POST /api/v1/feed/representation-orders
func (h *AssociationHandler) RepresentationOrder(w http.ResponseWriter, r *http.Request) {
	var req RepresentationOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	events, err := h.service.AssociateForRepOrder(r.Context(), app.AssociateRequest{
		DefendantID:        shared.MustIDFromString(req.DefendantID),
		OrganisationID:     shared.MustIDFromString(req.OrganisationID),
		OrganisationName:   req.OrganisationName,
		RepresentationType: req.RepresentationType,
		LAAContractNumber:  req.LAAContractNumber,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCommandResponse(events))
}

// Orphaned handles POST /api/v1/feed/defendants/{defendantId}/orphaned
//
// The court feed raises this when a defendant's association was left dangling
// by an upstream merge; the active association is replaced.
func (h *AssociationHandler) Orphaned(w http.ResponseWriter, r *http.Request) {
	defendantID, err := pathID(r, "defendantId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req AssociateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	events, err := h.service.HandleOrphaned(r.Context(), app.AssociateRequest{
		DefendantID:        defendantID,
		OrganisationID:     shared.MustIDFromString(req.OrganisationID),
		OrganisationName:   req.OrganisationName,
		RepresentationType: req.RepresentationType,
		LAAContractNumber:  req.LAAContractNumber,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCommandResponse(events))
}

// Locked handles POST /api/v1/feed/defendants/{defendantId}/locked
func (h *AssociationHandler) Locked(w http.ResponseWriter, r *http.Request) {
	defendantID, err := pathID(r, "defendantId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req LockAssociationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	events, err := h.service.HandleLocked(r.Context(), defendantID, req.LAAContractNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCommandResponse(events))
}
