package handler

import (
	"net/http"

	"github.com/caseaccessio/api/internal/app"
	"github.com/caseaccessio/api/pkg/logger"
	"github.com/caseaccessio/api/pkg/validator"
)

// GrantHandler handles HTTP requests for defence-client access grants.
type GrantHandler struct {
	service   *app.GrantService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewGrantHandler creates a new GrantHandler.
func NewGrantHandler(svc *app.GrantService, v *validator.Validator, log *logger.Logger) *GrantHandler {
	return &GrantHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// GrantAccessRequest represents the request to grant a user access to a
// defence client's material.
type GrantAccessRequest struct {
	GranteeEmail             string `json:"grantee_email" validate:"required,email"`
	GranteeIsProsecutingCase bool   `json:"grantee_is_prosecuting_case"`
}

// Grant handles POST /api/v1/defence-clients/{clientId}/grants
func (h *GrantHandler) Grant(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	granterID, err := currentUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req GrantAccessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	events, err := h.service.GrantAccessToUser(r.Context(), app.GrantAccessRequest{
		DefenceClientID:          clientID,
		GranteeEmail:             req.GranteeEmail,
		GranterUserID:            granterID,
		GranteeIsProsecutingCase: req.GranteeIsProsecutingCase,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCommandResponse(events))
}

// Revoke handles DELETE /api/v1/defence-clients/{clientId}/grants/{userId}
func (h *GrantHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	granteeID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	loggedIn, err := currentUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	events, err := h.service.RemoveGrantAccessToUser(r.Context(), app.RemoveGrantAccessRequest{
		DefenceClientID: clientID,
		GranteeUserID:   granteeID,
		LoggedInUserID:  loggedIn,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCommandResponse(events))
}
