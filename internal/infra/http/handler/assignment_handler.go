package handler

import (
	"net/http"

	"github.com/caseaccessio/api/internal/app"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/logger"
	"github.com/caseaccessio/api/pkg/validator"
)

// AssignmentHandler handles HTTP requests for case and hearing assignments.
type AssignmentHandler struct {
	service   *app.AssignmentService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(svc *app.AssignmentService, v *validator.Validator, log *logger.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// --- Request Types ---

// AssignCaseRequest represents the request to assign a user to a case.
type AssignCaseRequest struct {
	AssigneeEmail                string `json:"assignee_email" validate:"required,email"`
	AssigneeIsDefendingCase      bool   `json:"assignee_is_defending_case"`
	IsPolice                     bool   `json:"is_police"`
	IsCPS                        bool   `json:"is_cps"`
	RepresentingOrganisationCode string `json:"representing_organisation_code" validate:"max=64"`
}

// HearingDetailRequest is one case element of a hearing-listing request.
type HearingDetailRequest struct {
	CaseID        string `json:"case_id" validate:"required,case_uuid"`
	ErrorCode     string `json:"error_code" validate:"max=64"`
	FailureReason string `json:"failure_reason" validate:"max=512"`
}

// AssignHearingRequest represents the request to assign a user to every case
// of a hearing listing.
type AssignHearingRequest struct {
	AssigneeEmail                string                 `json:"assignee_email" validate:"required,email"`
	AssigneeIsDefendingCase      bool                   `json:"assignee_is_defending_case"`
	IsPolice                     bool                   `json:"is_police"`
	IsCPS                        bool                   `json:"is_cps"`
	RepresentingOrganisationCode string                 `json:"representing_organisation_code" validate:"max=64"`
	Details                      []HearingDetailRequest `json:"details" validate:"required,min=1,max=200,dive"`
}

// --- Handlers ---

// AssignCase handles POST /api/v1/cases/{caseId}/assignments
func (h *AssignmentHandler) AssignCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := pathID(r, "caseId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	assignorID, err := currentUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req AssignCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	events, err := h.service.AssignCase(r.Context(), app.AssignCaseRequest{
		CaseID:                       caseID,
		AssigneeEmail:                req.AssigneeEmail,
		AssigneeIsDefendingCase:      req.AssigneeIsDefendingCase,
		AssignorUserID:               assignorID,
		IsPolice:                     req.IsPolice,
		IsCPS:                        req.IsCPS,
		RepresentingOrganisationCode: req.RepresentingOrganisationCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCommandResponse(events))
}

// RemoveAssignment handles DELETE /api/v1/cases/{caseId}/assignments/{userId}
func (h *AssignmentHandler) RemoveAssignment(w http.ResponseWriter, r *http.Request) {
	caseID, err := pathID(r, "caseId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	assigneeID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	removedBy, err := currentUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	events, err := h.service.RemoveCaseAssignment(r.Context(), app.RemoveCaseAssignmentRequest{
		CaseID:          caseID,
		AssigneeUserID:  assigneeID,
		RemovedByUserID: removedBy,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCommandResponse(events))
}

// AssignHearing handles POST /api/v1/hearings/{hearingId}/assignments
func (h *AssignmentHandler) AssignHearing(w http.ResponseWriter, r *http.Request) {
	hearingID, err := pathID(r, "hearingId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	assignorID, err := currentUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req AssignHearingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	details := make([]app.HearingDetail, len(req.Details))
	for i, d := range req.Details {
		caseID, err := shared.IDFromString(d.CaseID)
		if err != nil {
			writeValidationError(w, r, err)
			return
		}
		details[i] = app.HearingDetail{
			CaseID:        caseID,
			HearingID:     hearingID,
			ErrorCode:     d.ErrorCode,
			FailureReason: d.FailureReason,
		}
	}

	events, err := h.service.AssignHearing(r.Context(), app.AssignHearingRequest{
		HearingID:                    hearingID,
		AssigneeEmail:                req.AssigneeEmail,
		AssigneeIsDefendingCase:      req.AssigneeIsDefendingCase,
		AssignorUserID:               assignorID,
		IsPolice:                     req.IsPolice,
		IsCPS:                        req.IsCPS,
		RepresentingOrganisationCode: req.RepresentingOrganisationCode,
		Details:                      details,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCommandResponse(events))
}
