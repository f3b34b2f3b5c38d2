package handler

import (
	"net/http"
	"time"

	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/logger"
)

// AccessHandler serves read queries over the case-access projection.
type AccessHandler struct {
	service *access.Service
	logger  *logger.Logger
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(svc *access.Service, log *logger.Logger) *AccessHandler {
	return &AccessHandler{service: svc, logger: log}
}

// AdvocateResponse is one advocate sub-record of an organisation entry.
type AdvocateResponse struct {
	UserID       string    `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	AssignedDate time.Time `json:"assigned_date"`
}

// AccessRecordResponse represents one access record of a case.
type AccessRecordResponse struct {
	CaseID                   string             `json:"case_id"`
	SubjectID                string             `json:"subject_id"`
	Kind                     string             `json:"kind"`
	AssigneeUserID           string             `json:"assignee_user_id"`
	AssigneeFirstName        string             `json:"assignee_first_name"`
	AssigneeLastName         string             `json:"assignee_last_name"`
	AssigneeOrganisation     string             `json:"assignee_organisation,omitempty"`
	RepresentingOrganisation string             `json:"representing_organisation,omitempty"`
	AssignedDate             time.Time          `json:"assigned_date"`
	ExpiryDate               *time.Time         `json:"expiry_date,omitempty"`
	Advocates                []AdvocateResponse `json:"advocates,omitempty"`
}

// ByCase handles GET /api/v1/cases/{caseId}/access
func (h *AccessHandler) ByCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := pathID(r, "caseId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := h.service.ByCase(r.Context(), caseID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]AccessRecordResponse, len(records))
	for i, rec := range records {
		data[i] = toAccessRecordResponse(rec)
	}

	respondJSON(w, http.StatusOK, struct {
		Data []AccessRecordResponse `json:"data"`
	}{Data: data})
}

func toAccessRecordResponse(rec *access.Record) AccessRecordResponse {
	resp := AccessRecordResponse{
		CaseID:                   rec.Key.CaseID.String(),
		SubjectID:                rec.Key.SubjectID.String(),
		Kind:                     string(rec.Key.Kind),
		AssigneeUserID:           rec.AssigneeDetails.UserID.String(),
		AssigneeFirstName:        rec.AssigneeDetails.FirstName,
		AssigneeLastName:         rec.AssigneeDetails.LastName,
		AssigneeOrganisation:     rec.AssigneeOrganisation.Name,
		RepresentingOrganisation: rec.RepresentingOrganisation,
		AssignedDate:             rec.AssignedDate,
		ExpiryDate:               rec.AssignmentExpiryDate,
	}
	for _, a := range rec.Advocates {
		resp.Advocates = append(resp.Advocates, AdvocateResponse{
			UserID:       a.Details.UserID.String(),
			FirstName:    a.Details.FirstName,
			LastName:     a.Details.LastName,
			AssignedDate: a.AssignedDate,
		})
	}
	return resp
}
