package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caseaccessio/api/internal/infra/http/middleware"
	"github.com/caseaccessio/api/pkg/apierror"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/validator"
)

// EventEnvelope is one emitted domain event in a command response.
type EventEnvelope struct {
	Event   string       `json:"event"`
	Failure bool         `json:"failure,omitempty"`
	Data    shared.Event `json:"data"`
}

// CommandResponse reports the outcome of a command. Accepted is false when
// the command was rejected or was an idempotent repeat; the events still
// record what happened.
type CommandResponse struct {
	Accepted bool            `json:"accepted"`
	Events   []EventEnvelope `json:"events"`
}

func toCommandResponse(events []shared.Event) CommandResponse {
	resp := CommandResponse{Accepted: true, Events: make([]EventEnvelope, len(events))}
	if len(events) == 0 {
		resp.Accepted = false
		resp.Events = []EventEnvelope{}
		return resp
	}
	for i, event := range events {
		env := EventEnvelope{Event: event.EventName(), Data: event}
		if failure, ok := event.(shared.FailureEvent); ok && failure.Failure() {
			env.Failure = true
			resp.Accepted = false
		}
		resp.Events[i] = env
	}
	return resp
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierror.BadRequest("Invalid request body")
	}
	return nil
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apiErrors := make([]apierror.ValidationError, len(validationErrors))
		for i, ve := range validationErrors {
			apiErrors[i] = apierror.ValidationError{Field: ve.Field, Message: ve.Message}
		}
		apierror.ValidationFailed("Validation failed", apiErrors).WriteJSON(w, requestID)
		return
	}
	apierror.BadRequest("Validation error").WriteJSON(w, requestID)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apierror.FromError(err).WriteJSON(w, middleware.GetRequestID(r.Context()))
}

// pathParam extracts a URL path parameter, trying chi first and falling
// back to the stdlib router.
func pathParam(r *http.Request, key string) string {
	if val := chi.URLParam(r, key); val != "" {
		return val
	}
	return r.PathValue(key)
}

// pathID parses a chi URL parameter as a UUID.
func pathID(r *http.Request, name string) (shared.ID, error) {
	raw := pathParam(r, name)
	id, err := shared.IDFromString(raw)
	if err != nil {
		return shared.ID{}, apierror.BadRequest("Invalid " + name)
	}
	return id, nil
}

// currentUserID resolves the authenticated user from the request context.
func currentUserID(r *http.Request) (shared.ID, error) {
	raw := middleware.GetUserID(r.Context())
	id, err := shared.IDFromString(raw)
	if err != nil {
		return shared.ID{}, apierror.Unauthorized("Invalid user identity")
	}
	return id, nil
}
