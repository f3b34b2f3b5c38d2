package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caseaccessio/api/internal/infra/http/handler"
	"github.com/caseaccessio/api/internal/infra/http/middleware"
	"github.com/caseaccessio/api/internal/infra/websocket"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health        *handler.HealthHandler
	Assignment    *handler.AssignmentHandler
	Association   *handler.AssociationHandler
	Grant         *handler.GrantHandler
	Access        *handler.AccessHandler
	DefenceClient *handler.DefenceClientHandler
	WebSocket     *websocket.Handler
}

// RouterConfig carries the auth dependencies of the route tree.
type RouterConfig struct {
	TokenValidator middleware.TokenValidator
	FeedAPIKeyHash string
}

// NewRouter builds the route tree. Global middleware is applied by the
// server; this wires per-group auth.
func NewRouter(h Handlers, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Court and legal-aid feed, authenticated by API key.
		r.Route("/feed", func(r chi.Router) {
			r.Use(middleware.FeedAPIKey(cfg.FeedAPIKeyHash))

			r.Post("/representation-orders", h.Association.RepresentationOrder)
			r.Post("/defendants/{defendantId}/orphaned", h.Association.Orphaned)
			r.Post("/defendants/{defendantId}/locked", h.Association.Locked)
			r.Post("/defence-clients", h.DefenceClient.Upsert)
		})

		// User-facing API, authenticated by JWT.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.TokenValidator))

			r.Route("/cases/{caseId}", func(r chi.Router) {
				r.Post("/assignments", h.Assignment.AssignCase)
				r.Delete("/assignments/{userId}", h.Assignment.RemoveAssignment)
				r.Get("/access", h.Access.ByCase)
				r.Get("/defence-clients", h.DefenceClient.ByCase)
			})

			r.Post("/hearings/{hearingId}/assignments", h.Assignment.AssignHearing)

			r.Route("/defendants/{defendantId}", func(r chi.Router) {
				r.Post("/association", h.Association.Associate)
				r.Delete("/association", h.Association.Disassociate)
			})

			r.Route("/defence-clients/{clientId}", func(r chi.Router) {
				r.Get("/", h.DefenceClient.Get)
				r.Post("/grants", h.Grant.Grant)
				r.Delete("/grants/{userId}", h.Grant.Revoke)
			})

			r.Get("/ws", h.WebSocket.ServeWS)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"NOT_FOUND","code":"NOT_FOUND","message":"Route not found"}`))
	})

	return r
}
