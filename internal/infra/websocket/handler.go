package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/caseaccessio/api/internal/infra/http/middleware"
	"github.com/caseaccessio/api/pkg/apierror"
	"github.com/caseaccessio/api/pkg/logger"
)

// Handler upgrades authenticated requests to websocket connections.
type Handler struct {
	hub      *Hub
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new websocket handler. allowedOrigins follows the CORS
// configuration; "*" or an empty list allows any origin.
func NewHandler(hub *Hub, allowedOrigins []string, log *logger.Logger) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	allowAll := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		origins[origin] = true
	}

	return &Handler{
		hub:    hub,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				return origins[r.Header.Get("Origin")]
			},
		},
	}
}

// ServeWS handles GET /api/v1/ws. The auth middleware has already validated
// the token (bearer header or ?token= for browser clients).
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		h.logger.Warn("websocket connection attempt without auth", "remote_addr", r.RemoteAddr)
		apierror.Unauthorized("Authentication required").WriteJSON(w, middleware.GetRequestID(ctx))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := NewClient(h.hub, conn, userID, h.logger)
	h.hub.RegisterClient(client)

	h.logger.Info("websocket client connected",
		"client_id", client.ID,
		"user_id", userID,
		"remote_addr", r.RemoteAddr,
	)

	go client.WritePump()
	go client.ReadPump()
}
