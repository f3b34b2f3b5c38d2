package main

import (
	"context"
	"net/http"
	"time"

	"github.com/caseaccessio/api/internal/app"
	"github.com/caseaccessio/api/internal/config"
	"github.com/caseaccessio/api/internal/infra/directory"
	httpserver "github.com/caseaccessio/api/internal/infra/http"
	"github.com/caseaccessio/api/internal/infra/http/handler"
	"github.com/caseaccessio/api/internal/infra/jobs"
	"github.com/caseaccessio/api/internal/infra/postgres"
	"github.com/caseaccessio/api/internal/infra/redis"
	"github.com/caseaccessio/api/internal/infra/websocket"
	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/domain/permission"
	"github.com/caseaccessio/api/pkg/jwt"
	"github.com/caseaccessio/api/pkg/logger"
	"github.com/caseaccessio/api/pkg/validator"
)

// dependencies is the wired object graph behind the HTTP server and the
// background workers.
type dependencies struct {
	hub         *websocket.Hub
	router      http.Handler
	maintenance *jobs.MaintenanceHandler
}

func buildDependencies(
	cfg *config.Config,
	db *postgres.DB,
	redisClient *redis.Client,
	allowlist permission.Allowlist,
	policy *config.Policy,
	log *logger.Logger,
) (*dependencies, error) {
	eventStore := postgres.NewEventStore(db)
	accessRepo := postgres.NewAccessRecordRepository(db)
	defenceClients := postgres.NewDefenceClientRepository(db)
	projector := access.NewService(accessRepo, log)

	directoryCache := directory.NewRedisCache(redisClient, cfg.Directory.CacheTTL, log)
	users, err := directory.New(directory.Config{
		BaseURL:     cfg.Directory.BaseURL,
		APIToken:    cfg.Directory.APIToken,
		HTTPTimeout: cfg.Directory.HTTPTimeout,
	}, directoryCache, log)
	if err != nil {
		return nil, err
	}

	hub := websocket.NewHub(log)
	publisher := websocket.NewPublisher(hub)

	assignments := app.NewAssignmentService(
		eventStore, allowlist, users, projector, publisher, policy.HearingExpiryPolicy(), log)
	grants := app.NewGrantService(eventStore, allowlist, users, defenceClients, publisher, log)
	associations := app.NewAssociationService(eventStore, grants, publisher, log)

	tokens := jwt.NewGenerator(jwt.TokenConfig{
		Secret:               cfg.Auth.JWTSecret,
		Issuer:               cfg.Auth.JWTIssuer,
		AccessTokenDuration:  cfg.Auth.AccessTokenDuration,
		RefreshTokenDuration: cfg.Auth.RefreshTokenDuration,
	})

	v := validator.New()

	// Feed messages can be redelivered for up to a day; keep the
	// de-duplication marks slightly longer.
	idempotency := redis.NewIdempotencyStore(redisClient, 36*time.Hour)

	handlers := httpserver.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": pingFunc(db.HealthCheck),
			"redis":    pingFunc(redisClient.Ping),
		}),
		Assignment:    handler.NewAssignmentHandler(assignments, v, log),
		Association:   handler.NewAssociationHandler(associations, v, log),
		Grant:         handler.NewGrantHandler(grants, v, log),
		Access:        handler.NewAccessHandler(projector, log),
		DefenceClient: handler.NewDefenceClientHandler(defenceClients, idempotency, v, log),
		WebSocket:     websocket.NewHandler(hub, cfg.CORS.AllowedOrigins, log),
	}

	router := httpserver.NewRouter(handlers, httpserver.RouterConfig{
		TokenValidator: tokens,
		FeedAPIKeyHash: cfg.Auth.FeedAPIKeyHash,
	})

	return &dependencies{
		hub:         hub,
		router:      router,
		maintenance: jobs.NewMaintenanceHandler(assignments, projector, log),
	}, nil
}

// pingFunc adapts a ping method to the health handler's Pinger interface.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
