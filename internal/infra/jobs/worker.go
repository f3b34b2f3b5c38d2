package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/caseaccessio/api/pkg/logger"
)

// WorkerConfig holds the configuration for the job worker.
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// Worker processes background jobs.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

// NewWorker creates a new background job worker with the maintenance
// handlers registered.
func NewWorker(cfg WorkerConfig, handler *MaintenanceHandler, log *logger.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"default":        5,
				queueMaintenance: 2,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAutoUnassignSweep, handler.HandleAutoUnassignSweep)
	mux.HandleFunc(TypePurgeExpired, handler.HandlePurgeExpired)

	return &Worker{
		server: server,
		mux:    mux,
		log:    log.With("component", "job_worker"),
	}
}

// Start begins processing jobs. Blocks until Shutdown is called.
func (w *Worker) Start() error {
	w.log.Info("starting job worker")
	if err := w.server.Run(w.mux); err != nil {
		return fmt.Errorf("job worker: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the worker, waiting for in-flight tasks.
func (w *Worker) Shutdown(_ context.Context) error {
	w.log.Info("stopping job worker")
	w.server.Shutdown()
	return nil
}
