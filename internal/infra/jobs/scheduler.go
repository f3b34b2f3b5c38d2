package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/caseaccessio/api/pkg/logger"
)

// SchedulerConfig holds the cron expressions of the maintenance tasks.
type SchedulerConfig struct {
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	UnassignSweepSpec string
	PurgeExpiredSpec  string
}

// Scheduler enqueues the maintenance tasks on their cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	client *asynq.Client
	log    *logger.Logger
}

// NewScheduler creates a scheduler with both maintenance tasks registered.
func NewScheduler(cfg SchedulerConfig, log *logger.Logger) (*Scheduler, error) {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	s := &Scheduler{
		cron:   cron.New(),
		client: client,
		log:    log.With("component", "scheduler"),
	}

	if _, err := s.cron.AddFunc(cfg.UnassignSweepSpec, func() {
		s.enqueue(TypeAutoUnassignSweep, NewAutoUnassignSweepTask)
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("schedule %s: %w", TypeAutoUnassignSweep, err)
	}
	if _, err := s.cron.AddFunc(cfg.PurgeExpiredSpec, func() {
		s.enqueue(TypePurgeExpired, NewPurgeExpiredTask)
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("schedule %s: %w", TypePurgeExpired, err)
	}

	return s, nil
}

func (s *Scheduler) enqueue(name string, build func() (*asynq.Task, error)) {
	task, err := build()
	if err != nil {
		s.log.WithError(err).Error("failed to build scheduled task", "task", name)
		return
	}
	info, err := s.client.Enqueue(task)
	if err != nil {
		s.log.WithError(err).Error("failed to enqueue scheduled task", "task", name)
		return
	}
	s.log.Debug("enqueued scheduled task", "task", name, "task_id", info.ID)
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.log.Info("starting scheduler")
	s.cron.Start()
}

// Shutdown stops the cron loop and waits for running enqueues.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.log.Info("stopping scheduler")
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.client.Close()
}
