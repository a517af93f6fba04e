package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	errwrap "github.com/pkg/errors"
	"go.uber.org/zap"
)

// Scheduler owns one recurring collection job per started connection.
// Jobs are independent; a manual Collect may overlap a scheduled tick for
// the same connection, which the pipeline tolerates (per-run logs,
// mergeable aggregation) rather than prevents.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[int64]uuid.UUID

	cron      gocron.Scheduler
	collector *CollectorUsecase
	logger    *zap.Logger
}

func NewScheduler(collector *CollectorUsecase, logger *zap.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, errwrap.Wrap(err, "usecase.NewScheduler")
	}
	cron.Start()

	return &Scheduler{
		jobs:      make(map[int64]uuid.UUID),
		cron:      cron,
		collector: collector,
		logger:    logger,
	}, nil
}

// Start begins scheduled collection for the connection at its configured
// interval. Starting an already-started connection reschedules it, so an
// interval change takes effect immediately.
func (s *Scheduler) Start(ctx context.Context, connectionID int64) error {
	funcName := "Scheduler.Start"

	settings, err := s.collector.Settings(ctx, connectionID)
	if err != nil {
		return errwrap.Wrap(err, funcName)
	}
	interval := time.Duration(settings.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID, ok := s.jobs[connectionID]; ok {
		if err := s.cron.RemoveJob(jobID); err != nil {
			s.logger.Warn("stale collection job removal failed",
				zap.Int64("connection_id", connectionID), zap.Error(err))
		}
		delete(s.jobs, connectionID)
	}

	job, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.tick(connectionID) }),
	)
	if err != nil {
		return errwrap.Wrap(err, funcName)
	}
	s.jobs[connectionID] = job.ID()

	s.logger.Info("scheduled collection started",
		zap.Int64("connection_id", connectionID),
		zap.Duration("interval", interval))
	return nil
}

// tick runs one scheduled cycle. Ticks use a fresh background context; the
// per-shape query timeouts bound the work.
func (s *Scheduler) tick(connectionID int64) {
	result, err := s.collector.Collect(context.Background(), connectionID)
	if err != nil {
		s.logger.Error("scheduled collection failed",
			zap.Int64("connection_id", connectionID), zap.Error(err))
		return
	}
	if result.Skipped {
		s.logger.Info("scheduled collection skipped",
			zap.Int64("connection_id", connectionID),
			zap.String("reason", result.Message))
	}
}

// Stop cancels scheduled collection for the connection. Stopping a
// connection that is not running is a no-op.
func (s *Scheduler) Stop(connectionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobID, ok := s.jobs[connectionID]
	if !ok {
		return nil
	}
	delete(s.jobs, connectionID)

	if err := s.cron.RemoveJob(jobID); err != nil {
		return errwrap.Wrap(err, "Scheduler.Stop")
	}
	s.logger.Info("scheduled collection stopped", zap.Int64("connection_id", connectionID))
	return nil
}

// IsRunning reports whether the connection currently has a scheduled job.
func (s *Scheduler) IsRunning(connectionID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[connectionID]
	return ok
}

// Shutdown stops all jobs and the underlying scheduler.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	s.jobs = make(map[int64]uuid.UUID)
	s.mu.Unlock()
	return errwrap.Wrap(s.cron.Shutdown(), "Scheduler.Shutdown")
}
