package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/training-enrollment-api/internal/models"
)

type pendingCounter interface {
	CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type digestNotifier interface {
	Notify(ctx context.Context, event models.EnrollmentEvent)
}

// Config controls the pending digest job.
type Config struct {
	Schedule   string
	PendingAge time.Duration
	Timeout    time.Duration
}

// Scheduler runs periodic back-office jobs.
type Scheduler struct {
	cron     *cron.Cron
	counter  pendingCounter
	notifier digestNotifier
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a Scheduler with seconds precision schedules.
func New(counter pendingCounter, notifier digestNotifier, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PendingAge <= 0 {
		cfg.PendingAge = 48 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger = logger.With(zap.String("component", "scheduler"))
	cronLog := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog))),
		counter:  counter,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		if _, err := s.PendingDigest(ctx); err != nil {
			s.logger.Error("pending digest failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register pending digest %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("pending_digest", s.cfg.Schedule))
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// PendingDigest counts enrollments still pending after the configured age
// and reports them. Nothing is emitted when the backlog is empty.
func (s *Scheduler) PendingDigest(ctx context.Context) (int, error) {
	now := s.now().UTC()
	count, err := s.counter.CountPendingOlderThan(ctx, now.Add(-s.cfg.PendingAge))
	if err != nil {
		return 0, err
	}
	if count == 0 {
		s.logger.Debug("no stale pending enrollments")
		return 0, nil
	}

	s.logger.Warn("stale pending enrollments", zap.Int("count", count), zap.Duration("older_than", s.cfg.PendingAge))
	if s.notifier != nil {
		s.notifier.Notify(ctx, models.EnrollmentEvent{
			ID:           uuid.NewString(),
			Type:         models.EventPendingDigest,
			PendingCount: count,
			OccurredAt:   now,
		})
	}
	return count, nil
}

// cronLogger routes cron's own logging into zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
