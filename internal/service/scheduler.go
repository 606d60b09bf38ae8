package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"github.com/kursadbilgin/crm-mailer/internal/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultQueueDrainInterval = 30 * time.Second
	defaultReminderInterval   = time.Hour
	defaultPruneHour          = 2
	defaultPruneMaxAgeDays    = 7

	activityQueueDrain   = "queue_drain"
	activityPrune        = "prune"
	activityReminderScan = "reminder_scan"
)

var ErrSchedulerRunning = errors.New("scheduler already running")

type queueWorker interface {
	ProcessQueue(ctx context.Context) (domain.ProcessStats, error)
	Prune(ctx context.Context, maxAgeDays int) (int, error)
}

type taskScanner interface {
	Scan(ctx context.Context) (ScanResult, error)
}

type SchedulerOptions struct {
	QueueDrainInterval time.Duration
	ReminderInterval   time.Duration
	PruneHour          int
	PruneMaxAgeDays    int
}

// Scheduler runs the periodic queue drain and task reminder loops.
type Scheduler struct {
	queue     queueWorker
	reminders taskScanner
	opts      SchedulerOptions
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// lastPruneDate is only touched by the queue drain loop.
	lastPruneDate string
}

func NewScheduler(
	queue *EmailService,
	reminders *ReminderScanner,
	opts SchedulerOptions,
	logger *zap.Logger,
) (*Scheduler, error) {
	if queue == nil {
		return nil, fmt.Errorf("email service is required")
	}
	if reminders == nil {
		return nil, fmt.Errorf("reminder scanner is required")
	}
	return newScheduler(queue, reminders, opts, logger), nil
}

func newScheduler(queue queueWorker, reminders taskScanner, opts SchedulerOptions, logger *zap.Logger) *Scheduler {
	if opts.QueueDrainInterval <= 0 {
		opts.QueueDrainInterval = defaultQueueDrainInterval
	}
	if opts.ReminderInterval <= 0 {
		opts.ReminderInterval = defaultReminderInterval
	}
	if opts.PruneHour < 0 || opts.PruneHour > 23 {
		opts.PruneHour = defaultPruneHour
	}
	if opts.PruneMaxAgeDays < 0 {
		opts.PruneMaxAgeDays = defaultPruneMaxAgeDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		queue:     queue,
		reminders: reminders,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Scheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start launches both loops in the background. Each loop ticks once
// immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrSchedulerRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	g, groupCtx := errgroup.WithContext(loopCtx)
	g.Go(func() error {
		s.loop(groupCtx, activityQueueDrain, s.opts.QueueDrainInterval, s.drainTick)
		return nil
	})
	g.Go(func() error {
		s.loop(groupCtx, activityReminderScan, s.opts.ReminderInterval, s.reminderTick)
		return nil
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	s.cancel = cancel
	s.done = done

	s.logger.Info("scheduler started",
		zap.Duration("queueDrainInterval", s.opts.QueueDrainInterval),
		zap.Duration("reminderInterval", s.opts.ReminderInterval),
		zap.Int("pruneHour", s.opts.PruneHour),
	)
	return nil
}

// Stop cancels both loops and waits for them to exit or for ctx to expire.
// No tick runs after a successful Stop.
func (s *Scheduler) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return nil
	}

	s.cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}

	s.cancel = nil
	s.done = nil
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, activity string, interval time.Duration, tick func(context.Context) error) {
	s.runTick(ctx, activity, tick)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.runTick(ctx, activity, tick)
		}
	}
}

// runTick swallows errors and panics so one bad tick never ends the loop.
func (s *Scheduler) runTick(ctx context.Context, activity string, tick func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncSchedulerTick(activity, fmt.Errorf("panic: %v", r))
			s.logger.Error("scheduler tick panicked",
				zap.String("activity", activity),
				zap.Any("panic", r),
			)
		}
	}()

	err := tick(ctx)
	if ctx.Err() != nil {
		return
	}
	s.metrics.IncSchedulerTick(activity, err)
	if err != nil {
		s.logger.Error("scheduler tick failed",
			zap.String("activity", activity),
			zap.Error(err),
		)
	}
}

func (s *Scheduler) drainTick(ctx context.Context) error {
	stats, err := s.queue.ProcessQueue(ctx)
	if err != nil {
		return err
	}
	if stats.Sent+stats.Failed+stats.Retried > 0 {
		s.logger.Debug("queue drain tick",
			zap.Int("sent", stats.Sent),
			zap.Int("failed", stats.Failed),
			zap.Int("retried", stats.Retried),
		)
	}

	s.maybePrune(ctx)
	return nil
}

func (s *Scheduler) maybePrune(ctx context.Context) {
	now := s.now()
	if now.Hour() != s.opts.PruneHour {
		return
	}
	today := now.Format(time.DateOnly)
	if s.lastPruneDate == today {
		return
	}

	_, err := s.queue.Prune(ctx, s.opts.PruneMaxAgeDays)
	s.metrics.IncSchedulerTick(activityPrune, err)
	if err != nil {
		s.logger.Error("scheduled prune failed", zap.Error(err))
		return
	}
	s.lastPruneDate = today
}

func (s *Scheduler) reminderTick(ctx context.Context) error {
	result, err := s.reminders.Scan(ctx)
	if err != nil {
		return err
	}
	if result.Reminders+result.Overdue > 0 {
		s.logger.Info("reminder scan queued notices",
			zap.Int("reminders", result.Reminders),
			zap.Int("overdue", result.Overdue),
		)
	}
	return nil
}
