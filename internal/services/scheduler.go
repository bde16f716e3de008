package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mindfuleat/internal/metrics"
)

// Task is a unit of background work. Submission is best effort and at most once.
type Task struct {
	Kind   string
	UserID int
	Run    func(ctx context.Context) error
}

// TaskSubmitter is what request paths use to hand off work.
type TaskSubmitter interface {
	Submit(Task) bool
}

var errSchedulerStopped = errors.New("scheduler stopped")

// Scheduler runs tasks from a bounded queue on a fixed set of workers.
type Scheduler struct {
	queue   chan Task
	workers int
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	closed  bool
	started bool
	group   errgroup.Group
}

func NewScheduler(workers, queueSize int, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		queue:   make(chan Task, queueSize),
		workers: workers,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

// Start launches the workers. Tasks inherit values from ctx but not its
// cancellation, so Stop can drain the queue after a shutdown signal.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	base := context.WithoutCancel(ctx)
	for i := 0; i < s.workers; i++ {
		s.group.Go(func() error {
			for task := range s.queue {
				s.run(base, task)
			}
			return nil
		})
	}
}

// Submit enqueues t without blocking. It returns false when the task was
// dropped because the queue is full or the scheduler has stopped.
func (s *Scheduler) Submit(t Task) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(t, errSchedulerStopped)
		return false
	}
	select {
	case s.queue <- t:
		return true
	default:
		s.drop(t, errors.New("queue full"))
		return false
	}
}

// Stop refuses new tasks and waits for queued ones to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain task queue: %w", ctx.Err())
	}
}

func (s *Scheduler) run(base context.Context, t Task) {
	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("background task panicked",
				zap.String("kind", t.Kind),
				zap.Int("user_id", t.UserID),
				zap.Any("panic", r),
			)
		}
	}()

	start := time.Now()
	if err := t.Run(ctx); err != nil {
		s.logger.Error("background task failed",
			zap.String("kind", t.Kind),
			zap.Int("user_id", t.UserID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("background task done",
		zap.String("kind", t.Kind),
		zap.Int("user_id", t.UserID),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *Scheduler) drop(t Task, reason error) {
	s.metrics.IncTaskDropped()
	s.logger.Warn("background task dropped",
		zap.String("kind", t.Kind),
		zap.Int("user_id", t.UserID),
		zap.Error(reason),
	)
}
