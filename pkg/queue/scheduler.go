package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/churchly/backend/pkg/logger"
)

// SchedulerRepository defines the storage operations used by Scheduler.
type SchedulerRepository interface {
	// CreateTask returns ErrDuplicateOccurrence when another process queued
	// the same occurrence first.
	CreateTask(ctx context.Context, task *Task) error

	// GetPendingTaskByName returns ErrTaskNotFound when no pending task exists.
	GetPendingTaskByName(ctx context.Context, taskName string) (*Task, error)
}

// Scheduler keeps one pending occurrence of every periodic task in the
// queue. Periodic tasks are platform work: they never carry a tenant. Use
// FanOut to reach every tenant from a periodic task.
type Scheduler struct {
	repo     SchedulerRepository
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*schedEntry
}

type schedEntry struct {
	schedule   Schedule
	queue      string
	priority   Priority
	maxRetries int8

	// planned is the run time of the occurrence known to be queued.
	planned time.Time
}

// NewScheduler creates a new task scheduler.
func NewScheduler(repo SchedulerRepository, opts ...SchedulerOption) (*Scheduler, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &schedulerOptions{
		checkInterval: 30 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Scheduler{
		repo:     repo,
		interval: options.checkInterval,
		logger:   options.logger.With(logger.Component("scheduler")),
		entries:  make(map[string]*schedEntry),
	}, nil
}

// AddTask registers a periodic task. name must match a registered handler.
func (s *Scheduler) AddTask(name string, schedule Schedule, opts ...SchedulerTaskOption) error {
	o := &schedulerTaskOptions{
		queue:      DefaultQueueName,
		priority:   PriorityDefault,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return ErrTaskAlreadyRegistered
	}
	s.entries[name] = &schedEntry{
		schedule:   schedule,
		queue:      o.queue,
		priority:   o.priority,
		maxRetries: o.maxRetries,
	}

	s.logger.Info("registered periodic task",
		slog.String("task_name", name),
		slog.String("schedule", schedule.String()))
	return nil
}

// RemoveTask unregisters a periodic task. An occurrence already queued still runs.
func (s *Scheduler) RemoveTask(name string) {
	s.mu.Lock()
	delete(s.entries, name)
	s.mu.Unlock()
}

// ListTasks returns the registered task names in order.
func (s *Scheduler) ListTasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Start plans due tasks immediately and then every check interval until
// ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.ListTasks()) == 0 {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

// Run returns a function suitable for errgroup. The end of ctx is a clean
// shutdown.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, name := range s.ListTasks() {
		if err := s.plan(ctx, name, now); err != nil {
			s.logger.ErrorContext(ctx, "failed to plan periodic task",
				slog.String("task_name", name),
				logger.Error(err))
		}
	}
}

// plan queues the next occurrence of name once the previous one is due.
// An occurrence already pending in storage, from this or another process,
// is adopted instead of duplicated.
func (s *Scheduler) plan(ctx context.Context, name string, now time.Time) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok || (!e.planned.IsZero() && e.planned.After(now)) {
		s.mu.Unlock()
		return nil
	}
	task := &Task{
		ID:          uuid.New(),
		Queue:       e.queue,
		TaskType:    TaskTypePeriodic,
		TaskName:    name,
		Status:      TaskStatusPending,
		Priority:    e.priority,
		MaxRetries:  e.maxRetries,
		ScheduledAt: e.schedule.Next(later(e.planned, now)),
		CreatedAt:   now,
	}
	s.mu.Unlock()

	adopted, err := s.adopt(ctx, name)
	if adopted || err != nil {
		return err
	}

	err = s.repo.CreateTask(ctx, task)
	if errors.Is(err, ErrDuplicateOccurrence) {
		_, err = s.adopt(ctx, name)
		return err
	}
	if err != nil {
		return fmt.Errorf("create periodic task: %w", err)
	}
	s.setPlanned(name, task.ScheduledAt)

	s.logger.InfoContext(ctx, "queued periodic task",
		slog.String("task_name", name),
		slog.Time("scheduled_for", task.ScheduledAt))
	return nil
}

// adopt takes over the schedule of a pending occurrence of name, if any.
func (s *Scheduler) adopt(ctx context.Context, name string) (bool, error) {
	pending, err := s.repo.GetPendingTaskByName(ctx, name)
	switch {
	case err == nil:
		s.setPlanned(name, pending.ScheduledAt)
		return true, nil
	case errors.Is(err, ErrTaskNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("look up pending task: %w", err)
	}
}

func (s *Scheduler) setPlanned(name string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		e.planned = at
	}
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
