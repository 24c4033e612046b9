package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/churchly/backend/pkg/logger"
	"github.com/churchly/backend/pkg/tenant"
)

// WorkerRepository defines the storage operations used by Worker.
type WorkerRepository interface {
	// ClaimTask atomically claims the next due task from queues.
	ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error)

	CompleteTask(ctx context.Context, taskID uuid.UUID) error

	// FailTask records the error and increments the retry count.
	FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error

	MoveToDLQ(ctx context.Context, taskID uuid.UUID) error

	// ExtendLock renews the lock of a processing task while its handler runs.
	ExtendLock(ctx context.Context, taskID uuid.UUID, duration time.Duration) error
}

// TenantLoader loads the tenant recorded on a task. A tenant.Provider's
// GetByID method satisfies it.
type TenantLoader func(ctx context.Context, id int64) (*tenant.Tenant, error)

// Worker claims tasks and executes them with the tenant that enqueued them.
type Worker struct {
	repo       WorkerRepository
	queues     []string
	workerID   uuid.UUID
	loadTenant TenantLoader

	pullInterval time.Duration
	lockTimeout  time.Duration
	logger       *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	// slots bounds concurrent tasks; inflight tracks them for Stop.
	slots    chan struct{}
	inflight sync.WaitGroup

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	loopDone  chan struct{}
}

// NewWorker creates a new task worker.
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		queues:             []string{DefaultQueueName},
		pullInterval:       5 * time.Second,
		lockTimeout:        5 * time.Minute,
		maxConcurrentTasks: 1,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	id := uuid.New()
	return &Worker{
		repo:         repo,
		queues:       options.queues,
		workerID:     id,
		loadTenant:   options.loadTenant,
		pullInterval: options.pullInterval,
		lockTimeout:  options.lockTimeout,
		logger:       options.logger.With(logger.Component("worker"), slog.String("worker_id", id.String())),
		handlers:     make(map[string]Handler),
		slots:        make(chan struct{}, options.maxConcurrentTasks),
	}, nil
}

// RegisterHandlers registers task handlers, replacing any with the same name.
func (w *Worker) RegisterHandlers(handlers ...Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			w.handlers[h.Name()] = h
		}
	}
}

func (w *Worker) handler(name string) (Handler, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.handlers[name]
	return h, ok
}

// Start polls for tasks in the background until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.RLock()
	n := len(w.handlers)
	w.mu.RUnlock()
	if n == 0 {
		return ErrNoHandlers
	}

	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()
	if w.cancel != nil {
		return ErrWorkerStarted
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.loopDone = make(chan struct{})
	go w.poll(ctx, w.loopDone)

	_, host, pid := w.WorkerInfo()
	w.logger.Info("worker started",
		slog.String("hostname", host),
		slog.Int("pid", pid),
		slog.Any("queues", w.queues),
		slog.Int("max_concurrent", cap(w.slots)))
	return nil
}

// Stop ends polling and waits for running tasks to finish.
func (w *Worker) Stop() error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()
	if w.cancel == nil {
		return ErrWorkerNotStarted
	}

	w.cancel()
	<-w.loopDone
	w.cancel, w.loopDone = nil, nil

	w.logger.Info("worker stopping, waiting for active tasks")
	w.inflight.Wait()
	w.logger.Info("worker stopped")
	return nil
}

// Run returns a function suitable for errgroup that runs the worker until ctx is done.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

// poll starts one task per tick while a slot is free. Tasks are only
// started from this goroutine, so Stop can wait for them once it returns.
func (w *Worker) poll(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		select {
		case w.slots <- struct{}{}:
		default:
			w.logger.Debug("all worker slots busy, skipping tick")
			continue
		}

		w.inflight.Add(1)
		go func() {
			defer w.inflight.Done()
			defer func() { <-w.slots }()

			if _, err := w.ProcessNext(ctx); err != nil && !errors.Is(err, ErrHandlerNotFound) {
				w.logger.Error("failed to process task", logger.Error(err))
			}
		}()
	}
}

// ProcessNext claims and executes a single due task. It reports false when
// no task was due. Storage updates use ctx; the handler itself does not.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	task, err := w.repo.ClaimTask(ctx, w.workerID, w.queues, w.lockTimeout)
	if errors.Is(err, ErrNoTaskToClaim) || (err == nil && task == nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim task: %w", err)
	}

	return true, w.processTask(ctx, task)
}

// processTask executes task and records the outcome, also while the worker
// is stopping. A panicking handler counts as a failure.
func (w *Worker) processTask(ctx context.Context, task *Task) (retErr error) {
	ctx = context.WithoutCancel(ctx)
	log := w.logger.With(logger.TaskID(task.ID), slog.String("task_name", task.TaskName))
	if task.HasTenant() {
		log = log.With(logger.TenantID(*task.TenantID))
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", slog.Any("panic", r))
			retErr = w.fail(ctx, log, task, fmt.Errorf("panic in handler: %v", r), time.Since(start))
		}
	}()

	h, ok := w.handler(task.TaskName)
	if !ok {
		log.Error("no handler registered for task type")
		if err := w.bury(ctx, task, ErrHandlerNotFound.Error()+": "+task.TaskName); err != nil {
			return err
		}
		return ErrHandlerNotFound
	}

	if err := w.execute(ctx, log, h, task); err != nil {
		return w.fail(ctx, log, task, err, time.Since(start))
	}

	if err := w.repo.CompleteTask(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to mark task %s as completed: %w", task.ID, err)
	}
	log.Info("task completed",
		slog.String("queue", task.Queue),
		logger.Duration(time.Since(start)))
	return nil
}

// execute runs h as its own unit of work. The handler context is detached
// from the worker lifecycle so shutdown lets running tasks complete; ctx is
// only used to renew the task lock.
func (w *Worker) execute(ctx context.Context, log *slog.Logger, h Handler, task *Task) error {
	defer w.keepLocked(ctx, log, task.ID)()

	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	ctx = withTaskInfo(ctx, task)
	ctx, release := w.bindTenant(ctx, log, task)
	defer release()

	return h.Handle(ctx, task.Payload)
}

// bindTenant attaches a fresh tenant manager to ctx and binds the task's
// tenant when it still resolves to an active tenant. Otherwise the task
// runs unbound. The returned release func must always be called.
func (w *Worker) bindTenant(ctx context.Context, log *slog.Logger, task *Task) (context.Context, func()) {
	m := tenant.NewManager()
	ctx = tenant.WithManager(ctx, m)

	if !task.HasTenant() {
		return ctx, m.Forget
	}
	if w.loadTenant == nil {
		log.WarnContext(ctx, "no tenant loader configured, running task unbound")
		return ctx, m.Forget
	}

	t, err := w.loadTenant(ctx, *task.TenantID)
	switch {
	case err != nil:
		log.WarnContext(ctx, "tenant lookup failed, running task unbound", logger.Error(err))
	case t == nil || !t.Active():
		log.WarnContext(ctx, "tenant is not active, running task unbound")
	default:
		m.Set(t)
	}
	return ctx, m.Forget
}

// fail records execErr and buries the task once its retries are exhausted.
func (w *Worker) fail(ctx context.Context, log *slog.Logger, task *Task, execErr error, took time.Duration) error {
	log.Error("task failed",
		logger.RetryCount(int(task.RetryCount)),
		slog.Int("max_retries", int(task.MaxRetries)),
		logger.Duration(took),
		logger.Error(execErr))

	if task.RetryCount+1 < task.MaxRetries {
		if err := w.repo.FailTask(ctx, task.ID, execErr.Error()); err != nil {
			return fmt.Errorf("failed to update task %s status to failed: %w", task.ID, err)
		}
		return nil
	}

	if err := w.bury(ctx, task, execErr.Error()); err != nil {
		return err
	}
	log.Warn("task moved to dead letter queue")
	return nil
}

// bury fails the task and moves it to the dead letter queue.
func (w *Worker) bury(ctx context.Context, task *Task, reason string) error {
	if err := w.repo.FailTask(ctx, task.ID, reason); err != nil {
		return fmt.Errorf("failed to mark task %s as failed: %w", task.ID, err)
	}
	if err := w.repo.MoveToDLQ(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to move task %s to DLQ: %w", task.ID, err)
	}
	return nil
}

// keepLocked renews the lock of taskID every half lock timeout until the
// returned stop func is called.
func (w *Worker) keepLocked(ctx context.Context, log *slog.Logger, taskID uuid.UUID) (stop func()) {
	done, finished := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(finished)

		ticker := time.NewTicker(max(w.lockTimeout/2, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := w.repo.ExtendLock(ctx, taskID, w.lockTimeout); err != nil {
					log.Warn("failed to extend task lock", logger.Error(err))
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// WorkerInfo returns the worker id, host name and process id.
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID.String(), hostname, os.Getpid()
}
