package queue_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/pkg/queue"
	"github.com/churchly/backend/pkg/tenant"
)

type observed struct {
	ctx    context.Context
	tenant *tenant.Tenant
	bound  bool
}

// setup returns storage, an enqueuer and a worker that loads tenants from provider.
func setup(t *testing.T, provider *tenant.MemoryProvider, handlers ...queue.Handler) (*queue.MemoryStorage, *queue.Enqueuer, *queue.Worker) {
	t.Helper()

	storage := queue.NewMemoryStorage()
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	worker, err := queue.NewWorker(storage, queue.WithTenantLoader(provider.GetByID))
	require.NoError(t, err)
	worker.RegisterHandlers(handlers...)

	return storage, enq, worker
}

func observingHandler(seen *observed) queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, _ reportPayload) error {
		seen.ctx = ctx
		seen.tenant, seen.bound = tenant.FromContext(ctx)
		return nil
	})
}

func TestWorkerTenantPropagation(t *testing.T) {
	t.Parallel()

	a := newTenant(1, "grace", tenant.StatusActive)

	t.Run("round trip binds during execution and unbinds after", func(t *testing.T) {
		t.Parallel()

		var seen observed
		storage, enq, worker := setup(t, tenant.NewMemoryProvider(a), observingHandler(&seen))

		reqCtx, release := tenant.Bind(context.Background(), a)
		require.NoError(t, enq.Enqueue(reqCtx, reportPayload{Week: 2}))
		release()

		processed, err := worker.ProcessNext(context.Background())
		require.NoError(t, err)
		require.True(t, processed)

		require.True(t, seen.bound)
		assert.Equal(t, a.ID, seen.tenant.ID)

		_, stillBound := tenant.FromContext(seen.ctx)
		assert.False(t, stillBound, "tenant must be unbound after execution")

		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, queue.TaskStatusCompleted, tasks[0].Status)
	})

	t.Run("execution does not inherit the caller binding", func(t *testing.T) {
		t.Parallel()

		var seen observed
		_, enq, worker := setup(t, tenant.NewMemoryProvider(a), observingHandler(&seen))

		require.NoError(t, enq.Enqueue(context.Background(), reportPayload{}))

		callerCtx := tenant.WithTenant(context.Background(), a)
		_, err := worker.ProcessNext(callerCtx)
		require.NoError(t, err)
		assert.False(t, seen.bound)
	})

	t.Run("deleted tenant runs unbound", func(t *testing.T) {
		t.Parallel()

		var seen observed
		_, enq, worker := setup(t, tenant.NewMemoryProvider(), observingHandler(&seen))

		require.NoError(t, enq.Enqueue(tenant.WithTenant(context.Background(), a), reportPayload{}))

		_, err := worker.ProcessNext(context.Background())
		require.NoError(t, err)
		require.NotNil(t, seen.ctx)
		assert.False(t, seen.bound)
	})

	t.Run("suspended tenant runs unbound", func(t *testing.T) {
		t.Parallel()

		suspended := newTenant(5, "closed", tenant.StatusSuspended)
		var seen observed
		_, enq, worker := setup(t, tenant.NewMemoryProvider(suspended), observingHandler(&seen))

		require.NoError(t, enq.Enqueue(tenant.WithTenant(context.Background(), suspended), reportPayload{}))

		_, err := worker.ProcessNext(context.Background())
		require.NoError(t, err)
		assert.False(t, seen.bound)
	})

	t.Run("required tenant fails when lookup fails", func(t *testing.T) {
		t.Parallel()

		var seen observed
		storage, enq, worker := setup(t, tenant.NewMemoryProvider(), queue.RequireTenant(observingHandler(&seen)))

		require.NoError(t, enq.Enqueue(tenant.WithTenant(context.Background(), a), reportPayload{}, queue.WithMaxRetries(1)))

		_, err := worker.ProcessNext(context.Background())
		require.NoError(t, err)
		assert.Nil(t, seen.ctx, "handler must not run")

		dead := storage.DeadTasks()
		require.Len(t, dead, 1)
		assert.Contains(t, dead[0].Error, queue.ErrTenantRequired.Error())
		assert.Equal(t, a.ID, *dead[0].TenantID)
	})

	t.Run("panicking handler still unbinds", func(t *testing.T) {
		t.Parallel()

		var captured context.Context
		panicking := queue.NewTaskHandler(func(ctx context.Context, _ reportPayload) error {
			captured = ctx
			panic("boom")
		})
		storage, enq, worker := setup(t, tenant.NewMemoryProvider(a), panicking)

		require.NoError(t, enq.Enqueue(tenant.WithTenant(context.Background(), a), reportPayload{}, queue.WithMaxRetries(3)))

		_, err := worker.ProcessNext(context.Background())
		require.NoError(t, err)

		require.NotNil(t, captured)
		_, bound := tenant.FromContext(captured)
		assert.False(t, bound)

		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, queue.TaskStatusPending, tasks[0].Status)
		assert.Equal(t, int8(1), tasks[0].RetryCount)
		require.NotNil(t, tasks[0].Error)
		assert.Contains(t, *tasks[0].Error, "panic in handler")
	})

	t.Run("worker without loader runs unbound", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		enq, _ := queue.NewEnqueuer(storage)
		worker, err := queue.NewWorker(storage)
		require.NoError(t, err)

		var seen observed
		worker.RegisterHandlers(observingHandler(&seen))

		require.NoError(t, enq.Enqueue(tenant.WithTenant(context.Background(), a), reportPayload{}))
		_, err = worker.ProcessNext(context.Background())
		require.NoError(t, err)
		assert.False(t, seen.bound)
	})
}

func TestWorkerTaskInfo(t *testing.T) {
	t.Parallel()

	var info queue.TaskInfo
	handler := queue.NewTaskHandler(func(ctx context.Context, _ reportPayload) error {
		info, _ = queue.TaskInfoFromContext(ctx)
		return nil
	})

	storage, enq, worker := setup(t, tenant.NewMemoryProvider(), handler)
	require.NoError(t, enq.Enqueue(context.Background(), reportPayload{}, queue.WithQueue(queue.DefaultQueueName)))

	_, err := worker.ProcessNext(context.Background())
	require.NoError(t, err)

	tasks := storage.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, tasks[0].ID.String(), info.ID)
	assert.Equal(t, "queue_test.reportPayload", info.Name)
	assert.Equal(t, queue.DefaultQueueName, info.Queue)
}

func TestWorkerFailures(t *testing.T) {
	t.Parallel()

	t.Run("missing handler goes to dlq", func(t *testing.T) {
		t.Parallel()

		storage, enq, worker := setup(t, tenant.NewMemoryProvider())
		require.NoError(t, enq.Enqueue(context.Background(), reportPayload{}))

		processed, err := worker.ProcessNext(context.Background())
		assert.True(t, processed)
		assert.ErrorIs(t, err, queue.ErrHandlerNotFound)
		assert.Empty(t, storage.Tasks())
		assert.Len(t, storage.DeadTasks(), 1)
	})

	t.Run("exhausted retries go to dlq", func(t *testing.T) {
		t.Parallel()

		failing := queue.NewTaskHandler(func(context.Context, reportPayload) error {
			return assert.AnError
		})
		storage, enq, worker := setup(t, tenant.NewMemoryProvider(), failing)
		require.NoError(t, enq.Enqueue(context.Background(), reportPayload{}, queue.WithMaxRetries(1)))

		_, err := worker.ProcessNext(context.Background())
		require.NoError(t, err)
		assert.Empty(t, storage.Tasks())

		dead := storage.DeadTasks()
		require.Len(t, dead, 1)
		assert.Equal(t, assert.AnError.Error(), dead[0].Error)
	})

	t.Run("failure with retries left is requeued", func(t *testing.T) {
		t.Parallel()

		failing := queue.NewTaskHandler(func(context.Context, reportPayload) error {
			return assert.AnError
		})
		storage, enq, worker := setup(t, tenant.NewMemoryProvider(), failing)
		require.NoError(t, enq.Enqueue(context.Background(), reportPayload{}, queue.WithMaxRetries(3)))

		_, err := worker.ProcessNext(context.Background())
		require.NoError(t, err)
		assert.Empty(t, storage.DeadTasks())

		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, queue.TaskStatusPending, tasks[0].Status)
		assert.EqualValues(t, 1, tasks[0].RetryCount)
		require.NotNil(t, tasks[0].Error)
		assert.Equal(t, assert.AnError.Error(), *tasks[0].Error)
	})

	t.Run("panicking handler counts as a failure", func(t *testing.T) {
		t.Parallel()

		panicking := queue.NewTaskHandler(func(context.Context, reportPayload) error {
			panic("boom")
		})
		storage, enq, worker := setup(t, tenant.NewMemoryProvider(), panicking)
		require.NoError(t, enq.Enqueue(context.Background(), reportPayload{}, queue.WithMaxRetries(1)))

		_, err := worker.ProcessNext(context.Background())
		require.NoError(t, err)

		dead := storage.DeadTasks()
		require.Len(t, dead, 1)
		assert.Contains(t, dead[0].Error, "boom")
	})

	t.Run("nothing due", func(t *testing.T) {
		t.Parallel()

		_, _, worker := setup(t, tenant.NewMemoryProvider())
		processed, err := worker.ProcessNext(context.Background())
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestWorkerLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("requires handlers", func(t *testing.T) {
		t.Parallel()

		worker, err := queue.NewWorker(queue.NewMemoryStorage())
		require.NoError(t, err)
		assert.ErrorIs(t, worker.Start(context.Background()), queue.ErrNoHandlers)
		assert.ErrorIs(t, worker.Stop(), queue.ErrWorkerNotStarted)
	})

	t.Run("nil repository", func(t *testing.T) {
		t.Parallel()

		_, err := queue.NewWorker(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
	})

	t.Run("processes tasks in the background", func(t *testing.T) {
		t.Parallel()

		a := newTenant(1, "grace", tenant.StatusActive)
		done := make(chan int64, 1)
		handler := queue.NewTaskHandler(func(ctx context.Context, _ reportPayload) error {
			id, _ := tenant.IDFromContext(ctx)
			done <- id
			return nil
		})

		storage := queue.NewMemoryStorage()
		enq, _ := queue.NewEnqueuer(storage)
		worker, err := queue.NewWorker(storage,
			queue.WithPullInterval(10*time.Millisecond),
			queue.WithMaxConcurrentTasks(2),
			queue.WithTenantLoader(tenant.NewMemoryProvider(a).GetByID),
		)
		require.NoError(t, err)
		worker.RegisterHandlers(handler)

		ctx, cancel := context.WithCancel(context.Background())
		run := worker.Run(ctx)
		errCh := make(chan error, 1)
		go func() { errCh <- run() }()

		require.NoError(t, enq.Enqueue(tenant.WithTenant(context.Background(), a), reportPayload{}))

		select {
		case id := <-done:
			assert.Equal(t, a.ID, id)
		case <-time.After(2 * time.Second):
			t.Fatal("task was not processed")
		}

		cancel()
		require.NoError(t, <-errCh)
	})
}

type extendingStorage struct {
	*queue.MemoryStorage
	extends atomic.Int32
}

func (s *extendingStorage) ExtendLock(ctx context.Context, taskID uuid.UUID, d time.Duration) error {
	s.extends.Add(1)
	return s.MemoryStorage.ExtendLock(ctx, taskID, d)
}

func TestWorkerRenewsLockOfSlowTasks(t *testing.T) {
	t.Parallel()

	storage := &extendingStorage{MemoryStorage: queue.NewMemoryStorage()}
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	worker, err := queue.NewWorker(storage, queue.WithLockTimeout(40*time.Millisecond))
	require.NoError(t, err)
	worker.RegisterHandlers(queue.NewTaskHandler(func(context.Context, reportPayload) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	}))

	require.NoError(t, enq.Enqueue(context.Background(), reportPayload{}))
	processed, err := worker.ProcessNext(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	renewed := storage.extends.Load()
	assert.GreaterOrEqual(t, renewed, int32(1))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, renewed, storage.extends.Load(), "renewal stops with the handler")
	assert.Equal(t, queue.TaskStatusCompleted, storage.Tasks()[0].Status)
}

func TestWorkerInfo(t *testing.T) {
	t.Parallel()

	worker, err := queue.NewWorker(queue.NewMemoryStorage())
	require.NoError(t, err)

	id, host, pid := worker.WorkerInfo()
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	expected, _ := os.Hostname()
	assert.Equal(t, expected, host)
	assert.Equal(t, os.Getpid(), pid)
}
