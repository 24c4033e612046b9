package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/churchly/backend/pkg/pg"
	"github.com/churchly/backend/pkg/queue"
)

// openOccurrenceIndex keeps one untried pending occurrence per periodic task.
const openOccurrenceIndex = "queue_tasks_open_occurrence_idx"

const taskColumns = `id, queue, task_type, task_name, tenant_id, payload, status, priority,
	retry_count, max_retries, scheduled_at, locked_until, locked_by, processed_at, error, created_at`

// TaskRepo stores queue tasks. It implements the enqueuer, worker and
// scheduler repositories of pkg/queue with the same semantics as
// queue.MemoryStorage.
type TaskRepo struct {
	db DB
}

func NewTaskRepo(db DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func isConstraint(err error, name string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == name
}

func scanTask(row pgx.Row) (*queue.Task, error) {
	var (
		t       queue.Task
		payload []byte
	)
	err := row.Scan(&t.ID, &t.Queue, &t.TaskType, &t.TaskName, &t.TenantID, &payload, &t.Status, &t.Priority,
		&t.RetryCount, &t.MaxRetries, &t.ScheduledAt, &t.LockedUntil, &t.LockedBy, &t.ProcessedAt, &t.Error, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Payload = payload
	return &t, nil
}

// payloadArg passes the payload as jsonb, or NULL when empty.
func payloadArg(p []byte) any {
	if len(p) == 0 {
		return nil
	}
	return json.RawMessage(p)
}

func (r *TaskRepo) CreateTask(ctx context.Context, task *queue.Task) error {
	if task == nil {
		return fmt.Errorf("taskRepo.CreateTask: %w", queue.ErrPayloadNil)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO queue_tasks (id, queue, task_type, task_name, tenant_id, payload, status, priority,
		                          retry_count, max_retries, scheduled_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		task.ID, task.Queue, task.TaskType, task.TaskName, task.TenantID, payloadArg(task.Payload),
		task.Status, task.Priority, task.RetryCount, task.MaxRetries, task.ScheduledAt, task.CreatedAt,
	)
	if isConstraint(err, openOccurrenceIndex) {
		return fmt.Errorf("taskRepo.CreateTask: %w", queue.ErrDuplicateOccurrence)
	}
	return wrap("taskRepo.CreateTask", err)
}

func (r *TaskRepo) GetPendingTaskByName(ctx context.Context, taskName string) (*queue.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM queue_tasks
		 WHERE task_name = $1 AND status = $2
		 ORDER BY scheduled_at LIMIT 1`,
		taskName, queue.TaskStatusPending,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, queue.ErrTaskNotFound
	}
	if err != nil {
		return nil, wrap("taskRepo.GetPendingTaskByName", err)
	}
	return t, nil
}

// ClaimTask locks the next due task with FOR UPDATE SKIP LOCKED so
// concurrent workers never claim the same row. Processing tasks whose lock
// expired are claimable again.
func (r *TaskRepo) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*queue.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx,
		`UPDATE queue_tasks SET status = $1, locked_until = now() + $2::interval, locked_by = $3
		 WHERE id = (
		     SELECT id FROM queue_tasks
		     WHERE queue = ANY($4) AND scheduled_at <= now()
		       AND (status = $5 OR (status = $1 AND locked_until < now()))
		     ORDER BY priority DESC, scheduled_at
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+taskColumns,
		queue.TaskStatusProcessing, lockDuration, workerID, queues, queue.TaskStatusPending,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, queue.ErrNoTaskToClaim
	}
	if err != nil {
		return nil, wrap("taskRepo.ClaimTask", err)
	}
	return t, nil
}

func (r *TaskRepo) processing(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, queue.ErrTaskNotFound)
	}
	return nil
}

func (r *TaskRepo) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	return r.processing(ctx, "taskRepo.CompleteTask",
		`UPDATE queue_tasks SET status = $1, processed_at = now(), locked_until = NULL, locked_by = NULL
		 WHERE id = $2 AND status = $3`,
		queue.TaskStatusCompleted, taskID, queue.TaskStatusProcessing,
	)
}

// FailTask reschedules with a linear backoff of queue.RetryBackoff per
// attempt, or marks the task failed once max_retries is reached.
func (r *TaskRepo) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	return r.processing(ctx, "taskRepo.FailTask",
		`UPDATE queue_tasks SET
		     retry_count = retry_count + 1,
		     error = $1,
		     locked_until = NULL,
		     locked_by = NULL,
		     status = CASE WHEN retry_count + 1 >= max_retries THEN $2 ELSE $3 END,
		     scheduled_at = CASE WHEN retry_count + 1 >= max_retries THEN scheduled_at
		                         ELSE now() + (retry_count + 1) * $4::interval END
		 WHERE id = $5 AND status = $6`,
		errorMsg, queue.TaskStatusFailed, queue.TaskStatusPending, queue.RetryBackoff, taskID, queue.TaskStatusProcessing,
	)
}

func (r *TaskRepo) MoveToDLQ(ctx context.Context, taskID uuid.UUID) error {
	err := pg.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO queue_dead_tasks (id, task_id, queue, task_type, task_name, tenant_id, payload, priority, error, retry_count)
			 SELECT $1, id, queue, task_type, task_name, tenant_id, payload, priority, COALESCE(error, ''), retry_count
			 FROM queue_tasks WHERE id = $2`,
			uuid.New(), taskID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return queue.ErrTaskNotFound
		}
		_, err = tx.Exec(ctx, `DELETE FROM queue_tasks WHERE id = $1`, taskID)
		return err
	})
	if err != nil {
		return fmt.Errorf("taskRepo.MoveToDLQ: %w", err)
	}
	return nil
}

func (r *TaskRepo) ExtendLock(ctx context.Context, taskID uuid.UUID, duration time.Duration) error {
	return r.processing(ctx, "taskRepo.ExtendLock",
		`UPDATE queue_tasks SET locked_until = now() + $1::interval WHERE id = $2 AND status = $3`,
		duration, taskID, queue.TaskStatusProcessing,
	)
}

var (
	_ queue.EnqueuerRepository  = (*TaskRepo)(nil)
	_ queue.WorkerRepository    = (*TaskRepo)(nil)
	_ queue.SchedulerRepository = (*TaskRepo)(nil)
)
