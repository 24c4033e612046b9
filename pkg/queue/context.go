package queue

import (
	"context"
	"log/slog"

	"github.com/churchly/backend/pkg/logger"
)

// TaskInfo describes the task being executed.
type TaskInfo struct {
	ID         string
	Name       string
	Queue      string
	TenantID   *int64
	RetryCount int8
}

type taskInfoKey struct{}

func withTaskInfo(ctx context.Context, task *Task) context.Context {
	return context.WithValue(ctx, taskInfoKey{}, TaskInfo{
		ID:         task.ID.String(),
		Name:       task.TaskName,
		Queue:      task.Queue,
		TenantID:   task.TenantID,
		RetryCount: task.RetryCount,
	})
}

// TaskInfoFromContext returns the task executing in ctx.
func TaskInfoFromContext(ctx context.Context) (TaskInfo, bool) {
	info, ok := ctx.Value(taskInfoKey{}).(TaskInfo)
	return info, ok
}

// LoggerExtractor adds a "task" group with the task id and name to log records
// written while a task executes.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		info, ok := TaskInfoFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return logger.Group("task",
			slog.String("id", info.ID),
			slog.String("name", info.Name),
		), true
	}
}
