package queue

import (
	"log/slog"
	"time"
)

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*schedulerOptions)

type schedulerOptions struct {
	checkInterval time.Duration
	logger        *slog.Logger
}

// WithCheckInterval sets the planning tick. Non-positive values are ignored.
func WithCheckInterval(d time.Duration) SchedulerOption {
	return func(o *schedulerOptions) {
		if d > 0 {
			o.checkInterval = d
		}
	}
}

func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// SchedulerTaskOption configures one periodic task at registration.
type SchedulerTaskOption func(*schedulerTaskOptions)

type schedulerTaskOptions struct {
	queue      string
	priority   Priority
	maxRetries int8
}

// WithTaskQueue routes occurrences to a dedicated queue, e.g. "platform"
// for fan-out jobs that must not compete with tenant work.
func WithTaskQueue(name string) SchedulerTaskOption {
	return func(o *schedulerTaskOptions) {
		if name != "" {
			o.queue = name
		}
	}
}

func WithTaskPriority(p Priority) SchedulerTaskOption {
	return func(o *schedulerTaskOptions) {
		if p.Valid() {
			o.priority = p
		}
	}
}

// WithTaskMaxRetries bounds retries per occurrence. Values outside 0..10
// keep the default.
func WithTaskMaxRetries(n int8) SchedulerTaskOption {
	return func(o *schedulerTaskOptions) {
		if n >= 0 && n <= 10 {
			o.maxRetries = n
		}
	}
}
