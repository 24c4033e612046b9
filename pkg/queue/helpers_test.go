package queue_test

import (
	"context"
	"sync"

	"github.com/churchly/backend/pkg/queue"
	"github.com/churchly/backend/pkg/tenant"
)

type reportPayload struct {
	Week int `json:"week"`
}

func newTenant(id int64, slug string, status tenant.Status) *tenant.Tenant {
	return &tenant.Tenant{ID: id, Slug: slug, Name: slug, Status: status}
}

// recordingRepo remembers the tenant bound while each task was created.
type recordingRepo struct {
	mu    sync.Mutex
	tasks []*queue.Task
	bound []*tenant.Tenant
}

func (r *recordingRepo) CreateTask(ctx context.Context, task *queue.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, _ := tenant.FromContext(ctx)
	r.tasks = append(r.tasks, task)
	r.bound = append(r.bound, t)
	return nil
}
