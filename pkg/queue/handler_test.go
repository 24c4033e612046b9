package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/pkg/queue"
	"github.com/churchly/backend/pkg/tenant"
)

func TestNewTaskHandler(t *testing.T) {
	t.Parallel()

	var got reportPayload
	h := queue.NewTaskHandler(func(_ context.Context, p reportPayload) error {
		got = p
		return nil
	})

	assert.Equal(t, "queue_test.reportPayload", h.Name())
	require.NoError(t, h.Handle(context.Background(), json.RawMessage(`{"week":7}`)))
	assert.Equal(t, 7, got.Week)

	assert.Error(t, h.Handle(context.Background(), json.RawMessage(`{bad`)))
}

func TestRequireTenant(t *testing.T) {
	t.Parallel()

	calls := 0
	h := queue.RequireTenant(queue.NewPeriodicTaskHandler("cleanup", func(context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, "cleanup", h.Name())

	err := h.Handle(context.Background(), nil)
	assert.ErrorIs(t, err, queue.ErrTenantRequired)
	assert.Zero(t, calls)

	ctx := tenant.WithTenant(context.Background(), newTenant(1, "grace", tenant.StatusActive))
	require.NoError(t, h.Handle(ctx, nil))
	assert.Equal(t, 1, calls)
}

type digestPayload struct {
	Slug string `json:"slug"`
}

func TestFanOut(t *testing.T) {
	t.Parallel()

	a := newTenant(1, "grace", tenant.StatusActive)
	b := newTenant(2, "hope", tenant.StatusActive)

	t.Run("dispatches one task per tenant", func(t *testing.T) {
		t.Parallel()

		repo := &recordingRepo{}
		enq, _ := queue.NewEnqueuer(repo)

		h := queue.FanOut("weekly_digest",
			func(context.Context) ([]*tenant.Tenant, error) { return []*tenant.Tenant{a, b}, nil },
			enq,
			func(t *tenant.Tenant) any { return digestPayload{Slug: t.Slug} },
		)
		assert.Equal(t, "weekly_digest", h.Name())

		m := tenant.NewManager()
		ctx := tenant.WithManager(context.Background(), m)
		require.NoError(t, h.Handle(ctx, nil))

		require.Len(t, repo.tasks, 2)
		assert.Equal(t, a.ID, *repo.tasks[0].TenantID)
		assert.JSONEq(t, `{"slug":"grace"}`, string(repo.tasks[0].Payload))
		assert.Equal(t, b.ID, *repo.tasks[1].TenantID)
		assert.False(t, m.Has(), "fan-out must leave the platform context unbound")
	})

	t.Run("list failure", func(t *testing.T) {
		t.Parallel()

		enq, _ := queue.NewEnqueuer(&recordingRepo{})
		h := queue.FanOut("digest",
			func(context.Context) ([]*tenant.Tenant, error) { return nil, errors.New("db down") },
			enq,
			func(*tenant.Tenant) any { return digestPayload{} },
		)
		assert.ErrorContains(t, h.Handle(context.Background(), nil), "db down")
	})

	t.Run("dispatch failures are joined", func(t *testing.T) {
		t.Parallel()

		enq, _ := queue.NewEnqueuer(failingRepo{})
		h := queue.FanOut("digest",
			func(context.Context) ([]*tenant.Tenant, error) { return []*tenant.Tenant{a, b}, nil },
			enq,
			func(*tenant.Tenant) any { return digestPayload{} },
		)
		err := h.Handle(context.Background(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tenant 1")
		assert.Contains(t, err.Error(), "tenant 2")
	})
}
