package postgres_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/internal/store/postgres"
	"github.com/churchly/backend/pkg/audit"
	"github.com/churchly/backend/pkg/pg"
	"github.com/churchly/backend/pkg/queue"
	"github.com/churchly/backend/pkg/tenant"
	"github.com/churchly/backend/pkg/tenantscope"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// integrationDB connects to PG_TEST_URL and applies the migrations once per
// test binary. Tests skip when the variable is unset.
func integrationDB(t *testing.T) (*pgxpool.Pool, *postgres.Store) {
	t.Helper()

	url := os.Getenv("PG_TEST_URL")
	if url == "" {
		t.Skip("PG_TEST_URL is not set")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString:  url,
		MaxOpenConns:      8,
		HealthCheckPeriod: time.Minute,
		MaxConnIdleTime:   time.Minute,
		MaxConnLifetime:   time.Hour,
		RetryAttempts:     1,
		RetryInterval:     time.Second,
		MigrationsTable:   "schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrateOnce.Do(func() {
		migrateErr = pg.Migrate(ctx, pool, cfg, postgres.Migrations, postgres.MigrationsDir, slog.New(slog.DiscardHandler))
	})
	require.NoError(t, migrateErr)

	return pool, postgres.New(pool, tenantscope.New())
}

func unique(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func createTenant(t *testing.T, db *postgres.Store) *tenant.Tenant {
	t.Helper()

	tn := &tenant.Tenant{Slug: unique("church"), Name: "Church", PlanID: "starter"}
	require.NoError(t, db.Tenants().Create(context.Background(), tn))
	return tn
}

func TestIntegrationClaimTask(t *testing.T) {
	t.Parallel()

	_, db := integrationDB(t)
	ctx := context.Background()
	tasks := db.Tasks()
	q := unique("claims")

	const n = 4
	for range n {
		require.NoError(t, tasks.CreateTask(ctx, &queue.Task{
			ID: uuid.New(), Queue: q, TaskType: queue.TaskTypeOneTime, TaskName: unique("job"),
			Status: queue.TaskStatusPending, MaxRetries: 3,
			ScheduledAt: time.Now().Add(-time.Second), CreatedAt: time.Now(),
		}))
	}

	t.Run("concurrent workers never share a task", func(t *testing.T) {
		var (
			mu      sync.Mutex
			claimed = map[uuid.UUID]bool{}
			wg      sync.WaitGroup
		)
		for range 2 * n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				task, err := tasks.ClaimTask(ctx, uuid.New(), []string{q}, time.Minute)
				if err != nil {
					assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
					return
				}
				mu.Lock()
				defer mu.Unlock()
				assert.False(t, claimed[task.ID], "task %s claimed twice", task.ID)
				claimed[task.ID] = true
			}()
		}
		wg.Wait()
		assert.Len(t, claimed, n)
	})

	t.Run("lock duration is bound as an interval", func(t *testing.T) {
		require.NoError(t, tasks.CreateTask(ctx, &queue.Task{
			ID: uuid.New(), Queue: q, TaskType: queue.TaskTypeOneTime, TaskName: unique("job"),
			Status: queue.TaskStatusPending, MaxRetries: 3,
			ScheduledAt: time.Now().Add(-time.Second), CreatedAt: time.Now(),
		}))

		task, err := tasks.ClaimTask(ctx, uuid.New(), []string{q}, 90*time.Second)
		require.NoError(t, err)
		require.NotNil(t, task.LockedUntil)
		assert.WithinDuration(t, time.Now().Add(90*time.Second), *task.LockedUntil, 10*time.Second)
		assert.Equal(t, queue.TaskStatusProcessing, task.Status)
	})
}

func TestIntegrationFailTaskAndDeadLetter(t *testing.T) {
	t.Parallel()

	pool, db := integrationDB(t)
	ctx := context.Background()
	tasks := db.Tasks()
	q, name := unique("retries"), unique("job")

	id := uuid.New()
	require.NoError(t, tasks.CreateTask(ctx, &queue.Task{
		ID: id, Queue: q, TaskType: queue.TaskTypeOneTime, TaskName: name,
		Status: queue.TaskStatusPending, MaxRetries: 2,
		ScheduledAt: time.Now().Add(-time.Second), CreatedAt: time.Now(),
	}))

	_, err := tasks.ClaimTask(ctx, uuid.New(), []string{q}, time.Minute)
	require.NoError(t, err)
	require.NoError(t, tasks.FailTask(ctx, id, "boom"))

	retry, err := tasks.GetPendingTaskByName(ctx, name)
	require.NoError(t, err)
	assert.EqualValues(t, 1, retry.RetryCount)
	assert.Nil(t, retry.LockedBy)
	require.NotNil(t, retry.Error)
	assert.Equal(t, "boom", *retry.Error)
	assert.WithinDuration(t, time.Now().Add(queue.RetryBackoff), retry.ScheduledAt, 10*time.Second)

	assert.ErrorIs(t, tasks.FailTask(ctx, id, "again"), queue.ErrTaskNotFound, "only processing tasks fail")

	require.NoError(t, tasks.MoveToDLQ(ctx, id))
	_, err = tasks.GetPendingTaskByName(ctx, name)
	assert.ErrorIs(t, err, queue.ErrTaskNotFound)

	var (
		deadErr string
		retries int
	)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT error, retry_count FROM queue_dead_tasks WHERE task_id = $1`, id,
	).Scan(&deadErr, &retries))
	assert.Equal(t, "boom", deadErr)
	assert.Equal(t, 1, retries)

	assert.ErrorIs(t, tasks.MoveToDLQ(ctx, id), queue.ErrTaskNotFound)
}

func TestIntegrationOpenOccurrenceIsUnique(t *testing.T) {
	t.Parallel()

	_, db := integrationDB(t)
	ctx := context.Background()
	name := unique("periodic")

	occurrence := func() *queue.Task {
		return &queue.Task{
			ID: uuid.New(), Queue: "default", TaskType: queue.TaskTypePeriodic, TaskName: name,
			Status: queue.TaskStatusPending, MaxRetries: 3,
			ScheduledAt: time.Now().Add(time.Hour), CreatedAt: time.Now(),
		}
	}

	require.NoError(t, db.Tasks().CreateTask(ctx, occurrence()))
	err := db.Tasks().CreateTask(ctx, occurrence())
	assert.ErrorIs(t, err, queue.ErrDuplicateOccurrence)
}

func TestIntegrationDomains(t *testing.T) {
	t.Parallel()

	_, db := integrationDB(t)
	ctx := context.Background()
	domains := db.Domains()
	grace, other := createTenant(t, db), createTenant(t, db)

	first := &tenant.Domain{TenantID: grace.ID, Hostname: unique("first") + ".org", VerificationToken: "t1"}
	second := &tenant.Domain{TenantID: grace.ID, Hostname: unique("second") + ".org", VerificationToken: "t2"}
	require.NoError(t, domains.Add(ctx, first))
	require.NoError(t, domains.Add(ctx, second))

	t.Run("set primary swaps under the partial unique index", func(t *testing.T) {
		d, err := domains.SetPrimary(ctx, grace.ID, first.ID)
		require.NoError(t, err)
		assert.True(t, d.Primary)

		d, err = domains.SetPrimary(ctx, grace.ID, second.ID)
		require.NoError(t, err)
		assert.True(t, d.Primary)

		list, err := domains.ListByTenant(ctx, grace.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, d := range list {
			assert.Equal(t, d.ID == second.ID, d.Primary, d.Hostname)
		}
	})

	t.Run("another tenant cannot touch the domain", func(t *testing.T) {
		_, err := domains.SetPrimary(ctx, other.ID, first.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = domains.Get(ctx, other.ID, first.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("hostname lookup is case insensitive", func(t *testing.T) {
		found, err := db.Tenants().GetByHostname(ctx, "  "+strings.ToUpper(second.Hostname)+".")
		require.NoError(t, err)
		assert.Equal(t, grace.ID, found.ID)

		_, err = db.Tenants().GetByHostname(ctx, unique("missing")+".org")
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("hostnames are unique across tenants", func(t *testing.T) {
		err := domains.Add(ctx, &tenant.Domain{TenantID: other.ID, Hostname: first.Hostname, VerificationToken: "t3"})
		assert.ErrorIs(t, err, store.ErrConflict)
	})
}

func TestIntegrationFamilyBelongsToTenant(t *testing.T) {
	t.Parallel()

	_, db := integrationDB(t)
	grace, other := createTenant(t, db), createTenant(t, db)
	graceCtx := tenant.WithTenant(context.Background(), grace)
	otherCtx := tenant.WithTenant(context.Background(), other)

	family := &store.Family{Name: "Smith"}
	require.NoError(t, db.Families().Create(graceCtx, family))

	own := &store.Member{FirstName: "Ruth", LastName: "Smith", FamilyID: &family.ID}
	require.NoError(t, db.Members().Create(graceCtx, own))
	assert.Equal(t, grace.ID, own.TenantID)

	foreign := &store.Member{FirstName: "Eve", LastName: "Jones", FamilyID: &family.ID}
	err := db.Members().Create(otherCtx, foreign)
	assert.ErrorIs(t, err, store.ErrNotFound, "the composite key rejects another tenant's family")

	_, err = db.Members().Get(otherCtx, own.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIntegrationAuditRoundTrip(t *testing.T) {
	t.Parallel()

	_, db := integrationDB(t)
	ctx := context.Background()
	grace := createTenant(t, db)

	log, err := audit.NewLogger(db.Audit())
	require.NoError(t, err)
	require.NoError(t, log.Log(ctx, "domain.added",
		audit.WithTenant(grace.ID),
		audit.WithResource("domain", "grace.org"),
		audit.WithMetadata("primary", false),
	))
	require.NoError(t, log.Log(ctx, "tenant.status_changed", audit.WithTenant(grace.ID)))

	events, err := log.Find(ctx, audit.Criteria{TenantID: &grace.ID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "tenant.status_changed", events[0].Action)

	events, err = log.Find(ctx, audit.Criteria{TenantID: &grace.ID, Action: "domain.added"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "grace.org", events[0].ResourceID)
	assert.Equal(t, false, events[0].Metadata["primary"])
	assert.Equal(t, audit.ResultSuccess, events[0].Result)
}
