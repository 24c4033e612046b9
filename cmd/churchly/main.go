// Command churchly runs the multi-tenant API, the background worker and the
// periodic scheduler in one process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/churchly/backend/internal/api"
	"github.com/churchly/backend/internal/jobs"
	"github.com/churchly/backend/internal/store/postgres"
	"github.com/churchly/backend/internal/tenancy"
	"github.com/churchly/backend/pkg/audit"
	"github.com/churchly/backend/pkg/clientip"
	"github.com/churchly/backend/pkg/config"
	"github.com/churchly/backend/pkg/feature"
	"github.com/churchly/backend/pkg/httpserver"
	"github.com/churchly/backend/pkg/limits"
	"github.com/churchly/backend/pkg/logger"
	"github.com/churchly/backend/pkg/pg"
	"github.com/churchly/backend/pkg/queue"
	"github.com/churchly/backend/pkg/redis"
	"github.com/churchly/backend/pkg/registry"
	"github.com/churchly/backend/pkg/requestid"
	"github.com/churchly/backend/pkg/tenant"
	"github.com/churchly/backend/pkg/tenantscope"
)

type settings struct {
	App     config.App
	PG      pg.Config
	Redis   redis.Config
	HTTP    httpserver.Config
	Queue   queue.Config
	Tenant  tenant.Config
	Tenancy tenancy.Config
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("startup failed", logger.Error(err))
		os.Exit(1)
	}
}

func loadSettings() (settings, error) {
	var s settings
	for _, load := range []func() error{
		func() error { return config.Load(&s.App) },
		func() error { return config.Load(&s.PG) },
		func() error { return config.Load(&s.Redis) },
		func() error { return config.Load(&s.HTTP) },
		func() error { return config.Load(&s.Queue) },
		func() error { return config.Load(&s.Tenant) },
		func() error { return config.Load(&s.Tenancy) },
	} {
		if err := load(); err != nil {
			return s, err
		}
	}
	return s, nil
}

func run(ctx context.Context) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.App.Env, cfg.App.Name),
		logger.WithLevelName(cfg.App.LogLevel),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			tenant.LoggerExtractor(),
			queue.LoggerExtractor(),
		),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.PG.AutoMigrate {
		if err := pg.Migrate(ctx, pool, cfg.PG, postgres.Migrations, postgres.MigrationsDir, log); err != nil {
			return err
		}
	}

	auditLog, err := audit.NewLogger(postgres.NewAuditRepo(pool),
		audit.WithTenantExtractor(tenant.IDFromContext),
		audit.WithRequestIDExtractor(audit.NonEmpty(requestid.FromContext)),
		audit.WithIPExtractor(audit.NonEmpty(clientip.FromContext)),
	)
	if err != nil {
		return err
	}

	db := postgres.New(pool, tenantscope.New(tenantscope.WithLogger(log), tenantscope.WithAudit(auditLog)))
	checks := map[string]httpserver.Check{"postgres": pg.Healthcheck(pool)}

	var (
		cache tenant.Cache
		usage limits.UsageStore
	)
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		cache = tenant.NewRedisCache(client, cfg.Redis.KeyPrefix+tenant.DefaultRedisPrefix)
		usage = limits.NewRedisUsageStore(client, cfg.Redis.KeyPrefix+"usage:")
		checks["redis"] = redis.Healthcheck(client)
	} else {
		log.WarnContext(ctx, "redis disabled, tenant cache and usage counters are per process")
		cache = tenant.NewInMemoryCacheWithSize(cfg.Tenant.CacheSize)
		usage = limits.NewMemoryUsageStore()
	}
	defer cache.Close()

	provider := tenant.NewCachedProvider(db.Tenants(), cache, cfg.Tenant.CacheTTL, log)

	catalog, err := registry.Load(cfg.App.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if _, err := registry.Reconcile(ctx, db.Catalog(), catalog, registry.WithLogger(log)); err != nil {
		return err
	}
	flags, err := feature.NewMemoryProvider(catalog.Flags()...)
	if err != nil {
		return err
	}

	gate, err := limits.NewGate(ctx, limits.NewInMemSource(catalog.PlanMap()), usage,
		limits.WithOverrides(db.Overrides()),
		limits.WithFlags(flags),
		limits.WithCounters(jobs.Counters(db.Members(), db.Families(), db.Domains())),
		limits.WithLogger(log),
	)
	if err != nil {
		return err
	}

	svc, err := tenancy.New(db.Tenants(), db.Domains(), gate, cfg.Tenant, cfg.Tenancy,
		tenancy.WithInvalidator(provider),
		tenancy.WithLogger(log),
		tenancy.WithAudit(auditLog),
	)
	if err != nil {
		return err
	}

	enqueuer, err := queue.NewEnqueuer(db.Tasks())
	if err != nil {
		return err
	}
	worker, err := queue.NewWorker(db.Tasks(),
		queue.WithQueues(cfg.Queue.Queues...),
		queue.WithPullInterval(cfg.Queue.PollInterval),
		queue.WithLockTimeout(cfg.Queue.LockTimeout),
		queue.WithMaxConcurrentTasks(cfg.Queue.MaxConcurrentTasks),
		queue.WithTenantLoader(provider.GetByID),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return err
	}
	worker.RegisterHandlers(jobs.Handlers(jobs.Deps{
		Tenants:  db.Tenants(),
		Members:  db.Members(),
		Families: db.Families(),
		Gate:     gate,
		Enqueuer: enqueuer,
		Logger:   log,
		OnDirectory: func(ctx context.Context, s jobs.DirectorySummary) {
			log.InfoContext(ctx, "directory report ready",
				slog.Int("families", s.Families),
				slog.Int64("members", s.Members),
				slog.Int("unassigned", s.Unassigned),
			)
		},
	})...)

	scheduler, err := queue.NewScheduler(db.Tasks(),
		queue.WithCheckInterval(cfg.Queue.SchedulerInterval),
		queue.WithSchedulerLogger(log),
	)
	if err != nil {
		return err
	}
	if err := jobs.Schedule(scheduler); err != nil {
		return err
	}

	router := api.NewRouter(api.Config{
		Resolver: tenant.NewResolver(cfg.Tenant, provider),
		Tenancy:  cfg.Tenant,
		Service:  svc,
		Gate:     gate,
		Members:  db.Members(),
		Families: db.Families(),
		Domains:  db.Domains(),
		Enqueuer: enqueuer,
		Audit:    auditLog,
		Checks:   checks,
		Logger:   log,
	})
	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx, router) })
	g.Go(worker.Run(ctx))
	g.Go(scheduler.Run(ctx))

	log.InfoContext(ctx, "churchly started", slog.String("addr", cfg.HTTP.Addr))
	return g.Wait()
}
