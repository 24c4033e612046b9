// Package jobs holds the background tasks of the application and the
// usage counters the plan gate reconciles against.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/pkg/limits"
	"github.com/churchly/backend/pkg/logger"
	"github.com/churchly/backend/pkg/queue"
	"github.com/churchly/backend/pkg/tenant"
)

// SyncUsageTask is the periodic task that fans usage reconciliation out to
// every active tenant.
const SyncUsageTask = "limits.sync_usage"

// DirectoryReport asks for a member directory summary of the bound tenant.
type DirectoryReport struct {
	RequestedAt time.Time `json:"requested_at"`
}

// SyncUsage reconciles the usage counters of the bound tenant.
type SyncUsage struct{}

// DirectorySummary is the outcome of a DirectoryReport.
type DirectorySummary struct {
	TenantID   int64
	Families   int
	Members    int64
	Unassigned int
	BySize     map[string]int
}

// Deps are the collaborators of the job handlers.
type Deps struct {
	Tenants  store.TenantRepository
	Members  store.MemberRepository
	Families store.FamilyRepository
	Gate     *limits.Gate
	Enqueuer queue.TenantDispatcher
	Logger   *slog.Logger

	// OnDirectory receives every generated summary. Optional.
	OnDirectory func(ctx context.Context, s DirectorySummary)
}

// Handlers returns every task handler to register on the worker.
// Tenant scoped handlers refuse to run unbound.
func Handlers(d Deps) []queue.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	log := d.Logger.With(logger.Component("jobs"))

	return []queue.Handler{
		queue.RequireTenant(queue.NewTaskHandler(func(ctx context.Context, _ DirectoryReport) error {
			summary, err := BuildDirectory(ctx, d.Members, d.Families)
			if err != nil {
				return err
			}
			log.InfoContext(ctx, "directory report generated",
				slog.Int("families", summary.Families),
				slog.Int64("members", summary.Members),
				slog.Int("unassigned", summary.Unassigned))
			if d.OnDirectory != nil {
				d.OnDirectory(ctx, summary)
			}
			return nil
		})),
		queue.RequireTenant(queue.NewTaskHandler(func(ctx context.Context, _ SyncUsage) error {
			return d.Gate.SyncUsage(ctx, nil)
		})),
		queue.FanOut(SyncUsageTask, d.Tenants.ListActive, d.Enqueuer, func(*tenant.Tenant) any {
			return SyncUsage{}
		}),
	}
}

// Schedule registers the periodic tasks.
func Schedule(s *queue.Scheduler) error {
	return s.AddTask(SyncUsageTask, queue.DailyAt(3, 0))
}

// BuildDirectory summarises the families and members visible through the
// tenant scope of ctx. Members are read page by page.
func BuildDirectory(ctx context.Context, members store.MemberRepository, families store.FamilyRepository) (DirectorySummary, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return DirectorySummary{}, tenant.ErrNoTenantInContext
	}

	fams, err := families.List(ctx)
	if err != nil {
		return DirectorySummary{}, fmt.Errorf("list families: %w", err)
	}

	summary := DirectorySummary{TenantID: t.ID, Families: len(fams), BySize: map[string]int{}}
	sizes := make(map[int64]int, len(fams))
	for _, f := range fams {
		sizes[f.ID] = 0
	}

	filter := store.MemberFilter{Limit: store.DefaultPageSize}
	for {
		page, err := members.List(ctx, filter)
		if err != nil {
			return DirectorySummary{}, fmt.Errorf("list members: %w", err)
		}
		for _, m := range page {
			summary.Members++
			if m.FamilyID == nil {
				summary.Unassigned++
				continue
			}
			sizes[*m.FamilyID]++
		}
		if len(page) < filter.PageSize() {
			break
		}
		filter.Offset += len(page)
	}

	for _, n := range sizes {
		summary.BySize[sizeBucket(n)]++
	}
	return summary, nil
}

func sizeBucket(n int) string {
	switch {
	case n == 0:
		return "empty"
	case n == 1:
		return "single"
	case n <= 4:
		return "small"
	default:
		return "large"
	}
}

// Counters returns the authoritative usage counters for the plan gate.
// They ignore the ambient binding and count the tenant they are asked for.
func Counters(members store.MemberRepository, families store.FamilyRepository, domains store.DomainRepository) limits.CounterRegistry {
	reg := limits.NewRegistry()
	reg.Register(limits.ResourceMembers, func(ctx context.Context, tenantID int64) (int64, error) {
		return members.ForTenant(tenantID).Count(ctx)
	})
	reg.Register(limits.ResourceFamilies, func(ctx context.Context, tenantID int64) (int64, error) {
		return families.ForTenant(tenantID).Count(ctx)
	})
	reg.Register(limits.ResourceDomains, func(ctx context.Context, tenantID int64) (int64, error) {
		list, err := domains.ListByTenant(ctx, tenantID)
		return int64(len(list)), err
	})
	return reg
}
