package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/churchly/backend/pkg/pg"
	"github.com/churchly/backend/pkg/registry"
)

// CatalogRepo persists catalog rows for registry.Reconcile.
type CatalogRepo struct {
	db DB
}

func NewCatalogRepo(db DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func catalogTable(kind registry.Kind) (string, error) {
	switch kind {
	case registry.KindPermission:
		return "permissions", nil
	case registry.KindFeature:
		return "features", nil
	default:
		return "", fmt.Errorf("%w: %s", registry.ErrUnknownKind, kind)
	}
}

func (r *CatalogRepo) Keys(ctx context.Context, kind registry.Kind) ([]string, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT key FROM `+table+` ORDER BY key`)
	if err != nil {
		return nil, wrap("catalogRepo.Keys", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrap("catalogRepo.Keys", err)
	}
	return keys, nil
}

// Upsert writes all entries of kind in one transaction using a batch.
func (r *CatalogRepo) Upsert(ctx context.Context, kind registry.Kind, entries []registry.Entry) error {
	table, err := catalogTable(kind)
	if err != nil {
		return err
	}

	err = pg.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(
				`INSERT INTO `+table+` (key, name, description, grp) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (key) DO UPDATE SET
				     name = EXCLUDED.name, description = EXCLUDED.description,
				     grp = EXCLUDED.grp, updated_at = now()`,
				e.Key, e.Name, e.Description, e.Group,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	return wrap("catalogRepo.Upsert", err)
}

func (r *CatalogRepo) Delete(ctx context.Context, kind registry.Kind, keys []string) error {
	table, err := catalogTable(kind)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `DELETE FROM `+table+` WHERE key = ANY($1)`, keys)
	return wrap("catalogRepo.Delete", err)
}

var _ registry.Store = (*CatalogRepo)(nil)
