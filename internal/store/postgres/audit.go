package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/churchly/backend/pkg/audit"
	"github.com/churchly/backend/pkg/pg"
)

const auditColumns = `id, tenant_id, action, resource, resource_id, result, error, request_id, ip, metadata, created_at`

// AuditRepo implements audit.Storage. Events belong to the platform: reads
// filter by an explicit tenant rather than the bound one.
type AuditRepo struct {
	db pg.DBTX
}

func NewAuditRepo(db pg.DBTX) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Store(ctx context.Context, e audit.Event) error {
	var meta any
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("auditRepo.Store: metadata: %w", err)
		}
		meta = json.RawMessage(b)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_events (`+auditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.TenantID, e.Action, e.Resource, e.ResourceID, e.Result, e.Error, e.RequestID, e.IP, meta, e.CreatedAt,
	)
	return wrap("auditRepo.Store", err)
}

func (r *AuditRepo) Query(ctx context.Context, c audit.Criteria) ([]audit.Event, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_events WHERE true`
	var args []any
	if c.TenantID != nil {
		args = append(args, *c.TenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if c.Action != "" {
		args = append(args, c.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	args = append(args, c.PageSize())
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("auditRepo.Query", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var (
			e    audit.Event
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Action, &e.Resource, &e.ResourceID, &e.Result,
			&e.Error, &e.RequestID, &e.IP, &meta, &e.CreatedAt); err != nil {
			return nil, wrap("auditRepo.Query: scan", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("auditRepo.Query: metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("auditRepo.Query: rows", err)
	}
	return events, nil
}

var _ audit.Storage = (*AuditRepo)(nil)
