package postgres_test

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	sql  string
	args []any
}

// recordingDB captures statements. QueryRow scans with row, Exec reports
// tag and Query returns no rows.
type recordingDB struct {
	mu    sync.Mutex
	calls []call
	row   func(dest ...any) error
	tag   pgconn.CommandTag
	err   error
}

func (db *recordingDB) record(sql string, args []any) {
	db.mu.Lock()
	db.calls = append(db.calls, call{sql: sql, args: args})
	db.mu.Unlock()
}

func (db *recordingDB) last() call {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.calls) == 0 {
		return call{}
	}
	return db.calls[len(db.calls)-1]
}

func (db *recordingDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.record(sql, args)
	return db.tag, db.err
}

func (db *recordingDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.record(sql, args)
	if db.err != nil {
		return nil, db.err
	}
	return &emptyRows{}, nil
}

func (db *recordingDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.record(sql, args)
	return rowFunc(func(dest ...any) error {
		if db.row == nil {
			return pgx.ErrNoRows
		}
		return db.row(dest...)
	})
}

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

type emptyRows struct{}

func (emptyRows) Close()                                       {}
func (emptyRows) Err() error                                   { return nil }
func (emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT 0") }
func (emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (emptyRows) Next() bool                                   { return false }
func (emptyRows) Scan(...any) error                            { return nil }
func (emptyRows) Values() ([]any, error)                       { return nil, nil }
func (emptyRows) RawValues() [][]byte                          { return nil }
func (emptyRows) Conn() *pgx.Conn                              { return nil }

// Begin hands out a transaction that records into the same db.
func (db *recordingDB) Begin(context.Context) (pgx.Tx, error) {
	return &recordingTx{db: db}, nil
}

type recordingTx struct {
	pgx.Tx
	db *recordingDB
}

func (tx *recordingTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return tx.db.Exec(ctx, sql, args...)
}

func (tx *recordingTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return tx.db.QueryRow(ctx, sql, args...)
}

func (tx *recordingTx) Commit(context.Context) error   { return nil }
func (tx *recordingTx) Rollback(context.Context) error { return nil }
