// Package pg connects to PostgreSQL through pgxpool and applies goose
// migrations from an embedded filesystem.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, migrations.FS, ".", logger); err != nil {
//		return err
//	}
//
// WithTx wraps a function in a transaction. The Is*Error helpers classify
// pgx and PostgreSQL errors (no rows, unique and foreign key violations).
package pg
