// Package pgstore implements notifications.QueryStore on PostgreSQL with pgx.
//
// The schema ships as goose migrations embedded in Migrations:
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, pgCfg, log); err != nil {
//	    return err
//	}
//	store := pgstore.New(pool, pgstore.WithArchive(cfg.Purge.ArchiveEnabled))
//	core := notifications.New(store)
//
// Bulk inserts use a single INSERT ... SELECT FROM unnest statement with
// ON CONFLICT DO NOTHING, so retried batches never fail on rows that were
// already written.
package pgstore
