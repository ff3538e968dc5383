// Package pg wires PostgreSQL connectivity for the notification stores using
// pgx/v5: a retrying pool constructor, a health check, goose migrations run
// from an embedded filesystem, and helpers that classify pgx errors.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
//	    return err
//	}
package pg
