// Package pg provides utilities for PostgreSQL on top of the pgx/v5 driver:
// a pool constructor that waits for the database with exponential backoff,
// goose migrations from an embedded FS, and a transaction helper.
//
// # Usage
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//	    panic(err)
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    panic(err)
//	}
//	defer pool.Close()
//
//	if err := pg.MigrateFS(ctx, pool, migrations.FS, cfg, slog.Default()); err != nil {
//	    panic(err)
//	}
//
//	err = pg.WithTx(ctx, pool, func(ctx context.Context, tx pg.DBTX) error {
//	    _, err := tx.Exec(ctx, "UPDATE ...")
//	    return err
//	})
//
// # Error Handling
//
// Storages map IsNotFoundError to their own not-found sentinel. Every other
// failure is joined with a pg sentinel so callers can match it with errors.Is.
package pg
