// Package pg bootstraps the Postgres connection pool used by the stores in
// pkg/pgstore.
//
// Connect opens a pgx pool and retries until the database answers. Migrate
// applies embedded goose migrations through the pgx stdlib bridge. The error
// helpers classify *pgconn.PgError values so stores can map unique, foreign
// key and CHECK violations onto their own sentinel errors.
//
//	cfg, err := config.Load[pg.Config]()
//	pool, err := pg.Connect(ctx, cfg)
//	defer pool.Close()
//	err = pg.Migrate(ctx, pool, cfg, pgstore.Migrations(), pg.MigrateUp, log)
package pg
