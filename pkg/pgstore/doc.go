// Package pgstore implements every store interface of the capability engine
// on Postgres through pgx, plus the usage counters.
//
// Queries are plain SQL. Nullable numeric columns map onto plan.Limit, NULL
// meaning unlimited. Postgres constraint violations are translated into the
// owning package's sentinel errors, so callers never see pgconn types.
//
// The schema ships as embedded goose migrations:
//
//	err := pg.Migrate(ctx, pool, cfg, pgstore.Migrations(), pg.MigrateUp, log)
package pgstore
