package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dppkit/dppkit/pkg/pg"
	"github.com/dppkit/dppkit/pkg/pgstore"
)

func newMigrateCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or list database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(pg.MigrateUp), string(pg.MigrateDown), string(pg.MigrateStatus)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, pool, err := connect(ctx, *envFile)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pg.Migrate(ctx, pool, cfg.Postgres, pgstore.Migrations(), pg.Direction(args[0]), log); err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			return nil
		},
	}
}
