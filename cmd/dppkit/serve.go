package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dppkit/dppkit/pkg/api"
	"github.com/dppkit/dppkit/pkg/billing"
	"github.com/dppkit/dppkit/pkg/httpserver"
	"github.com/dppkit/dppkit/pkg/logger"
	"github.com/dppkit/dppkit/pkg/pg"
	"github.com/dppkit/dppkit/pkg/pgstore"
	"github.com/dppkit/dppkit/pkg/ratelimit"
)

func newServeCmd(envFile *string) *cobra.Command {
	var (
		migrate       bool
		sweepInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.close()

			if migrate {
				if err := pg.Migrate(ctx, a.pool, a.cfg.Postgres, pgstore.Migrations(), pg.MigrateUp, a.log); err != nil {
					return err
				}
			}
			if a.cfg.SeedFile != "" {
				if _, err := applySeedFile(ctx, a, a.cfg.SeedFile); err != nil {
					return err
				}
			}

			limiter, err := ratelimit.New(a.cfg.RateLimit)
			if err != nil {
				return err
			}
			go limiter.Cleanup(ctx, 5*time.Minute)

			deps := api.Deps{
				Resolver:    a.resolver,
				Enforcer:    a.enforcer,
				Registry:    a.registry,
				Trials:      a.trials,
				Plans:       a.plans,
				Gatherer:    a.metrics,
				RateLimiter: limiter,
				Ready:       []func(context.Context) error{pg.Healthcheck(a.pool)},
				AdminToken:  a.cfg.AdminToken,
				Logger:      a.log,
			}
			if a.cfg.Paddle.WebhookSecret != "" {
				parser, err := billing.NewPaddle(a.cfg.Paddle.WebhookSecret)
				if err != nil {
					return err
				}
				deps.Billing = billing.NewHandler(a.subscriptions, parser, a.log)
			} else {
				a.log.WarnContext(ctx, "billing webhooks disabled: PADDLE_WEBHOOK_SECRET is not set")
			}
			if a.cfg.AdminToken == "" {
				a.log.InfoContext(ctx, "admin routes disabled: ADMIN_TOKEN is not set")
			}

			if sweepInterval > 0 {
				go runSweeper(ctx, a, sweepInterval)
			}

			srv := httpserver.NewFromConfig(a.cfg.HTTP, httpserver.WithLogger(a.log))
			if err := srv.Run(ctx, api.NewRouter(deps)); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	cmd.Flags().DurationVar(&sweepInterval, "sweep-interval", time.Hour, "how often trials without a model are expired; 0 disables")
	return cmd
}

// runSweeper degrades invalid trials until ctx is done.
func runSweeper(ctx context.Context, a *app, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		n, err := a.subscriptions.DegradeInvalidTrials(ctx)
		if err != nil && ctx.Err() == nil {
			a.log.ErrorContext(ctx, "trial sweep failed", logger.Component("sweeper"), logger.Error(err))
		} else if n > 0 {
			a.log.InfoContext(ctx, "trial sweep finished", logger.Component("sweeper"), slog.Int("expired", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
