package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dppkit/dppkit/pkg/capability"
	"github.com/dppkit/dppkit/pkg/logger"
	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/org"
	"github.com/dppkit/dppkit/pkg/pg"
	"github.com/dppkit/dppkit/pkg/pgstore"
	"github.com/dppkit/dppkit/pkg/registry"
	"github.com/dppkit/dppkit/pkg/requestid"
	"github.com/dppkit/dppkit/pkg/seed"
	"github.com/dppkit/dppkit/pkg/subscription"
	"github.com/dppkit/dppkit/pkg/trial"
	"github.com/dppkit/dppkit/pkg/usage"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg  appConfig
	log  *slog.Logger
	pool *pgxpool.Pool

	manifest      *manifest.Manifest
	plans         *pgstore.PlanStore
	registry      *registry.Service
	trials        *trial.Service
	subscriptions subscription.Service
	resolver      *capability.Resolver
	enforcer      *usage.Enforcer
	metrics       *prometheus.Registry
}

func newLogger(cfg appConfig) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor(), org.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	return logger.New(opts...)
}

// connect opens the pool without wiring any services.
func connect(ctx context.Context, envFile string) (appConfig, *slog.Logger, *pgxpool.Pool, error) {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return cfg, nil, nil, err
	}
	log := newLogger(cfg)
	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return cfg, log, nil, err
	}
	return cfg, log, pool, nil
}

func newApp(ctx context.Context, envFile string) (*app, error) {
	cfg, log, pool, err := connect(ctx, envFile)
	if err != nil {
		return nil, err
	}

	m := manifest.Default()
	plans := pgstore.NewPlanStore(pool)
	subs := pgstore.NewSubscriptionStore(pool)
	snapshots := pgstore.NewSnapshotStore(pool)
	registryStore := pgstore.NewRegistryStore(pool)
	trialStore := pgstore.NewTrialStore(pool)

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	resolver := capability.New(m, registryStore, subs, plans, snapshots, trialStore,
		capability.WithLogger(log),
		capability.WithMetrics(capability.NewMetrics(metrics)),
	)

	counters := usage.NewRegistry()
	pgstore.NewCounters(pool).RegisterCounters(counters)

	return &app{
		cfg:           cfg,
		log:           log,
		pool:          pool,
		manifest:      m,
		plans:         plans,
		registry:      registry.NewService(m, registryStore),
		trials:        trial.NewService(m, plans, trialStore),
		subscriptions: subscription.NewService(subs, plans, snapshots, subscription.WithLogger(log)),
		resolver:      resolver,
		enforcer:      usage.NewEnforcer(resolver, counters),
		metrics:       metrics,
	}, nil
}

func (a *app) seeder() *seed.Seeder {
	return seed.NewSeeder(a.manifest, a.registry, a.plans, a.trials, seed.WithLogger(a.log))
}

func (a *app) close() {
	a.pool.Close()
}
