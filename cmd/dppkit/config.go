package main

import (
	"github.com/dppkit/dppkit/pkg/billing"
	"github.com/dppkit/dppkit/pkg/config"
	"github.com/dppkit/dppkit/pkg/httpserver"
	"github.com/dppkit/dppkit/pkg/pg"
	"github.com/dppkit/dppkit/pkg/ratelimit"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"dppkit"`
	LogLevel string `env:"LOG_LEVEL"`

	// AdminToken enables the /v1/admin routes when set.
	AdminToken string `env:"ADMIN_TOKEN"`
	// SeedFile is applied on serve start when set.
	SeedFile string `env:"SEED_FILE"`

	Postgres  pg.Config
	HTTP      httpserver.Config
	Paddle    billing.PaddleConfig
	RateLimit ratelimit.Config
}

func loadConfig(envFile string) (appConfig, error) {
	return config.Load[appConfig](config.WithEnvFiles(envFile))
}
