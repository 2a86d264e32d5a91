package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dppkit/dppkit/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	names := make([]string, 0)
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "migrate", "seed", "sweep", "resolve", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dppkit dev")
}

func TestMigrateCmd_RejectsUnknownDirection(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "migrate", "sideways")
	assert.Error(t, err)

	_, err = execute(t, "migrate")
	assert.Error(t, err)
}

func TestResolveCmd_RequiresValidOrg(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "resolve")
	require.Error(t, err)

	_, err = execute(t, "resolve", "--org", "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --org")
}

func TestSeedCmd_DryRun(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "seed", "--dry-run", "../../pkg/seed/testdata/catalog.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	_, err = execute(t, "seed", "--dry-run", "testdata/missing.yaml")
	assert.Error(t, err)
}

func TestAppConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load[appConfig](config.WithEnvironment(map[string]string{
		"APP_ENV":               "production",
		"PG_CONN_URL":           "postgres://localhost:5432/dppkit",
		"HTTP_ADDR":             ":9090",
		"PADDLE_WEBHOOK_SECRET": "pdl_ntfset_secret",
		"ADMIN_TOKEN":           "token",
	}))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "dppkit", cfg.Name)
	assert.Equal(t, "postgres://localhost:5432/dppkit", cfg.Postgres.ConnectionString)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "pdl_ntfset_secret", cfg.Paddle.WebhookSecret)
	assert.Equal(t, "dppkit_schema_migrations", cfg.Postgres.MigrationsTable)
	assert.Equal(t, 120, cfg.RateLimit.Capacity)

	_, err = config.Load[appConfig](config.WithEnvironment(map[string]string{}))
	assert.ErrorIs(t, err, config.ErrParsingConfig, "PG_CONN_URL is required")
}
