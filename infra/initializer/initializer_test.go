package initializer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/bankcore/infra/eventbus"
	"github.com/amirasaad/bankcore/infra/memory"
	"github.com/amirasaad/bankcore/pkg/config"
	"github.com/amirasaad/bankcore/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.App {
	return &config.App{
		Env:     "test",
		Log:     &config.Log{Format: "text", TimeFormat: time.RFC3339},
		DB:      &config.DB{Driver: "memory"},
		Redis:   &config.Redis{},
		Metrics: &config.Metrics{Enabled: true, Namespace: "bankcore_test"},
		Money:   &config.Money{Scale: 2},
	}
}

func TestInitializeDependencies_MemoryDefaults(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	deps, cleanup, err := InitializeDependencies(context.Background(), testConfig())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &memory.Store{}, deps.Uow)
	assert.IsType(t, &eventbus.MemoryEventBus{}, deps.EventBus)
	require.NotNil(t, deps.Registry)
	families, err := deps.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestInitializeDependencies_MetricsDisabled(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	cfg := testConfig()
	cfg.Metrics.Enabled = false

	deps, cleanup, err := InitializeDependencies(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, metrics.Nop{}, deps.Metrics)
	assert.Nil(t, deps.Registry)
}

func TestInitializeDependencies_Errors(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	tests := []struct {
		name   string
		mutate func(*config.App)
	}{
		{"unknown driver", func(c *config.App) { c.DB.Driver = "oracle" }},
		{"postgres without url", func(c *config.App) { c.DB.Driver = "postgres" }},
		{"bad redis url", func(c *config.App) { c.Redis.URL = "://nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			deps, cleanup, err := InitializeDependencies(context.Background(), cfg)
			assert.Error(t, err)
			assert.Nil(t, deps)
			assert.Nil(t, cleanup)
		})
	}
}

func TestSetupLogger_Formats(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	var buf bytes.Buffer
	logger := setupLogger(&buf, &config.Log{Format: "json", Prefix: "[bankcore]"})
	logger.Info("transfer completed", "transaction_id", "abc")
	assert.Contains(t, buf.String(), `"msg":"transfer completed"`)
	assert.Contains(t, buf.String(), `"transaction_id":"abc"`)

	buf.Reset()
	logger = setupLogger(&buf, &config.Log{Format: "text", Level: 4})
	logger.Info("hidden")
	logger.Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
