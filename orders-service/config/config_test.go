package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/draftea/order-saga/orders-service/infrastructure"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_LocalFile(t *testing.T) {
	cfg, err := readConfig(viper.New(), "local", ".")
	require.NoError(t, err)

	assert.Equal(t, "orders-service", cfg.ServiceName)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 5*time.Second, cfg.Saga.StageTimeout)
	assert.Equal(t, 3, cfg.Saga.MaxRetries)
	assert.Equal(t, time.Minute, cfg.Saga.RetryCooldown)
	assert.Equal(t, 24*time.Hour, cfg.Saga.DedupRetention)
	assert.Equal(t, 0.1, cfg.Workers.FailureRates["authorize_payment"])
	assert.Equal(t, 20*time.Millisecond, cfg.Workers.Latency)
}

func TestReadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ORDERS_PORT", "9090")
	t.Setenv("ORDERS_SAGA_MAX_RETRIES", "5")
	t.Setenv("ORDERS_SAGA_STAGE_TIMEOUT", "2s")
	t.Setenv("ORDERS_REDIS_ENABLED", "true")

	cfg, err := readConfig(viper.New(), "missing", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.Saga.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Saga.StageTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Redis.DedupTTL)
}

func TestReadConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600))

	_, err := readConfig(viper.New(), "broken", dir)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:    "8080",
			Storage: StorageMemory,
			Saga: Saga{
				StageTimeout:  time.Second,
				MaxRetries:    3,
				RetryCooldown: time.Minute,
				SweepInterval: time.Second,
			},
			Workers: Workers{Mode: WorkersSimulated},
		}
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		expectedError string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero stage timeout", mutate: func(c *Config) { c.Saga.StageTimeout = 0 }, expectedError: "saga.stage_timeout must be positive"},
		{name: "negative retry budget", mutate: func(c *Config) { c.Saga.MaxRetries = -1 }, expectedError: "saga.max_retries must be positive"},
		{name: "zero cooldown", mutate: func(c *Config) { c.Saga.RetryCooldown = 0 }, expectedError: "saga.retry_cooldown must be positive"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage = "sqlite" }, expectedError: "storage must be"},
		{name: "http workers without url", mutate: func(c *Config) { c.Workers.Mode = WorkersHTTP }, expectedError: "workers.base_url is required"},
		{name: "failure rate above one", mutate: func(c *Config) {
			c.Workers.FailureRates = map[string]float64{"ship_order": 1.5}
		}, expectedError: "workers.failure_rates.ship_order"},
		{name: "publishing without topic", mutate: func(c *Config) { c.AWS.PublishEnabled = true }, expectedError: "aws.sns_topic_arn is required"},
		{name: "subscribing without queue", mutate: func(c *Config) { c.AWS.SubscribeEnabled = true }, expectedError: "aws.sqs_queue_url is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.expectedError)
		})
	}
}

func TestConfig_GetDatabaseURL(t *testing.T) {
	cfg := &Config{Database: Database{
		Host: "db", Port: 5433, User: "saga", Password: "secret", Database: "orders", SSLMode: "require",
	}}
	assert.Equal(t, "postgres://saga:secret@db:5433/orders?sslmode=require", cfg.GetDatabaseURL())

	cfg.Database.URL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.GetDatabaseURL())
}

func TestBuildDependencies_Memory(t *testing.T) {
	cfg, err := readConfig(viper.New(), "local", ".")
	require.NoError(t, err)
	cfg.Telemetry.Enabled = false
	cfg.Workers.RateLimit = 100

	deps, err := BuildDependencies(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	assert.Nil(t, deps.DB)
	assert.Nil(t, deps.EventSubscriber)
	assert.IsType(t, &infrastructure.MemoryEventLog{}, deps.EventLog)
	assert.IsType(t, &infrastructure.RateLimitedWorker{}, deps.Worker)
	assert.NotNil(t, deps.UseCases.CreateOrder)
	assert.NotNil(t, deps.Sweeper)
	assert.NotNil(t, deps.OrderHandlers)
}
