package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "all", cfg.Server.Role)
	assert.Equal(t, "price-lists", cfg.Storage.Bucket)
	assert.Equal(t, "pending", cfg.Storage.PendingPrefix)
	assert.Equal(t, "price.updates", cfg.Broker.Exchange)
	assert.Equal(t, 24*time.Hour, cfg.Broker.MessageTTL)
	assert.Equal(t, 4, cfg.Publisher.Workers)
	assert.Equal(t, uint(3), cfg.Publisher.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Publisher.Retry.InitialInterval)
	assert.Equal(t, 5*time.Minute, cfg.Dedup.TTL)
	assert.Equal(t, 30*time.Minute, cfg.Aggregator.BatchTimeout)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Search.Addresses)
	assert.Equal(t, time.Minute, cfg.Sellers.CacheTTL)
	assert.Equal(t, 15*time.Minute, cfg.Integrity.BacklogAge)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ROLE", "ingest")
	t.Setenv("PUBLISHER_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("AGGREGATOR_BATCH_TIMEOUT", "90s")
	t.Setenv("SEARCH_ADDRESSES", "http://es1:9200,http://es2:9200")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "ingest", cfg.Server.Role)
	assert.Equal(t, uint(5), cfg.Publisher.Retry.MaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Aggregator.BatchTimeout)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.Search.Addresses)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATABASE_DRIVER=sqlite\nDATABASE_NAME=:memory:\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DATABASE_DRIVER")
		os.Unsetenv("DATABASE_NAME")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.Name)
}
