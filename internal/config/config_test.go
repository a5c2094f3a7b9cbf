package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://mesonet.agron.iastate.edu", cfg.IEMBaseURL)
	assert.Equal(t, 10*time.Second, cfg.IEMTimeout)
	assert.Equal(t, 3, cfg.IEMMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.ReloadTimeout)
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, 1000, cfg.CacheSize)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "vtec-event-views", cfg.KafkaTopic)
	assert.Equal(t, 16, cfg.MaxNotifyDepth)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("IEM_BASE_URL", "http://localhost:8000")
	t.Setenv("IEM_TIMEOUT", "2s")
	t.Setenv("IEM_MAX_ATTEMPTS", "1")
	t.Setenv("RELOAD_TIMEOUT", "1m")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_SIZE", "50")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "views")
	t.Setenv("STATE_MAX_NOTIFY_DEPTH", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:8000", cfg.IEMBaseURL)
	assert.Equal(t, 2*time.Second, cfg.IEMTimeout)
	assert.Equal(t, 1, cfg.IEMMaxAttempts)
	assert.Equal(t, time.Minute, cfg.ReloadTimeout)
	assert.Equal(t, CacheRedis, cfg.CacheBackend)
	assert.Equal(t, 50, cfg.CacheSize)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "views", cfg.KafkaTopic)
	assert.Equal(t, 4, cfg.MaxNotifyDepth)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidIEMTimeout(t *testing.T) {
	t.Setenv("IEM_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IEM_TIMEOUT")
}

func TestLoad_NegativeReloadTimeout(t *testing.T) {
	t.Setenv("RELOAD_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RELOAD_TIMEOUT")
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	t.Setenv("CACHE_TTL", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoad_InvalidCacheSize(t *testing.T) {
	t.Setenv("CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_SIZE")
}

func TestLoad_InvalidCacheBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_BACKEND")
}

func TestLoad_InvalidNotifyDepth(t *testing.T) {
	t.Setenv("STATE_MAX_NOTIFY_DEPTH", "x")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATE_MAX_NOTIFY_DEPTH")
}

func TestLoad_KafkaDisabledUnlessTrue(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "yes")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidIEMMaxAttempts(t *testing.T) {
	t.Setenv("IEM_MAX_ATTEMPTS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IEM_MAX_ATTEMPTS")
}
