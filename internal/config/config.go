package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Cache backends for upstream responses.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// IEM upstream services.
	IEMBaseURL     string
	IEMTimeout     time.Duration
	IEMMaxAttempts int
	ReloadTimeout  time.Duration

	// Upstream response cache.
	CacheBackend string
	CacheSize    int
	CacheTTL     time.Duration
	RedisAddr    string

	// View-record audit topic.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	MaxNotifyDepth int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	iemTimeout, err := parsePositiveDuration("IEM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	reloadTimeout, err := parsePositiveDuration("RELOAD_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	maxAttempts, err := parsePositiveInt("IEM_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	maxDepth, err := parsePositiveInt("STATE_MAX_NOTIFY_DEPTH", 16)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		IEMBaseURL:     sharedcfg.EnvOrDefault("IEM_BASE_URL", "https://mesonet.agron.iastate.edu"),
		IEMTimeout:     iemTimeout,
		IEMMaxAttempts: maxAttempts,
		ReloadTimeout:  reloadTimeout,

		CacheBackend: sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheMemory),
		CacheSize:    cacheSize,
		CacheTTL:     cacheTTL,
		RedisAddr:    sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "vtec-event-views"),

		MaxNotifyDepth: maxDepth,
	}

	if cfg.IEMBaseURL == "" {
		return nil, errors.New("IEM_BASE_URL is required")
	}
	switch cfg.CacheBackend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q", cfg.CacheBackend)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
