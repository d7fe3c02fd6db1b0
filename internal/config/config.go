// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	ServiceName    = "order-management-api"
	ServiceVersion = "1.0.0"

	DefaultDatabaseURL = "sqlite:///./ecommerce.db"
)

// Config holds configuration knobs for the HTTP server, storage, cache and
// the order event workers.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	DatabaseURL    string
	DBMaxOpenConns int

	CacheTTL               time.Duration
	CacheInvalidateOnWrite bool

	OtelEndpoint   string
	OtelAuthHeader string

	KafkaBroker string
	KafkaTopic  string

	Events Events
}

// Events configures the order event worker pool.
type Events struct {
	InitialWorkerCount      int
	WorkerMin               int
	WorkerMax               int
	ScaleInterval           time.Duration
	ScaleUpBacklogPerWorker int
	ScaleDownIdleTicks      int
	QueueHighWatermark      int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durenvms(key string, defMs int) time.Duration {
	return time.Duration(atoienv(key, defMs)) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	minWorkers := atoienv("EVENT_WORKER_MIN", 1)
	maxWorkers := atoienv("EVENT_WORKER_MAX", 4)
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	return Config{
		HTTPAddr:               getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:        durenvs("SHUTDOWN_TIMEOUT", 15),
		LogLevel:               getenv("LOG_LEVEL", "info"),
		DatabaseURL:            getenv("DATABASE_URL", DefaultDatabaseURL),
		DBMaxOpenConns:         atoienv("DB_MAX_OPEN_CONNS", 10),
		CacheTTL:               durenvs("CACHE_TTL_SECONDS", 300),
		CacheInvalidateOnWrite: boolenv("CACHE_INVALIDATE_ON_WRITE", false),
		OtelEndpoint:           getenv("OTEL_ENDPOINT", ""),
		OtelAuthHeader:         getenv("OTEL_AUTH_HEADER", ""),
		KafkaBroker:            getenv("KAFKA_BROKER", ""),
		KafkaTopic:             getenv("KAFKA_TOPIC", "OrderCreated"),
		Events: Events{
			InitialWorkerCount:      atoienv("EVENT_WORKER_COUNT", minWorkers),
			WorkerMin:               minWorkers,
			WorkerMax:               maxWorkers,
			ScaleInterval:           durenvms("EVENT_SCALE_INTERVAL_MS", 500),
			ScaleUpBacklogPerWorker: atoienv("EVENT_SCALE_UP_BACKLOG_PER_WORKER", 100),
			ScaleDownIdleTicks:      atoienv("EVENT_SCALE_DOWN_IDLE_TICKS", 6),
			QueueHighWatermark:      atoienv("EVENT_QUEUE_HIGH_WATERMARK", 5000),
		},
	}
}
