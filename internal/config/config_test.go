package config

import (
	"testing"
	"time"
)

var allKeys = []string{
	"HTTP_ADDR", "SHUTDOWN_TIMEOUT", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_OPEN_CONNS",
	"CACHE_TTL_SECONDS", "CACHE_INVALIDATE_ON_WRITE", "OTEL_ENDPOINT", "OTEL_AUTH_HEADER",
	"KAFKA_BROKER", "KAFKA_TOPIC", "EVENT_WORKER_MIN", "EVENT_WORKER_MAX", "EVENT_WORKER_COUNT",
	"EVENT_SCALE_INTERVAL_MS", "EVENT_SCALE_UP_BACKLOG_PER_WORKER", "EVENT_SCALE_DOWN_IDLE_TICKS",
	"EVENT_QUEUE_HIGH_WATERMARK",
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	c := Load()
	if c.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default")
	}
	if c.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout default")
	}
	if c.DatabaseURL != DefaultDatabaseURL {
		t.Fatalf("DatabaseURL default: %q", c.DatabaseURL)
	}
	if c.CacheTTL != 300*time.Second || c.CacheInvalidateOnWrite {
		t.Fatalf("cache defaults: %v %v", c.CacheTTL, c.CacheInvalidateOnWrite)
	}
	if c.KafkaBroker != "" || c.KafkaTopic != "OrderCreated" {
		t.Fatalf("kafka defaults")
	}
	if c.Events.WorkerMin != 1 || c.Events.WorkerMax != 4 || c.Events.InitialWorkerCount != 1 {
		t.Fatalf("worker bounds default: %+v", c.Events)
	}
	if c.Events.ScaleInterval != 500*time.Millisecond {
		t.Fatalf("ScaleInterval default")
	}
	if c.Events.ScaleUpBacklogPerWorker != 100 || c.Events.ScaleDownIdleTicks != 6 {
		t.Fatalf("scale thresholds default")
	}
	if c.Events.QueueHighWatermark != 5000 {
		t.Fatalf("high watermark default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "2")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/shop")
	t.Setenv("CACHE_TTL_SECONDS", "5")
	t.Setenv("CACHE_INVALIDATE_ON_WRITE", "true")
	t.Setenv("EVENT_WORKER_MIN", "2")
	t.Setenv("EVENT_WORKER_MAX", "3")
	t.Setenv("EVENT_WORKER_COUNT", "2")
	t.Setenv("EVENT_SCALE_INTERVAL_MS", "250")
	c := Load()
	if c.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr env")
	}
	if c.ShutdownTimeout != 2*time.Second {
		t.Fatalf("ShutdownTimeout env")
	}
	if c.DatabaseURL != "postgres://u:p@db:5432/shop" {
		t.Fatalf("DatabaseURL env")
	}
	if c.CacheTTL != 5*time.Second || !c.CacheInvalidateOnWrite {
		t.Fatalf("cache env")
	}
	if c.Events.WorkerMin != 2 || c.Events.WorkerMax != 3 || c.Events.InitialWorkerCount != 2 {
		t.Fatalf("workers env")
	}
	if c.Events.ScaleInterval != 250*time.Millisecond {
		t.Fatalf("ScaleInterval env")
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "abc")
	t.Setenv("CACHE_INVALIDATE_ON_WRITE", "maybe")
	t.Setenv("EVENT_WORKER_MIN", "5")
	t.Setenv("EVENT_WORKER_MAX", "2")
	c := Load()
	if c.CacheTTL != 300*time.Second || c.CacheInvalidateOnWrite {
		t.Fatalf("expected cache defaults on bad input")
	}
	if c.Events.WorkerMax != 5 {
		t.Fatalf("expected max clamped to min, got %d", c.Events.WorkerMax)
	}
}
