// Package main boots the order management HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fairyhunter13/order-management-api/internal/cache"
	"github.com/fairyhunter13/order-management-api/internal/config"
	httpapi "github.com/fairyhunter13/order-management-api/internal/http"
	"github.com/fairyhunter13/order-management-api/internal/obs"
	"github.com/fairyhunter13/order-management-api/internal/order"
	"github.com/fairyhunter13/order-management-api/internal/queue"
	"github.com/fairyhunter13/order-management-api/internal/store"
)

func main() {
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	defer obs.Sync()
	obs.Logger.Info("service_starting", zap.String("version", config.ServiceVersion))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := obs.SetupTracing(ctx, cfg)
	if err != nil {
		obs.Logger.Fatal("tracing_setup_failed", zap.Error(err))
	}

	st, err := store.Open(ctx, cfg.DatabaseURL, store.Options{MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		obs.Logger.Fatal("database_open_failed", zap.Error(err))
	}
	if err := st.Migrate(ctx); err != nil {
		obs.Logger.Fatal("database_migrate_failed", zap.Error(err))
	}
	obs.Logger.Info("database_ready", zap.String("dialect", st.Dialect()))

	var pub queue.Publisher = queue.LogPublisher{}
	if cfg.KafkaBroker != "" {
		pub = queue.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		obs.Logger.Info("kafka_publisher_enabled",
			zap.String("broker", cfg.KafkaBroker),
			zap.String("topic", cfg.KafkaTopic))
	}
	mgr := queue.NewManager(cfg.Events, queue.New(128), pub)
	mgr.Start(ctx)

	orderCache := cache.New(cfg.CacheTTL)
	orders := order.NewService(st, orderCache, mgr, order.Options{InvalidateOnWrite: cfg.CacheInvalidateOnWrite})

	app := httpapi.NewApp(cfg, st, orders, orderCache, mgr)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Logger.Error("http_server_error", zap.Error(err))
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", zap.String("signal", s.String()))

	app.StartShutdown()
	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", zap.Error(err))
	}

	mgr.CloseIntake()
	m := mgr.Metrics()
	obs.Logger.Info("shutdown_drain_begin", zap.Int("depth", m.Depth), zap.Int("worker_count", mgr.WorkerCount()))
	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	if mgr.DrainUntil(ctxDrain) {
		obs.Logger.Info("shutdown_drain_complete")
	} else {
		obs.Logger.Warn("shutdown_drain_timeout")
	}
	mgr.Stop()
	if err := pub.Close(); err != nil {
		obs.Logger.Warn("publisher_close_error", zap.Error(err))
	}

	orderCache.Clear()
	if err := st.Close(); err != nil {
		obs.Logger.Warn("database_close_error", zap.Error(err))
	}
	ctxTrace, cancelTrace := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTrace()
	if err := shutdownTracing(ctxTrace); err != nil {
		obs.Logger.Warn("tracing_shutdown_error", zap.Error(err))
	}
	obs.Logger.Info("service_stopped")
}
