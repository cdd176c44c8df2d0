// Package main wires together the proxy service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ryanrahman1/nichegeniusproxy/internal/api"
	"github.com/ryanrahman1/nichegeniusproxy/internal/cache"
	cacheMemory "github.com/ryanrahman1/nichegeniusproxy/internal/cache/memory"
	cachePostgres "github.com/ryanrahman1/nichegeniusproxy/internal/cache/postgres"
	"github.com/ryanrahman1/nichegeniusproxy/internal/config"
	"github.com/ryanrahman1/nichegeniusproxy/internal/genius"
	"github.com/ryanrahman1/nichegeniusproxy/internal/logging"
	"github.com/ryanrahman1/nichegeniusproxy/internal/metrics"
	"github.com/ryanrahman1/nichegeniusproxy/internal/ratelimit"
	"github.com/ryanrahman1/nichegeniusproxy/internal/writeback"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	envPath := flag.String("env", "", "Path to an env file with credentials")
	flag.Parse()

	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			fmt.Fprintf(os.Stderr, "load env file failed: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store cache.Store
	var pgStore *cachePostgres.Store
	switch cfg.Cache.Provider {
	case "postgres":
		pgStore, err = cachePostgres.NewStore(ctx, cachePostgres.StoreConfig{
			DSN:      cfg.Cache.DSN,
			Table:    cfg.Cache.Table,
			TTL:      cfg.CacheTTL(),
			MaxConns: cfg.Cache.MaxConns,
			MinConns: cfg.Cache.MinConns,
		})
		if err != nil {
			logger.Fatal("cache store init failed", zap.Error(err))
		}
		store = pgStore
	case "memory":
		store = cacheMemory.New(cfg.CacheTTL(), nil)
	default:
		logger.Info("response cache disabled")
	}

	var writer *writeback.Writer
	if store != nil {
		writer = writeback.New(store, writeback.Config{
			QueueDepth:   cfg.Cache.QueueDepth,
			WriteTimeout: cfg.CacheWriteTimeout(),
			Logger:       logger.Named("writeback"),
		})
	}

	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Provider {
	case "local":
		limiter = ratelimit.NewLocal(ratelimit.LocalConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		})
	case "service":
		limiter = ratelimit.NewService(ratelimit.ServiceConfig{
			URL:     cfg.RateLimit.ServiceURL,
			Timeout: cfg.RateLimitTimeout(),
		})
	default:
		logger.Info("rate limiting disabled")
	}

	upstream := genius.New(genius.Config{
		BaseURL:   cfg.Upstream.BaseURL,
		UserAgent: cfg.Upstream.UserAgent,
		Timeout:   cfg.UpstreamTimeout(),
	})

	apiServer := api.NewServer(upstream, store, writer, limiter, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	adminSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:           api.NewAdminHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	go func() {
		logger.Info("admin server started", zap.Int("port", cfg.Admin.Port))
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown error", zap.Error(err))
	}
	if writer != nil {
		if err := writer.Close(shutdownCtx); err != nil {
			logger.Error("cache writer shutdown error", zap.Error(err))
		}
	}
	if pgStore != nil {
		pgStore.Close()
	}
	logger.Info("shutdown complete")
}
