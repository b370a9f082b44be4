package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trend-level-bot/config"
	"trend-level-bot/internal/api"
	"trend-level-bot/internal/cache"
	"trend-level-bot/internal/engine"
	"trend-level-bot/internal/logging"
	"trend-level-bot/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})
	logger.Info().Msg("Starting level detection service")

	// Level snapshot repository.
	var levelStore store.LevelStore
	switch cfg.Storage.Backend {
	case "postgres":
		levelStore, err = store.NewPostgresStore(context.Background(), cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Postgres")
		}
		logger.Info().Msg("Using Postgres level store")
	default:
		levelStore, err = store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Storage.SQLitePath).Msg("Failed to open SQLite store")
		}
		logger.Info().Str("path", cfg.Storage.SQLitePath).Msg("Using SQLite level store")
	}
	defer levelStore.Close()

	// Optional result cache. Redis when configured, in-process otherwise.
	var resultCache cache.Cache
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		resultCache = rc
		logger.Info().Str("address", cfg.Redis.Address).Msg("Using Redis result cache")
	} else {
		resultCache = cache.NewMemoryCache()
	}
	defer resultCache.Close()

	engines := map[string]engine.Detector{}
	for _, d := range []engine.Detector{
		engine.NewConfluenceSwing(),
		engine.NewPivotExtremum(engine.PivotExtremumConfig{}),
		engine.NewZoneQuality(engine.ZoneQualityConfig{}),
	} {
		engines[d.Name()] = d
	}

	server := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ProductionMode: os.Getenv("GIN_MODE") == "release",
		CacheTTL:       time.Duration(cfg.Engine.CacheTTLSecond) * time.Second,
		DefaultEngine:  cfg.Engine.DefaultEngine,
		BaseTimeframe:  cfg.Engine.BaseTimeframe,
	}, levelStore, engines, resultCache, logging.Component(logger, "api"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("Server error")
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}

	logger.Info().Msg("Service stopped")
}
