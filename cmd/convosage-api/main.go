// ConvoSage API serves the conversational outlet and product assistant
// over HTTP and Connect RPC.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/api/rpc"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/cache"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/chat"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/config"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/ingest"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/monitoring"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/text2sql"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "convosage-api",
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Msg("Starting ConvoSage API")

	db, err := storage.Open(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := storage.NewMigrationManager(db, cfg.Database.Driver).Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	cacheClient, err := newCacheClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect cache")
	}
	defer cacheClient.Close()

	outletRepo := storage.NewOutletRepository(db, cfg.Database.Driver)
	index := retrieval.NewIndex(nil)
	queryCache := text2sql.NewQueryCache(cacheClient, logger, text2sql.DefaultQueryCacheConfig())

	pipeline := ingest.NewPipeline(outletRepo, index, queryCache, logger)
	seeded, err := pipeline.Seed(ctx, ingest.SeedRequest{
		OutletsPath:  cfg.Datasets.OutletsPath,
		ProductsPath: cfg.Datasets.ProductsPath,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed datasets")
	}
	logger.Info().
		Int("outlets", seeded.OutletsSeeded).
		Int("products", seeded.ProductsIndexed).
		Msg("Datasets loaded")

	outletService := text2sql.NewService(outletRepo, queryCache, logger)
	sessions := chat.NewStore(cfg.Chat.HistoryLimit, cfg.Chat.SessionIdleTTL, logger)
	usage := monitoring.NewUsage()
	dispatcher := chat.NewDispatcher(sessions, outletService, index, usage, cfg.Chat.DefaultTopK, logger)

	sessions.StartSweeper(ctx, 5*time.Minute)

	if cfg.Datasets.ReloadOnChange && cfg.Datasets.ProductsPath != "" {
		watcher := monitoring.NewCatalogWatcher(cfg.Datasets.ProductsPath, cfg.Datasets.WatchInterval, index, logger)
		if err := watcher.Prime(); err != nil {
			logger.Warn().Err(err).Msg("Failed to prime catalog watcher")
		}
		go watcher.Start(ctx)
	}

	router := NewRouter(Dependencies{
		Logger:     logger,
		Config:     cfg,
		DB:         db,
		Dispatcher: dispatcher,
		Usage:      usage,
		Outlets:    outletService,
		OutletRepo: outletRepo,
		Products:   index,
		Limiter:    cacheClient,
		ChatRPC:    rpc.NewChatService(dispatcher, logger),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	cancel()

	shutdownCtx, release := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer release()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed, forcing close")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced close failed")
		}
	}

	logger.Info().Msg("Server stopped")
}

// newCacheClient builds the configured cache backend. Redis failures are
// fatal, a misconfigured cache should not silently degrade to per-process
// memory.
func newCacheClient(cfg *config.Config) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
}
