package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/config"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/handler"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/metrics"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/middleware"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/parser"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/service"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/service/insight"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/service/llm"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/snapshot"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/validation"
	"github.com/ad-tracker/watch-history-analyzer-go/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Log.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	loc, err := cfg.Import.Location()
	if err != nil {
		return err
	}

	ctx := context.Background()
	m := metrics.New()
	store := snapshot.NewStore()

	// RabbitMQ snapshot events (optional)
	var publisher *service.MessagePublisher
	var notifier service.SnapshotNotifier
	if cfg.RabbitMQ.Enabled {
		publisher, err = service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			return fmt.Errorf("init rabbitmq publisher: %w", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Log.Error("Failed to close RabbitMQ publisher", zap.Error(err))
			}
		}()
		notifier = publisher
	} else {
		logger.Log.Info("RabbitMQ disabled, snapshot events will not be published")
	}

	importService := service.NewImportService(store, notifier, m,
		parser.Options{Location: loc, DayFirst: cfg.Import.DayFirst},
		cfg.Import.MaxDocumentSize,
	)

	generator, closeGenerator, err := buildGenerator(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer closeGenerator()

	insightService := service.NewInsightService(store, generator, m, service.InsightOptions{
		SampleSize:            cfg.Insights.SampleSize,
		DefaultAverageMinutes: cfg.Insights.DefaultAverageMinutes,
		MaxConcurrent:         cfg.Insights.MaxConcurrent,
		RatePerSecond:         cfg.Insights.RatePerSecond,
		Burst:                 cfg.Insights.Burst,
		Timeout:               cfg.Insights.Timeout,
		Location:              loc,
	})

	if cfg.Import.Path != "" {
		if err := importAtStartup(ctx, importService, cfg.Import.Path); err != nil {
			logger.Log.Warn("Startup import failed, starting without a snapshot",
				zap.String("path", cfg.Import.Path),
				zap.Error(err),
			)
		}
	}

	h := handler.Handlers{
		Import:  handler.NewImportHandler(importService, validation.New(cfg.Import.MaxDocumentSize, cfg.Import.ValidateUploads)),
		Stats:   handler.NewStatsHandler(store, loc),
		Insight: handler.NewInsightHandler(insightService),
		Health:  handler.NewHealthHandler(store, publisher),
		Metrics: m,
	}
	if len(cfg.Server.APIKeys) > 0 {
		h.Auth = middleware.NewAPIKeyAuth(cfg.Server.APIKeys, logger.Named("auth"))
	} else {
		logger.Log.Warn("No API keys configured, import and insight endpoints are open")
	}

	gin.SetMode(cfg.Server.Mode)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.NewRouter(h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting",
			zap.Int("port", cfg.Server.Port),
			zap.Bool("insights", insightService.Enabled()),
			zap.String("timezone", loc.String()),
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Log.Error("Failed to close server", zap.Error(closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Log.Info("Server stopped gracefully")
		return nil
	}
}

// buildGenerator wires the LLM client and, when Redis is configured, the
// shared response cache. A nil generator disables insights.
func buildGenerator(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (insight.Generator, func(), error) {
	noop := func() {}
	if !cfg.Insights.Enabled {
		logger.Log.Info("Insights disabled")
		return nil, noop, nil
	}

	client, err := llm.NewClient(llm.Config{
		Provider:   cfg.Insights.Provider,
		BaseURL:    cfg.Insights.BaseURL,
		Model:      cfg.Insights.Model,
		APIKey:     cfg.Insights.APIKey,
		Timeout:    cfg.Insights.Timeout,
		MaxRetries: cfg.Insights.MaxRetries,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("init llm client: %w", err)
	}

	var rdb *redis.Client
	closeFn := noop
	if cfg.Cache.RedisURL != "" {
		rdb, err = insight.ConnectRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			logger.Log.Warn("Redis unavailable, insight cache is in-memory only", zap.Error(err))
			rdb = nil
		} else {
			closeFn = func() {
				if err := rdb.Close(); err != nil {
					logger.Log.Error("Failed to close Redis client", zap.Error(err))
				}
			}
		}
	}

	logger.Log.Info("Insights enabled",
		zap.String("provider", cfg.Insights.Provider),
		zap.String("model", client.Model()),
		zap.Bool("redisCache", rdb != nil),
	)

	gen := insight.NewCachedGenerator(insight.NewLLMGenerator(client), rdb, cfg.Cache.TTL, cfg.Cache.MaxEntries, m)
	return gen, closeFn, nil
}

func importAtStartup(ctx context.Context, svc *service.ImportService, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	_, err = svc.Import(ctx, filepath.Base(path), f)
	return err
}
