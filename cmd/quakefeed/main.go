package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/quake-feed-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-feed-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-feed-service/internal/config"
	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/couchcryptid/quake-feed-service/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	domain.SetDisplayLocation(cfg.DisplayLocation)

	client := usgs.NewClient(cfg.ConnectTimeout, cfg.ReadTimeout, logger)

	// Publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var (
		publisher report.Publisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		metrics.KafkaEnabled.Set(1)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	rep := report.New(report.Options{
		ListURL:     cfg.FeedURL,
		HeadlineURL: cfg.HeadlineFeedURL,
		Fetcher:     client,
		Checker:     client,
		Publisher:   publisher,
		Logger:      logger,
		Metrics:     metrics,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, rep, rep, cfg.RefreshRateLimit, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the host loop before the first refresh so results have somewhere to land.
	go rep.Run(ctx)

	if err := rep.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", "flow", "list", "error", err)
	}
	if err := rep.RefreshHeadline(ctx); err != nil {
		logger.Warn("initial refresh failed", "flow", "headline", "error", err)
	}

	if cfg.RefreshInterval > 0 {
		go rep.Schedule(ctx, cfg.RefreshInterval)
	} else {
		logger.Info("scheduled refresh disabled")
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	rep.Close()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
