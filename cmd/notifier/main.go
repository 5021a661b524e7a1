package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/utilitywatch/outage-sentinel/internal/adapter/geocode"
	kafkaadapter "github.com/utilitywatch/outage-sentinel/internal/adapter/kafka"
	"github.com/utilitywatch/outage-sentinel/internal/adapter/ner"
	"github.com/utilitywatch/outage-sentinel/internal/adapter/source"
	"github.com/utilitywatch/outage-sentinel/internal/adapter/telegram"
	"github.com/utilitywatch/outage-sentinel/internal/adapter/translate"
	"github.com/utilitywatch/outage-sentinel/internal/api"
	"github.com/utilitywatch/outage-sentinel/internal/config"
	"github.com/utilitywatch/outage-sentinel/internal/domain"
	"github.com/utilitywatch/outage-sentinel/internal/ingest"
	"github.com/utilitywatch/outage-sentinel/internal/observability"
	"github.com/utilitywatch/outage-sentinel/internal/scheduler"
	"github.com/utilitywatch/outage-sentinel/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		logger.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	sender, err := telegram.NewSender(cfg.TelegramToken, logger)
	if err != nil {
		logger.Error("telegram setup failed", "error", err)
		os.Exit(1)
	}

	fetchers := []ingest.Fetcher{
		source.NewWaterFetcher(cfg.WaterPageURL, cfg.SourceFetchTimeout, logger),
		source.NewGasFetcher(cfg.GasEmergencyURL, cfg.GasPlannedURL, cfg.SourceFetchTimeout, logger),
		source.NewElectricFetcher(cfg.ElectricPageURL, cfg.SourceFetchTimeout, logger),
	}
	translator := translate.NewClient(cfg.TranslateEndpoint, cfg.TranslateAPIKey, cfg.TranslateTimeout, logger)
	extractor := ner.NewClient(cfg.NEREndpoint, cfg.NERToken, cfg.NERTimeout, logger)

	// Outage export to Kafka is optional (feature-flagged via KAFKA_BROKERS).
	var publisher ingest.RecordPublisher
	if cfg.KafkaEnabled() {
		kp := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaOutageTopic, logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = kp
		logger.Info("kafka export enabled", "topic", cfg.KafkaOutageTopic)
	} else {
		logger.Info("kafka export disabled")
	}

	pipeline := ingest.New(fetchers, translator, extractor, st, publisher, logger, metrics)
	if err := pipeline.Validate(); err != nil {
		logger.Error("pipeline wiring invalid", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(pipeline, st, st, sender, cfg.WorkerPoolSize, logger, metrics)

	// Geocoding is optional (feature-flagged via GEOCODE_API_KEY).
	var geocoder domain.Geocoder
	if cfg.GeocodeEnabled {
		client := geocode.NewClient(cfg.GeocodeAPIKey, cfg.GeocodeTimeout, logger)
		geocoder = geocode.NewCachedGeocoder(client, cfg.GeocodeCacheSize)
		logger.Info("geocoding enabled", "cache_size", cfg.GeocodeCacheSize)
	} else {
		logger.Info("geocoding disabled")
	}

	srv := api.NewServer(cfg.HTTPAddr, st, geocoder, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go runTicker(ctx, sched, cfg.TickInterval, logger, metrics)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// runTicker drives scheduler ticks at a fixed cadence. A tick that
// outlives the interval suppresses the next one instead of stacking.
func runTicker(ctx context.Context, sched *scheduler.Scheduler, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) {
	logger.Info("scheduler started", "tick_interval", interval)
	metrics.SchedulerRunning.Set(1)
	defer metrics.SchedulerRunning.Set(0)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First tick immediately; subscribers should not wait a full
	// interval after a restart.
	tick(ctx, sched, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			tick(ctx, sched, logger)
		}
	}
}

func tick(ctx context.Context, sched *scheduler.Scheduler, logger *slog.Logger) {
	if err := sched.Tick(ctx); err != nil && ctx.Err() == nil {
		logger.Error("tick failed", "error", err)
	}
}
