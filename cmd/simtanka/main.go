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

	httpadapter "github.com/couchcryptid/simtanka-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/simtanka-service/internal/adapter/kafka"
	"github.com/couchcryptid/simtanka-service/internal/adapter/visualcrossing"
	"github.com/couchcryptid/simtanka-service/internal/config"
	"github.com/couchcryptid/simtanka-service/internal/observability"
	"github.com/couchcryptid/simtanka-service/internal/pipeline"
	"github.com/couchcryptid/simtanka-service/internal/rainfall"
	"github.com/couchcryptid/simtanka-service/internal/scheduler"
	"github.com/couchcryptid/simtanka-service/internal/storage"
	"github.com/couchcryptid/simtanka-service/internal/tanka"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

const (
	refreshJob     = "rainfall_refresh"
	refreshTimeout = 30 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Config{Driver: cfg.StorageDriver, DSN: cfg.StorageDSN}, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}

	// Sizing reports go to Kafka only when the stream is enabled.
	var opts []tanka.Option
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, tanka.WithPublisher(writer))
	}
	svc := tanka.New(store, metrics, logger, opts...)

	checks := []sharedobs.ReadinessChecker{httpadapter.ReadinessFunc(store.Ping)}

	// Rainfall ingestion stream (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var reader *kafkaadapter.Reader
	var p *pipeline.Pipeline
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		p = pipeline.New(reader, pipeline.NewTransformer(logger), pipeline.NewStoreLoader(store, metrics), logger, metrics, cfg.BatchSize)
		p.OnLoad(svc.RainfallChanged)
		logger.Info("kafka rainfall ingestion enabled", "topic", cfg.KafkaRainfallTopic, "report_topic", cfg.KafkaReportTopic)
	} else {
		logger.Info("kafka rainfall ingestion disabled")
	}

	// Rainfall download (feature-flagged via VC_ENABLED / VC_API_KEY).
	sched := scheduler.New(refreshTimeout, metrics, logger)
	if cfg.VCEnabled {
		client := visualcrossing.NewClient(cfg.VCAPIKey, cfg.VCBaseURL, cfg.VCTimeout, cfg.VCMaxDistanceM, metrics, logger)
		fetcher := visualcrossing.NewCachedFetcher(client, cfg.VCCacheSize, metrics)
		site := rainfall.Site{Latitude: cfg.SiteLatitude, Longitude: cfg.SiteLongitude}
		downloader := rainfall.NewDownloader(fetcher, store, site, cfg.BaseYear, metrics, logger)

		err := sched.Add(refreshJob, cfg.RainfallRefreshSchedule, func(ctx context.Context) error {
			sum, err := downloader.Update(ctx)
			svc.RainfallChanged(ctx, sum.Saved)
			return err
		})
		if err != nil {
			logger.Error("failed to schedule rainfall refresh", "error", err)
			os.Exit(1)
		}
		metrics.DownloadEnabled.Set(1)
		logger.Info("visual crossing download enabled", "cache_size", cfg.VCCacheSize, "timeout", cfg.VCTimeout, "schedule", cfg.RainfallRefreshSchedule)
	} else {
		logger.Info("visual crossing download disabled")
	}

	if p != nil {
		checks = append(checks, p)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.AllReady(checks...), svc, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingestion pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	// Start scheduled refresh, with one catch-up run now.
	sched.Start(ctx)
	if cfg.VCEnabled {
		go func() {
			_ = sched.Trigger(ctx, refreshJob) // failure already logged and counted
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	sched.Stop(shutdownCtx)
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("storage close error", "error", err)
	}

	logger.Info("shutdown complete")
}
