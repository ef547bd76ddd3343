package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"marriage-compliance/internal/common/config"
	"marriage-compliance/internal/common/database"
	"marriage-compliance/internal/common/logger"
	"marriage-compliance/internal/common/observability"
	"marriage-compliance/internal/dispatch"
	"marriage-compliance/internal/jobs"
	"marriage-compliance/internal/projection"
	"marriage-compliance/internal/store"
	"marriage-compliance/internal/tracker"
	"marriage-compliance/pkg/catalog"

	cs "marriage-compliance/internal/jobs/compliance-sweep"
	rd "marriage-compliance/internal/jobs/reminder-dispatch"
	wr "marriage-compliance/internal/jobs/weekly-report"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting compliance manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("compliance-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Requirement catalog ---
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		zapLog.Fatal("catalog load failed", zap.Error(err))
	}
	zapLog.Info("Requirement catalog loaded",
		zap.Strings("documentTypes", cat.DocumentTypes()))

	// --- Core components ---
	st := store.New(pg.DB)
	tr := tracker.New(st, cat, log)

	dispatcher, err := dispatch.NewAWSDispatcher(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("dispatcher init failed", zap.Error(err))
	}

	var proj cs.Projector
	if esClient != nil {
		proj = projection.New(esClient, cfg.Database.Elasticsearch.Index, log)
	}

	// --- Register the periodic jobs ---
	runner := jobs.NewRunner(cfg, redis, log, obs)
	runner.Register(cs.NewHandler(cs.LoadConfig(), st, tr, proj, log))
	runner.Register(rd.NewHandler(rd.LoadConfig(), cfg.Notifications, st, dispatcher, cat, log))
	runner.Register(wr.NewHandler(wr.LoadConfig(), st, dispatcher, log))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		runner.Start(runCtx)
		close(done)
	}()

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping jobs...")
	cancel()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		zapLog.Warn("Jobs did not stop within the shutdown window")
	}

	zapLog.Info("Compliance manager stopped gracefully")
}

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
