// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"venue-signals/internal/common/camunda"
	"venue-signals/internal/common/config"
	"venue-signals/internal/common/database"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/observability"
	"venue-signals/pkg/registry"

	anf "venue-signals/internal/workers/feedback/analyze-negative-feedback"
	dfr "venue-signals/internal/workers/feedback/detect-fake-reviews"
	car "venue-signals/internal/workers/rating/calculate-authentic-rating"
	gcr "venue-signals/internal/workers/recommendation/get-cached-recommendations"
	iuc "venue-signals/internal/workers/recommendation/invalidate-user-cache"
	scr "venue-signals/internal/workers/recommendation/score-recommendations"
)

// jobWorker is what every task handler exposes to the manager.
type jobWorker interface {
	Register(client zbc.Client)
	Close()
	GetTaskType() string
}

// retryWithBackoff attempts to execute a function with exponential backoff
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

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(observability.Options{
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
	})
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

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

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	if ok, err := esClient.IndexExists(ctx, cfg.Database.Elasticsearch.ReviewIndex); err != nil || !ok {
		zapLog.Warn("review index unavailable, workers will rely on inline reviews",
			zap.String("index", cfg.Database.Elasticsearch.ReviewIndex),
			zap.Error(err),
		)
	}

	// --- Init Redis with retry (only for the redis cache backend) ---
	var redisClient *database.RedisClient
	if cfg.Cache.Backend == "redis" {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Engine components ---
	publisher, err := buildAlertPublisher(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("alert publisher setup failed", zap.Error(err))
	}

	reviewSource := buildReviewSource(cfg, esClient)
	profileStore := buildProfileStore(pg)
	recoCache := buildCache(cfg, redisClient, log)
	ens := buildEnsemble(cfg, publisher, log)
	scorer := buildScorer(cfg, ens, log)

	zapLog.Info("Engine components initialized",
		zap.Bool("alerts", publisher.Enabled()),
		zap.String("cacheBackend", cfg.Cache.Backend),
		zap.Strings("mlSources", ens.SourceNames()),
	)

	// --- Register Workers ---
	var workers []jobWorker
	register := func(w jobWorker, err error) {
		if err != nil {
			zapLog.Fatal("failed to create worker handler", zap.Error(err))
		}
		w.Register(zeebeClient.GetClient())
		workers = append(workers, w)
	}

	register(anf.NewHandler(anf.HandlerOptions{
		AppConfig: cfg,
		Reviews:   reviewSource,
		Alerts:    publisher,
		Logger:    log,
	}))
	register(dfr.NewHandler(dfr.HandlerOptions{
		AppConfig: cfg,
		Reviews:   reviewSource,
		Logger:    log,
	}))
	register(car.NewHandler(car.HandlerOptions{
		AppConfig: cfg,
		Reviews:   reviewSource,
		Logger:    log,
	}))
	register(scr.NewHandler(scr.HandlerOptions{
		AppConfig: cfg,
		Scorer:    scorer,
		Cache:     recoCache,
		Profiles:  profileStore,
		Logger:    log,
	}))
	register(gcr.NewHandler(gcr.HandlerOptions{
		AppConfig: cfg,
		Cache:     recoCache,
		Logger:    log,
	}))
	register(iuc.NewHandler(iuc.HandlerOptions{
		AppConfig: cfg,
		Cache:     recoCache,
		Logger:    log,
	}))
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))
	checkRegistry(workers, zapLog)

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"zeebe": "ok", "postgres": "ok"}
		status := http.StatusOK
		if err := zeebeClient.HealthCheck(checkCtx); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		checks["time"] = time.Now().Format(time.RFC3339)
		if status == http.StatusOK {
			checks["status"] = "ready"
		} else {
			checks["status"] = "not_ready"
		}
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	server := &http.Server{
		Addr:              cfg.App.HTTPAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
		zapLog.Info("worker stopped", zap.String("taskType", w.GetTaskType()))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// checkRegistry warns about registered task types that modellers cannot
// find in the activity catalogue.
func checkRegistry(workers []jobWorker, log *zap.Logger) {
	reg, err := registry.LoadRegistry(registry.DefaultPath)
	if err != nil {
		log.Warn("activity registry not loaded", zap.String("path", registry.DefaultPath), zap.Error(err))
		return
	}
	taskTypes := make([]string, 0, len(workers))
	for _, w := range workers {
		taskTypes = append(taskTypes, w.GetTaskType())
	}
	if missing := reg.Missing(taskTypes...); len(missing) > 0 {
		log.Warn("task types missing from activity registry", zap.Strings("taskTypes", missing))
	}
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
