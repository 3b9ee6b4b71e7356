// cmd/worker-manager/main.go
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

	"listing-matcher/internal/common/camunda"
	"listing-matcher/internal/common/catalog"
	"listing-matcher/internal/common/config"
	"listing-matcher/internal/common/database"
	"listing-matcher/internal/common/genai"
	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/common/observability"
	"listing-matcher/internal/common/prompts"
	"listing-matcher/internal/common/tagger"
	"listing-matcher/pkg/registry"

	ci "listing-matcher/internal/workers/listing/classify-images"
	cl "listing-matcher/internal/workers/listing/compose-listing"
	ef "listing-matcher/internal/workers/listing/extract-fields"
	ma "listing-matcher/internal/workers/listing/merge-assignment"
	rt "listing-matcher/internal/workers/listing/register-templates"
	st "listing-matcher/internal/workers/listing/score-templates"
)

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
			delay *= 2
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
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()
	if err := obs.EnableTracing(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint); err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	zeebe, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig: &camunda.RetryConfig{
			MaxRetries: 10,
			BaseDelay:  2 * time.Second,
			MaxDelay:   30 * time.Second,
		},
	})
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
	if err := pg.Migrate(ctx); err != nil {
		zapLog.Fatal("template schema migration failed", zap.Error(err))
	}
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

	// --- Collaborators ---
	store := catalog.NewCachedStore(
		catalog.NewPostgresStore(pg.DB),
		redis.Client,
		config.GetDuration(cfg.Pipeline.TemplateCacheTTL),
		log,
	)

	labels := registry.Default()
	if cfg.Pipeline.LabelsPath != "" {
		labels, err = registry.LoadRegistry(cfg.Pipeline.LabelsPath)
		if err != nil {
			zapLog.Fatal("label vocabulary load failed", zap.String("path", cfg.Pipeline.LabelsPath), zap.Error(err))
		}
	}

	renderer, err := prompts.New()
	if err != nil {
		zapLog.Fatal("prompt templates failed to parse", zap.Error(err))
	}

	gemini, err := genai.NewClient(ctx, genai.Config{
		APIKey:      cfg.APIs.GenAI.APIKey,
		Model:       cfg.APIs.GenAI.Model,
		VisionModel: cfg.APIs.GenAI.VisionModel,
		Temperature: cfg.APIs.GenAI.Temperature,
	}, renderer, labels.Labels(), log)
	if err != nil {
		zapLog.Fatal("genai client failed", zap.Error(err))
	}
	generator := genai.NewRateLimited(gemini, cfg.Pipeline.GeneratorRPS)

	var imageTagger tagger.Tagger = gemini
	if cfg.APIs.Tagger.Provider == "http" {
		imageTagger = tagger.NewHTTPTagger(cfg.APIs.Tagger.BaseURL, config.GetDuration(cfg.APIs.Tagger.Timeout), labels.Labels())
	}
	imageTagger = tagger.NewCached(imageTagger, config.GetDuration(cfg.APIs.Tagger.CacheTTL))

	zapLog.Info("All external service clients initialized",
		zap.String("tagger", cfg.APIs.Tagger.Provider),
		zap.String("model", cfg.APIs.GenAI.Model),
	)

	// --- Workers ---
	callTimeout := config.GetDuration(cfg.Pipeline.CallTimeout)
	jobTimeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}
	classifyConfig := func(taskType string) *ci.Config {
		return &ci.Config{
			Concurrency: cfg.Pipeline.ClassifyConcurrency,
			CallTimeout: callTimeout,
			Timeout:     jobTimeout(taskType),
		}
	}
	extractConfig := func(taskType string) *ef.Config {
		return &ef.Config{
			MaxShorteningRounds: cfg.Pipeline.MaxShorteningRounds,
			FieldConcurrency:    cfg.Pipeline.FieldConcurrency,
			CallTimeout:         callTimeout,
			Timeout:             jobTimeout(taskType),
		}
	}

	handlers := map[string]camunda.JobHandler{
		ci.TaskType: ci.NewHandler(classifyConfig(ci.TaskType), imageTagger, labels, log),
		st.TaskType: st.NewHandler(&st.Config{
			TopN:    cfg.Pipeline.RankingTopN,
			Timeout: jobTimeout(st.TaskType),
		}, store, log),
		ef.TaskType: ef.NewHandler(extractConfig(ef.TaskType), generator, renderer, log),
		ma.TaskType: ma.NewHandler(&ma.Config{Timeout: jobTimeout(ma.TaskType)}, log),
		rt.TaskType: rt.NewHandler(&rt.Config{Timeout: jobTimeout(rt.TaskType)}, store, log),
		cl.TaskType: cl.NewHandler(&cl.Config{
			TopN:     cfg.Pipeline.RankingTopN,
			Timeout:  jobTimeout(cl.TaskType),
			Classify: classifyConfig(cl.TaskType),
			Extract:  extractConfig(cl.TaskType),
		}, cl.Deps{
			Tagger:    imageTagger,
			Registry:  labels,
			Store:     store,
			Generator: generator,
			Prompts:   renderer,
			Obs:       obs,
		}, log),
	}

	var workers []*camunda.CamundaWorker
	for _, taskType := range []string{ci.TaskType, st.TaskType, ef.TaskType, ma.TaskType, rt.TaskType, cl.TaskType} {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			continue
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, handlers[taskType], zapLog))
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		status := http.StatusOK
		for name, check := range map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"postgres": pg.Ping,
			"redis":    redis.Ping,
		} {
			if err := check(r.Context()); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		writeStatus(w, status, map[string]interface{}{
			"ready":  status == http.StatusOK,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.Observability.MetricsAddr))
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
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
