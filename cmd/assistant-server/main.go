package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shop-assistant/internal/assistant/embedding"
	"shop-assistant/internal/assistant/generation"
	"shop-assistant/internal/assistant/intent"
	"shop-assistant/internal/assistant/pipeline"
	"shop-assistant/internal/assistant/retrieval"
	"shop-assistant/internal/assistant/snapshot"
	"shop-assistant/internal/assistant/stats"
	"shop-assistant/internal/cache"
	"shop-assistant/internal/common/config"
	"shop-assistant/internal/common/database"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/common/observability"
	"shop-assistant/internal/models"
	"shop-assistant/internal/server"
	"shop-assistant/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger)

	log.Info("starting assistant server", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New("assistant-server")
	defer obs.Shutdown()

	// Postgres holds the business data every deterministic answer is built
	// from; the server does not start without it.
	var pg *database.PostgresClient
	err = retryWithBackoff(log, "postgres", 15, 2*time.Second, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return pg.Ping(pingCtx)
	})
	if err != nil {
		zapLogger.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pg.Close()

	var es *database.ElasticsearchClient
	err = retryWithBackoff(log, "elasticsearch", 15, 2*time.Second, func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping()
	})
	if err != nil {
		zapLogger.Fatal("elasticsearch unavailable", zap.Error(err))
	}

	responseCache := cache.New[models.AnswerResult](config.GetDuration(cfg.Assistant.ResponseCacheTTL), cfg.Assistant.ResponseCacheSize)
	contextCache := cache.New[*models.BusinessSnapshot](config.GetDuration(cfg.Assistant.ContextCacheTTL), cfg.Assistant.ContextCacheSize)
	embedCache := cache.New[[]float32](config.GetDuration(cfg.Assistant.EmbedCacheTTL), cfg.Assistant.EmbedCacheSize)
	searchCache := cache.New[[]models.RetrievedSnippet](config.GetDuration(cfg.Assistant.SearchCacheTTL), cfg.Assistant.SearchCacheSize)

	dataStore := store.New(pg.GetDB(), log)

	embedder := embedding.NewClient(embedding.Config{
		BaseURL:    cfg.APIs.Embedding.BaseURL,
		Model:      cfg.APIs.Embedding.Model,
		Timeout:    config.GetDuration(cfg.APIs.Embedding.Timeout),
		MaxRetries: cfg.APIs.Embedding.MaxRetries,
	}, embedCache, log)

	retriever := retrieval.NewClient(es.Client, cfg.Database.Elasticsearch.Index, searchCache, log)

	snapshots := snapshot.NewBuilder(dataStore, contextCache, cfg.Assistant.SnapshotBudget, log)

	generator := generation.NewClient(generation.Config{
		BaseURL:     cfg.APIs.Generation.BaseURL,
		Model:       cfg.APIs.Generation.Model,
		Timeout:     config.GetDuration(cfg.APIs.Generation.Timeout),
		MaxRetries:  cfg.APIs.Generation.MaxRetries,
		MaxTokens:   cfg.APIs.Generation.MaxTokens,
		Temperature: cfg.APIs.Generation.Temperature,
		ContextSize: cfg.APIs.Generation.ContextSize,
		AnswerCap:   cfg.Assistant.AnswerCap,
	}, log)

	answerPipeline := pipeline.New(pipeline.Deps{
		Intents:       intent.NewMatcher(dataStore, log),
		Stats:         stats.NewResolver(dataStore, log),
		Embedder:      embedder,
		Retriever:     retriever,
		Snapshots:     snapshots,
		Generator:     generator,
		ResponseCache: responseCache,
		Config: pipeline.Config{
			TopK:         cfg.Assistant.TopK,
			PromptBudget: cfg.Assistant.SnippetBudget,
		},
		Logger: log,
	})

	srv := server.New(server.Deps{
		Asker:     answerPipeline,
		Snapshots: snapshots,
		Checks: map[string]server.HealthCheck{
			"postgres": pg.Ping,
			"elasticsearch": func(_ context.Context) error {
				return es.Ping()
			},
			"embedding":  embedder.Ping,
			"generation": generator.Ping,
		},
		CacheSizes: func() map[string]int {
			return map[string]int{
				"response":  responseCache.Len(),
				"context":   contextCache.Len(),
				"embedding": embedCache.Len(),
				"retrieval": searchCache.Len(),
			}
		},
		Obs:    obs,
		Logger: log,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		log.Info("http server listening", map[string]interface{}{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("assistant server stopped", nil)
}

// retryWithBackoff retries fn with a fixed delay between attempts. External
// services may come up after the server in compose environments.
func retryWithBackoff(log logger.Logger, name string, maxAttempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			if attempt > 1 {
				log.Info("dependency became available", map[string]interface{}{
					"dependency": name,
					"attempt":    attempt,
				})
			}
			return nil
		}
		log.Warn("dependency not ready, retrying", map[string]interface{}{
			"dependency": name,
			"attempt":    attempt,
			"error":      lastErr.Error(),
		})
		time.Sleep(delay)
	}
	return fmt.Errorf("%s not available after %d attempts: %w", name, maxAttempts, lastErr)
}
