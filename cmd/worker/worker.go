package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"sintetic-qa/internal/ai"
	"sintetic-qa/internal/config"
	"sintetic-qa/internal/ingest"
	"sintetic-qa/internal/logger"
	"sintetic-qa/internal/queue"
	"sintetic-qa/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	var embedder ai.Embedder
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.GeminiTier)
		if err != nil {
			log.Fatal("Failed to init Gemini client:", err)
		}
		defer gemini.Close()
		embedder = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, running with local embeddings")
		embedder = ai.LocalEmbedder{}
	}

	vectorStore, mongoClient, err := store.Open(cfg, embedder)
	if err != nil {
		log.Fatal("Failed to open vector store:", err)
	}
	if mongoClient != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			mongoClient.Disconnect(ctx)
		}()
	}

	loader := ingest.NewLoader(vectorStore, cfg)
	processor := queue.NewTaskProcessor(loader)

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			// Ingestion serializes on the store writer anyway, so a handful
			// of workers is plenty.
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, processor.ProcessIngest)

	logger.Info("Starting ingestion worker", "redis", cfg.RedisURL, "store_backend", cfg.StoreBackend)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
