package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"sintetic-qa/internal/ai"
	"sintetic-qa/internal/config"
	"sintetic-qa/internal/ingest"
	"sintetic-qa/internal/logger"
	"sintetic-qa/internal/retrieval"
	"sintetic-qa/internal/store"
	"sintetic-qa/internal/telemetry"
	"sintetic-qa/middleware"
	"sintetic-qa/routes"
	"sintetic-qa/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	// Tracing is optional; without an endpoint spans go nowhere.
	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.InitTracer("sintetic-qa", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to init tracing:", err)
		}
		defer shutdown()
	}

	// Without an API key the service runs in offline mode with local
	// embeddings and a canned answer, which is enough for development.
	var embedder ai.Embedder
	var summarizer ai.Summarizer
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.GeminiTier)
		if err != nil {
			log.Fatal("Failed to init Gemini client:", err)
		}
		defer gemini.Close()
		embedder = gemini
		summarizer = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, running with local embeddings and a static summarizer")
		embedder = ai.LocalEmbedder{}
		summarizer = ai.StaticSummarizer{}
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
	retriever := retrieval.New(vectorStore, cfg.RelevantThreshold)

	// Redis is optional: without it there is no rate limiting and no async
	// ingestion, but the synchronous API works.
	var queueClient *asynq.Client
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, rate limiting and async ingestion disabled", "error", err)
	} else {
		defer rdb.Close()
		queueClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer queueClient.Close()
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg)
	routes.SetupAuthRoutes(router, cfg)
	routes.SetupQARoutes(router, cfg, loader, retriever, summarizer, queueClient, authMiddleware)

	sweeper := services.NewSweeper(cfg.TmpDir,
		time.Duration(cfg.SweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.SweepMaxAgeMinutes)*time.Minute)
	sweeper.Start()
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "store_backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
