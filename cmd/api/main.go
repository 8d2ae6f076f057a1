package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quizzy-app/backend/internal/api/handlers"
	"github.com/quizzy-app/backend/internal/corpus"
	"github.com/quizzy-app/backend/internal/llm"
	"github.com/quizzy-app/backend/internal/metrics"
	"github.com/quizzy-app/backend/internal/middleware/ratelimit"
	"github.com/quizzy-app/backend/internal/middleware/security"
	"github.com/quizzy-app/backend/internal/middleware/validation"
	"github.com/quizzy-app/backend/internal/pipeline"
	"github.com/quizzy-app/backend/internal/search"
	"github.com/quizzy-app/backend/pkg/config"
	appLogger "github.com/quizzy-app/backend/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Quizzy API server")

	if cfg.LLM.APIKey == "" {
		appLogger.Fatal("ANTHROPIC_API_KEY is required")
	}

	metrics.Init()

	store := corpus.NewStore(cfg.Corpus)

	anthropicClient := llm.NewAnthropicClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.VisionModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	// Without an embedding key retrieval quietly runs lexical-only.
	var embedder llm.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = llm.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	} else {
		appLogger.Warn("OPENAI_API_KEY not set, semantic search disabled")
	}

	retriever := search.NewRetriever(
		search.NewSemanticSearcher(embedder),
		search.ProfileByName(cfg.Retrieval.Profile),
		cfg.Retrieval.TopK,
	)

	orchestrator := pipeline.NewOrchestrator(store, retriever, anthropicClient, anthropicClient, cfg.LLM.PaceMS)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: 10,
		Burst:             3,
		Logger:            appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	solveHandler := handlers.NewSolveHandler(orchestrator)
	corpusHandler := handlers.NewCorpusHandler(store)

	api := app.Group("/api/v1")

	api.Post("/solve", solveHandler.HandleSolve)
	api.Get("/corpus", corpusHandler.HandleStatus)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
