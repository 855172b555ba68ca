package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/analysis"
	"github.com/surveysense/backend/internal/api/handlers"
	redisc "github.com/surveysense/backend/internal/cache/redis"
	"github.com/surveysense/backend/internal/llm"
	"github.com/surveysense/backend/internal/metrics"
	"github.com/surveysense/backend/internal/middleware/ratelimit"
	"github.com/surveysense/backend/internal/rag"
	"github.com/surveysense/backend/internal/searchindex"
	"github.com/surveysense/backend/internal/sentiment"
	"github.com/surveysense/backend/internal/storage/sqlite"
	"github.com/surveysense/backend/pkg/config"
	appLogger "github.com/surveysense/backend/pkg/logger"
	"github.com/surveysense/backend/pkg/retry"
)

func main() {
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

	appLogger.Info("Starting survey insight API server")

	metrics.Init()

	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cacheClient *redisc.Client
	if cfg.Redis.Enabled {
		retryCfg := retry.DefaultConfig()
		retryCfg.Logger = appLogger.GetLogger()
		err = retry.Do(context.Background(), retryCfg, func() error {
			cacheClient, err = redisc.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
			return err
		})
		if err != nil {
			appLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer cacheClient.Close()
	}

	llmClient := llm.NewClient(
		cfg.OpenAI.Endpoint,
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Deployment,
		cfg.OpenAI.APIVersion,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.TimeoutSec,
	)

	indexClient := searchindex.NewClient(
		cfg.Search.Endpoint,
		cfg.Search.APIKey,
		cfg.Search.Index,
		cfg.Search.APIVersion,
		cfg.Search.QueryLanguage,
		cfg.Search.TimeoutSec,
	)

	var classifier sentiment.Classifier
	switch cfg.Sentiment.Provider {
	case "llm":
		classifier = sentiment.NewLLMClassifier(llmClient, cfg.Sentiment.NegativeKeywords)
	default:
		classifier = sentiment.NewLanguageClassifier(
			cfg.Language.Endpoint,
			cfg.Language.APIKey,
			cfg.Language.APIVersion,
			cfg.Sentiment.NegativeKeywords,
			cfg.Language.TimeoutSec,
		)
	}

	summarizer := analysis.NewSummaryGenerator(llmClient)

	var invalidator analysis.CacheInvalidator
	var answerCache rag.AnswerCache
	if cacheClient != nil {
		invalidator = cacheClient
		answerCache = cacheClient
	}

	pipeline := analysis.NewPipeline(classifier, summarizer, indexClient, db, invalidator)

	router := rag.NewColumnRouter(llmClient)
	retriever := rag.NewRetriever(indexClient, cfg.RAG.TopPerColumn)
	synthesizer := rag.NewAnswerSynthesizer(llmClient)
	engine := rag.NewEngine(
		indexClient,
		router,
		retriever,
		synthesizer,
		db,
		answerCache,
		cfg.RAG.ColumnSampleLimit,
		time.Duration(cfg.RAG.CacheTTLMin)*time.Minute,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})

	surveyHandler := handlers.NewSurveyHandler(pipeline, db)
	qnaHandler := handlers.NewQnAHandler(engine, db)
	wsHandler := handlers.NewWebSocketHandler(engine)

	api := app.Group("/api/v1")

	api.Post("/surveys", surveyHandler.UploadSurvey)
	api.Get("/surveys/latest", surveyHandler.GetLatestResults)

	api.Post("/qna", limiter.Middleware(), qnaHandler.HandleQuestion)
	api.Get("/qna/history", qnaHandler.GetHistory)
	api.Get("/qna/stream", websocket.New(wsHandler.HandleConnection))

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
