package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"astra-backend/internal/api"
	"astra-backend/internal/config"
	"astra-backend/internal/embedding"
	"astra-backend/internal/handlers"
	"astra-backend/internal/llm"
	"astra-backend/internal/notify"
	"astra-backend/internal/rag"
	"astra-backend/internal/services"
	"astra-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("unable to create database connection pool", zap.Error(err))
	}
	defer dbpool.Close()

	if err := dbpool.Ping(dbCtx); err != nil {
		logger.Fatal("unable to ping database", zap.Error(err))
	}
	logger.Info("database connection pool established")

	// 3. Initialize Dependencies (Store, Pipeline, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)

	embedClient := embedding.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingCacheTTL, logger)
	llmClient := llm.NewClient(cfg.OpenAIAPIKey, cfg.ChatModel, cfg.TitleModel, logger)

	docCache := rag.NewDocumentCache(pgStore, cfg.DocumentCacheTTL, logger)
	retriever := rag.NewRetriever(docCache, logger)

	// Seed the knowledge corpus once; a no-op when entries exist.
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := rag.SeedKnowledgeBase(seedCtx, pgStore, embedClient, logger); err != nil {
		logger.Warn("knowledge corpus seeding failed, retrieval may be empty", zap.Error(err))
	}
	seedCancel()

	notifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
	background := services.NewBackground(30*time.Second, logger, notifier)

	authService := services.NewAuthService(pgStore, cfg, logger)
	chatService := services.NewChatService(pgStore, llmClient, embedClient, retriever, background, cfg.StreamTimeout, logger)

	authHandler := handlers.NewAuthHandler(authService, logger)
	chatHandler := handlers.NewChatHandlers(chatService, logger)

	// 4. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		AuthHandler: authHandler,
		ChatHandler: chatHandler,
		Config:      cfg,
		Logger:      logger,
	})

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// No WriteTimeout: the chat endpoint streams; its duration is
		// bounded by the service-level stream timeout instead.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-stopChan
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server graceful shutdown failed", zap.Error(err))
	}

	// Drain queued persistence jobs before exit.
	background.Wait()
	logger.Info("server shutdown complete")
}
