package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-research-platform/internal/api"
	"ai-research-platform/internal/config"
	"ai-research-platform/internal/database"
	"ai-research-platform/internal/documents"
	"ai-research-platform/internal/logging"
	"ai-research-platform/internal/render"
	"ai-research-platform/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.Server.Mode)
	ctx := context.Background()

	// Initialize the relational store
	store, err := database.OpenSQLStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	// Progress mirror (optional - lets other replicas see live progress)
	var registryOpts []services.RegistryOption
	if cfg.Redis.Addr != "" {
		mirror, err := database.NewRedisProgressStore(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("failed to connect to Redis, progress mirror disabled", zap.Error(err))
		} else {
			defer mirror.Close()
			registryOpts = append(registryOpts, services.WithProgressMirror(mirror))
		}
	} else {
		logger.Info("Redis not configured, progress mirror disabled")
	}

	archive := openArchive(ctx, cfg, logger)
	if closer, ok := archive.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// Initialize services
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set, research requests will fail")
	}
	backend := services.NewOpenAIResearchClient(cfg.OpenAI, logger)
	registry := services.NewTaskRegistry(logger, registryOpts...)
	runner := services.NewPhaseRunner(backend, cfg.Research.ModelTimeouts(), logger)
	research := services.NewResearchService(registry, runner, store, archive, cfg.Research, logger)

	templates, err := render.Templates()
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	handlers := api.NewHandlers(
		research,
		services.AvailableModels(cfg.Research),
		cfg.Research.DefaultModel,
		cfg.OpenAI.APIKey != "",
		logger,
	)
	router := api.SetupRoutes(handlers, templates, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	// Research still running when the deadline passes is cancelled
	if err := research.Shutdown(shutdownCtx); err != nil {
		logger.Error("research workers did not stop in time", zap.Error(err))
	}
}

// openArchive prefers MongoDB when configured and falls back to the filesystem
func openArchive(ctx context.Context, cfg *config.Config, logger *zap.Logger) services.DocumentArchive {
	if cfg.MongoDB.URI != "" || cfg.MongoDB.Host != "" {
		mongoArchive, err := database.NewMongoDocumentArchive(ctx, cfg.MongoDB, logger)
		if err == nil {
			return mongoArchive
		}
		logger.Warn("failed to connect to MongoDB, using filesystem archive", zap.Error(err))
	}

	fsArchive, err := documents.NewFileArchive(cfg.Documents.Dir, logger)
	if err != nil {
		logger.Fatal("failed to create document archive", zap.String("dir", cfg.Documents.Dir), zap.Error(err))
	}
	return fsArchive
}
