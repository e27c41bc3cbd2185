package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/ai"
	"fitcoach/backend/internal/api"
	"fitcoach/backend/internal/config"
	"fitcoach/backend/internal/logging"
	"fitcoach/backend/internal/repository/backend"
	"fitcoach/backend/internal/service"
	"fitcoach/backend/internal/storage"
)

// @title Fitness Coaching API
// @version 1.0
// @description API for coaches, athletes, programs and AI personalization.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("could not load config", slog.Any("error", err))
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		slog.Warn("invalid log level, using info", slog.String("level", cfg.Log.Level))
	}
	logger := logging.New(os.Stdout, level)
	slog.SetDefault(logger)
	logger.Info("starting fitcoach server", slog.String("driver", cfg.Database.Driver))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server exiting")
}

func run(cfg config.Config, logger *slog.Logger) error {
	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// --- Database ---
	store, err := backend.Open(startCtx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// --- Export storage, optional ---
	var fileStorage storage.FileStorage
	if cfg.S3.Enabled() {
		fileStorage, err = storage.NewS3Storage(startCtx, cfg.S3, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Info("S3 not configured, exports are streamed")
	}

	// --- AI gateway ---
	var completer ai.Completer
	if cfg.AI.APIKey != "" {
		completer = ai.NewOpenAICompleter(cfg.AI.APIKey, cfg.AI.Model)
	} else {
		logger.Warn("AI credential missing, generation is mocked")
	}
	gateway := ai.NewGateway(store.Usage, completer, cfg.AI, logger)

	// --- Services ---
	serializer := service.NewProgramSerializer(store.Programs, store.Schedules)
	services := api.Services{
		Auth: service.NewAuthService(store.Users, cfg.JWT.Secret, cfg.JWT.Expiration, logger),
		Programs: service.NewProgramService(store.Transactor, store.Programs, store.Schedules, store.Enrollments,
			store.Personalizations, serializer, fileStorage, logger),
		Coach:    service.NewCoachService(store.Users, store.Programs, store.Enrollments, logger),
		Training: service.NewTrainingService(store.Enrollments, store.Schedules, store.Personalizations, logger),
		Personalization: service.NewPersonalizationManager(store.Transactor, store.Enrollments, store.Injuries,
			store.Personalizations, serializer, gateway, service.NewDeterministicLogic(), logger),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, cfg.JWT.Secret, services, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.AI.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful Shutdown ---
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return server.Shutdown(ctxShutdown)
}
