package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/calldojo/calldojo-api/internal/config"
	"github.com/calldojo/calldojo-api/internal/database"
	"github.com/calldojo/calldojo-api/internal/engine"
	"github.com/calldojo/calldojo-api/internal/flow"
	"github.com/calldojo/calldojo-api/internal/handler"
	"github.com/calldojo/calldojo-api/internal/middleware"
	"github.com/calldojo/calldojo-api/internal/repository"
	"github.com/calldojo/calldojo-api/internal/router"
	"github.com/calldojo/calldojo-api/internal/service"
	"github.com/calldojo/calldojo-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	store, err := flow.Load(cfg.FlowConfigPath)
	if err != nil {
		log.Fatalf("failed to load conversation flow: %v", err)
	}

	decisions := engine.NewDecisionEngine(store, logger)
	evaluations := engine.NewEvaluationEngine(decisions, logger)

	sessions := buildSessionRepository(cfg, logger)
	responder := buildResponder(cfg, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	callService := service.NewCallService(sessions, decisions, responder, cfg.DefaultScenarioID, validate, logger)
	reportService := service.NewReportService(sessions, evaluations, logger)

	deps := router.Dependencies{
		SessionHandler:    handler.NewSessionHandler(callService, logger),
		ScenarioHandler:   handler.NewScenarioHandler(decisions, logger),
		EvaluationHandler: handler.NewEvaluationHandler(reportService, validate, logger),
		ReportHandler:     handler.NewReportHandler(reportService, logger),
		ScenarioCount:     func() int { return len(decisions.Scenarios()) },
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// buildSessionRepository prefers Redis when configured and falls back to the
// in-memory store, which is enough for single-instance deployments and local
// development.
func buildSessionRepository(cfg config.Config, logger zerolog.Logger) repository.SessionRepository {
	if cfg.RedisURL == "" {
		logger.Info().Msg("no redis url configured, using in-memory session store")
		return repository.NewMemorySessionRepository()
	}

	client, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	return repository.NewRedisSessionRepository(client, cfg.SessionTTL, logger)
}

// buildResponder picks the AI backend. Without an API key the service runs
// fully scripted.
func buildResponder(cfg config.Config, logger zerolog.Logger) ai.Responder {
	if cfg.AIProvider != "openai" || cfg.OpenAIAPIKey == "" {
		logger.Info().Str("provider", cfg.AIProvider).Msg("ai responder disabled, using scripted responses only")
		return ai.NewNoopResponder()
	}

	responder, err := ai.NewOpenAIResponder(ai.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.AITimeout,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("failed to create openai responder: %v", err)
	}
	return responder
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
