package main

import (
	"github.com/acme/supportlens/internal/config"
	"github.com/acme/supportlens/internal/handlers"
	"github.com/acme/supportlens/internal/models"
	"github.com/acme/supportlens/internal/services"
	"github.com/acme/supportlens/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	promptService   *services.PromptService
	ledgerService   *services.LedgerService
	costService     *services.CostService
	summaryService  *services.DailySummaryService
	chatHandler     *handlers.ChatHandler
	promptHandler   *handlers.PromptHandler
	feedbackHandler *handlers.FeedbackHandler
	costHandler     *handlers.CostHandler
	evaluateHandler *handlers.EvaluateHandler
}

// bootstrap initializes database, services, and the summary scheduler.
func bootstrap(cfg *config.Config) *appServices {
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()
	promptService := services.NewPromptService(db)
	if err := promptService.SeedDefaults(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default prompts")
	}

	ledgerService := services.NewLedgerService(db)
	costService := services.NewCostService(db, cfg.Pricing)
	chatService := services.NewChatService(promptService, ledgerService, costService, &cfg.LLM)
	evaluatorService := services.NewEvaluatorService(chatService)

	summaryService := services.NewDailySummaryService(ledgerService, costService)
	summaryService.StartScheduler()

	return &appServices{
		promptService:   promptService,
		ledgerService:   ledgerService,
		costService:     costService,
		summaryService:  summaryService,
		chatHandler:     handlers.NewChatHandler(chatService),
		promptHandler:   handlers.NewPromptHandler(promptService),
		feedbackHandler: handlers.NewFeedbackHandler(ledgerService),
		costHandler:     handlers.NewCostHandler(costService),
		evaluateHandler: handlers.NewEvaluateHandler(evaluatorService),
	}
}

// shutdown gracefully stops background services.
func (s *appServices) shutdown() {
	s.summaryService.StopScheduler()
	logger.Info().Msg("schedulers stopped")
}
