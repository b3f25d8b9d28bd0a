package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"backend/internal/aggregator"
	"backend/internal/classifier"
	"backend/internal/config"
	"backend/internal/ingest"
	"backend/internal/moderation"
	"backend/internal/ratelimit"
	"backend/internal/repository"
	"backend/internal/server"
	"backend/internal/service"
	"backend/internal/telegram_bot"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	log := logrus.New()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, cfg.Database.MigrationsPath, logger)

	// Initialize repositories
	studentRepo := repository.NewStudentRepository(db, log)
	turnRepo := repository.NewTurnRepository(db, logger)
	summaryRepo := repository.NewSummaryRepository(db, logger)

	// Access gate
	authService := service.NewAuthService(cfg, studentRepo, logger)

	// Ingestion components
	limiter := ratelimit.New(
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		cfg.RateLimit.MaxRequests,
	)
	ruleClassifier := classifier.NewRuleClassifier(cfg.Classifier.Topics, logger)
	filter := moderation.NewFilter()

	// Telegram bot for flag alerts
	bot, err := telegram_bot.NewAlertBot(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram bot, continuing without it", zap.Error(err))
		bot = nil
	}
	var notifier ingest.Notifier
	if bot != nil {
		notifier = bot
	}

	pipeline := ingest.NewPipeline(
		limiter,
		ruleClassifier,
		filter,
		turnRepo,
		notifier,
		cfg.Moderation.NotifySeverity,
		logger,
	)

	// Analytics aggregation
	agg := aggregator.New(turnRepo, summaryRepo, logger)
	window := time.Duration(cfg.Aggregator.WindowMinutes) * time.Minute
	scheduler, err := aggregator.NewScheduler(agg, cfg.Aggregator.Schedule, window, logger)
	if err != nil {
		logger.Fatal("Failed to create aggregation scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP server
	srv := server.NewServer(db, cfg, pipeline, agg, authService, logger, log)
	srv.Run(cfg.Server.Port)
}
