package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/group-summary-bot/internal/bot"
	"github.com/group-summary-bot/internal/config"
	"github.com/group-summary-bot/internal/scheduler"
	"github.com/group-summary-bot/internal/storage"
	"github.com/group-summary-bot/internal/summary"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.Environment)
	logger.Info().
		Str("environment", cfg.Environment).
		Str("timezone", cfg.Timezone).
		Bool("daily_summary_enabled", cfg.DailySummaryEnabled).
		Str("daily_summary_time", cfg.DailySummaryTime).
		Msg("Starting group summary bot")

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("Failed to load timezone")
	}

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize message store
	logger.Info().Str("data_dir", cfg.DataDir).Msg("Initializing message store...")
	store, err := storage.NewStore(cfg.DataDir, location, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create message store")
	}

	// Initialize Gemini backend and summary pipeline
	logger.Info().Str("model", cfg.GeminiModel).Msg("Initializing Gemini backend...")
	backend := summary.NewGeminiBackend(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout, logger)
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close Gemini backend")
		}
	}()

	pipeline := summary.NewPipeline(
		store,
		backend,
		summary.DefaultRetryPolicy,
		location,
		cfg.LLMTemperature,
		cfg.LLMMaxTokens,
		logger,
	)

	// Initialize bot
	logger.Info().Msg("Initializing Telegram bot...")
	telegramBot, err := bot.New(cfg, store, pipeline, location, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create bot")
	}

	logger.Info().
		Str("username", telegramBot.GetUsername()).
		Interface("allowed_chat_ids", cfg.AllowedChatIDs).
		Msg("Bot initialized successfully")

	// Initialize daily summary scheduler (if enabled)
	var sched *scheduler.Scheduler
	if cfg.DailySummaryEnabled {
		logger.Info().Msg("Initializing daily summary scheduler...")
		sched, err = scheduler.New(
			cfg.DailySummaryTime,
			location,
			pipeline,
			store,
			telegramBot.SendSummary,
			cfg.SummaryMessageCount,
			logger,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create scheduler")
		}
		telegramBot.SetScheduler(sched)

		// Arm triggers for the allow-list, or for every known chat when
		// the allow-list is empty. New chats are armed on first message.
		chatIDs := cfg.AllowedChatIDs
		if len(chatIDs) == 0 {
			chatIDs, err = store.ListConversations()
			if err != nil {
				logger.Error().Err(err).Msg("Failed to list stored conversations")
			}
		}
		for _, chatID := range chatIDs {
			if err := sched.Enable(chatID); err != nil {
				logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to arm daily summary")
			}
		}

		sched.Start()
		logger.Info().
			Int("armed_chats", len(chatIDs)).
			Str("fire_time", cfg.DailySummaryTime).
			Msg("Daily summary scheduler started")
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start bot in a goroutine
	botErrChan := make(chan error, 1)
	go func() {
		if err := telegramBot.Start(ctx); err != nil {
			botErrChan <- err
		}
	}()

	logger.Info().Msg("Bot is running. Press Ctrl+C to stop.")

	// Wait for termination signal or bot error
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received termination signal")
	case err := <-botErrChan:
		logger.Error().Err(err).Msg("Bot stopped with error")
	}

	// Graceful shutdown
	logger.Info().Msg("Initiating graceful shutdown...")
	cancel()

	// Stop scheduler if running
	if sched != nil {
		logger.Info().Msg("Stopping scheduler...")
		sched.Stop()
	}

	// Give the bot some time to finish processing
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Create a channel to signal shutdown complete
	done := make(chan struct{})
	go func() {
		telegramBot.Stop() // This will wait for WaitGroup internally
		close(done)
	}()

	// Wait for shutdown or timeout
	select {
	case <-shutdownCtx.Done():
		logger.Warn().Msg("Shutdown timeout exceeded, some requests may be lost")
	case <-done:
		logger.Info().Msg("Graceful shutdown completed")
	}

	logger.Info().Msg("Bot stopped")
}

// setupLogger configures and returns a zerolog logger
func setupLogger(level, environment string) zerolog.Logger {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	var logger zerolog.Logger
	if environment == "development" {
		// Pretty console output for development
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	} else {
		// JSON output for production
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return logger
}
