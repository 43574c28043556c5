package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/group-summary-bot/internal/models"
	"github.com/group-summary-bot/internal/scheduler"
	"github.com/group-summary-bot/internal/storage"
	"github.com/group-summary-bot/internal/summary"
	"github.com/rs/zerolog"
)

// Bot receives Telegram updates, appends group messages to the store
// and serves the summary commands.
type Bot struct {
	api      *tgbotapi.BotAPI
	config   *models.BotConfig
	store    *storage.Store
	pipeline *summary.Pipeline
	sched    *scheduler.Scheduler
	location *time.Location
	logger   zerolog.Logger
	wg       sync.WaitGroup // Tracks active handlers for graceful shutdown
}

// New creates a new bot instance
func New(
	config *models.BotConfig,
	store *storage.Store,
	pipeline *summary.Pipeline,
	location *time.Location,
	logger zerolog.Logger,
) (*Bot, error) {
	// Create Telegram bot API client
	api, err := tgbotapi.NewBotAPI(config.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	// Set debug mode based on log level
	api.Debug = config.LogLevel == "debug"

	logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authorized")

	return &Bot{
		api:      api,
		config:   config,
		store:    store,
		pipeline: pipeline,
		location: location,
		logger:   logger.With().Str("component", "bot").Logger(),
	}, nil
}

// SetScheduler attaches the daily-summary scheduler so new chats get
// armed on their first message. The scheduler is wired after the bot
// because its delivery callback is SendSummary.
func (b *Bot) SetScheduler(sched *scheduler.Scheduler) {
	b.sched = sched
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info().Msg("Starting bot...")

	// Configure update settings
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	// Get updates channel
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info().Msg("Bot started, waiting for messages...")

	// Process updates
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Shutting down bot...")
			b.api.StopReceivingUpdates()

			// Wait for all active handlers to complete
			b.logger.Info().Msg("Waiting for active handlers to complete...")
			b.wg.Wait()
			b.logger.Info().Msg("All handlers completed")

			return nil

		case update := <-updates:
			// Track this handler in WaitGroup
			b.wg.Add(1)
			// Process update in a goroutine to not block
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// Stop stops the bot
func (b *Bot) Stop() {
	b.logger.Info().Msg("Stopping bot...")
	b.api.StopReceivingUpdates()
	b.wg.Wait()
}

// GetUsername returns bot username
func (b *Bot) GetUsername() string {
	return b.api.Self.UserName
}

// SendSummary delivers a summary text to a chat, splitting it when it
// exceeds the Telegram message limit. Used as the scheduler callback.
func (b *Bot) SendSummary(chatID int64, text string) error {
	return b.splitAndSend(chatID, 0, text)
}
