package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/group-summary-bot/internal/models"
)

// handleUpdate processes incoming update
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// Wrap in recover middleware
	b.recoverMiddleware(func() {
		// Handle message
		if update.Message != nil {
			b.handleMessage(ctx, update.Message)
		}
	})
}

// handleMessage processes incoming message
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if !b.config.IsAllowedChat(chatID) {
		b.logger.Debug().
			Int64("chat_id", chatID).
			Msg("Ignoring message from chat outside allow-list")
		return
	}

	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	b.ingestMessage(ctx, message)
}

// ingestMessage appends a group message to its date partition.
// Storage failures never block chat handling: the message is dropped
// from history and processing continues.
func (b *Bot) ingestMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Text == "" {
		return
	}

	sender := "Unknown"
	if message.From != nil {
		sender = strings.TrimSpace(message.From.FirstName + " " + message.From.LastName)
		if sender == "" {
			sender = message.From.UserName
		}
	}

	msg := models.Message{
		ChatID:    message.Chat.ID,
		MessageID: int64(message.MessageID),
		Sender:    sender,
		Text:      message.Text,
		Timestamp: message.Time().UTC(),
	}

	if err := b.store.Append(ctx, msg); err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", msg.ChatID).
			Int64("message_id", msg.MessageID).
			Msg("Failed to save message")
	}

	// First message from a new chat arms its daily trigger.
	if b.sched != nil && b.config.DailySummaryEnabled {
		if err := b.sched.Enable(msg.ChatID); err != nil {
			b.logger.Error().
				Err(err).
				Int64("chat_id", msg.ChatID).
				Msg("Failed to arm daily summary")
		}
	}
}

// handleCommand processes bot commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()

	logEvent := b.logger.Info().
		Str("command", command).
		Int64("chat_id", message.Chat.ID)
	if message.From != nil {
		logEvent = logEvent.Int64("user_id", message.From.ID)
	}
	logEvent.Msg("Received command")

	switch command {
	case "start", "help":
		b.handleHelpCommand(message)
	case "summary":
		b.handleSummaryCommand(ctx, message)
	case "stats":
		b.handleStatsCommand(ctx, message)
	default:
		b.sendReply(message.Chat.ID, message.MessageID, "❓ Unknown command. Use /help for the command list.")
	}
}

// handleHelpCommand handles /help and /start commands
func (b *Bot) handleHelpCommand(message *tgbotapi.Message) {
	helpMsg := fmt.Sprintf(
		"🤖 *Group summary bot*\n\n"+
			"I keep the chat history and summarize it with an LLM.\n\n"+
			"*Commands:*\n"+
			"/summary - summarize recent messages (up to %d from the last %.0f hours)\n"+
			"/summary N - override the message count\n"+
			"/summary N H - override the count and the hours window\n"+
			"/stats - today's chat statistics\n"+
			"/help - show this message\n\n"+
			"A daily summary is posted automatically at %s (%s).",
		b.config.SummaryMessageCount,
		b.config.SummaryHours,
		b.config.DailySummaryTime,
		b.config.Timezone,
	)

	b.sendMessage(message.Chat.ID, helpMsg)
}

// handleSummaryCommand handles the manual /summary command. The result
// is sent as a reply to the command message, so concurrent requests
// stay unambiguously tagged.
func (b *Bot) handleSummaryCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	count, hours, err := parseSummaryArgs(message.CommandArguments(), b.config.SummaryMessageCount, b.config.SummaryHours)
	if err != nil {
		b.sendReply(chatID, message.MessageID, "⚠️ "+err.Error()+"\nUsage: /summary [count] [hours]")
		return
	}

	b.sendTypingAction(chatID)

	result, err := b.pipeline.Summarize(ctx, models.SummaryWindow{
		ChatID:      chatID,
		MaxMessages: count,
		MaxHours:    hours,
		AsOf:        time.Now().UTC(),
	})

	switch {
	case errors.Is(err, models.ErrNoMessages):
		b.sendReply(chatID, message.MessageID, fmt.Sprintf("📭 Nothing to summarize in the last %.1f hours.", hours))
	case err != nil:
		b.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Int("count", count).
			Float64("hours", hours).
			Msg("Manual summary failed")
		b.sendReply(chatID, message.MessageID, "❌ Couldn't generate the summary. Please try again later.")
	default:
		if err := b.splitAndSend(chatID, message.MessageID, result.Text); err != nil {
			b.logger.Error().
				Err(err).
				Int64("chat_id", chatID).
				Msg("Failed to deliver summary")
		}
	}
}

// handleStatsCommand handles /stats command
func (b *Bot) handleStatsCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	date := time.Now().In(b.location).Format(models.DateLayout)

	stats, err := b.store.DailyStats(ctx, chatID, date)
	if err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Str("date", date).
			Msg("Failed to get daily stats")
		b.sendReply(chatID, message.MessageID, "❌ Couldn't fetch today's statistics.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 *Today's statistics* (%s)\n\n", stats.Date))
	sb.WriteString(fmt.Sprintf("💬 Messages: %d\n", stats.MessageCount))
	sb.WriteString(fmt.Sprintf("👥 Active senders: %d\n", stats.SenderCount))

	if len(stats.TopSenders) > 0 {
		sb.WriteString("\n🏆 *Most active:*\n")
		top := stats.TopSenders
		if len(top) > 10 {
			top = top[:10]
		}
		for i, sc := range top {
			sb.WriteString(fmt.Sprintf("%d. %s: %d messages\n", i+1, sc.Sender, sc.Count))
		}
	}

	b.sendMessage(chatID, sb.String())
}

// parseSummaryArgs parses the optional "[count] [hours]" arguments of
// /summary, falling back to the configured defaults.
func parseSummaryArgs(args string, defaultCount int, defaultHours float64) (int, float64, error) {
	count := defaultCount
	hours := defaultHours

	fields := strings.Fields(args)
	if len(fields) > 2 {
		return 0, 0, &models.ValidationError{Reason: "too many arguments"}
	}

	if len(fields) >= 1 {
		parsed, err := strconv.Atoi(fields[0])
		if err != nil || parsed <= 0 {
			return 0, 0, &models.ValidationError{Reason: fmt.Sprintf("message count must be a positive number, got %q", fields[0])}
		}
		count = parsed
	}

	if len(fields) == 2 {
		parsed, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || parsed <= 0 {
			return 0, 0, &models.ValidationError{Reason: fmt.Sprintf("hours must be a positive number, got %q", fields[1])}
		}
		hours = parsed
	}

	return count, hours, nil
}
