package bot

import (
	"fmt"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram caps messages at 4096 characters; stay under it.
const maxMessageLength = 4000

// recoverMiddleware handles panics in message handlers
func (b *Bot) recoverMiddleware(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Panic recovered in handler")
		}
	}()

	handler()
}

// sendMessage sends a message to the chat
func (b *Bot) sendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"

	_, err := b.api.Send(msg)
	if err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Msg("Failed to send message")
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// sendReply sends a message as a reply to a specific message, tagging
// the response with its originating request.
func (b *Bot) sendReply(chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}

	_, err := b.api.Send(msg)
	if err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Int("reply_to", replyTo).
			Msg("Failed to send reply")
		return fmt.Errorf("failed to send reply: %w", err)
	}

	return nil
}

// splitAndSend sends text in chunks that fit the Telegram limit. Only
// the first chunk carries the reply-to tag.
func (b *Bot) splitAndSend(chatID int64, replyTo int, text string) error {
	chunks := splitMessage(text, maxMessageLength)

	for i, chunk := range chunks {
		tag := 0
		if i == 0 {
			tag = replyTo
		}
		if err := b.sendReply(chatID, tag, chunk); err != nil {
			return err
		}
		if i < len(chunks)-1 {
			// Avoid hitting Telegram's send rate.
			time.Sleep(time.Second)
		}
	}

	return nil
}

// splitMessage splits text into rune-safe chunks of at most limit runes.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// sendTypingAction sends typing action to the chat
func (b *Bot) sendTypingAction(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = b.api.Send(action)
}
