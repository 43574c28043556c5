package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/group-summary-bot/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SummarySender delivers a finished summary (or failure notice) to a chat.
type SummarySender func(chatID int64, text string) error

// Summarizer is the summary pipeline as seen by the scheduler.
type Summarizer interface {
	Summarize(ctx context.Context, w models.SummaryWindow) (*models.SummaryResult, error)
}

// SummaryStore persists fire markers and provides per-day statistics
// for the daily summary header.
type SummaryStore interface {
	DailySummaryExists(ctx context.Context, chatID int64, date string) (bool, error)
	SaveDailySummary(ctx context.Context, summary models.DailySummary) error
	DailyStats(ctx context.Context, chatID int64, date string) (models.DailyStats, error)
}

// Scheduler owns one recurring daily trigger per enabled chat. Entries
// are held in an explicit registry and mutated only through Enable and
// Disable, so a disable racing a fire is resolved by the cron runner.
// The persisted daily-summary artifact is the once-per-date guard: it
// survives restarts within the same local day.
type Scheduler struct {
	cron        *cron.Cron
	cronSpec    string
	location    *time.Location
	summarizer  Summarizer
	store       SummaryStore
	send        SummarySender
	maxMessages int
	logger      zerolog.Logger

	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

// New creates a scheduler firing daily at fireTime (HH:MM) in loc.
func New(fireTime string, loc *time.Location, summarizer Summarizer, store SummaryStore, send SummarySender, maxMessages int, logger zerolog.Logger) (*Scheduler, error) {
	hour, minute, err := ParseDailyTime(fireTime)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		cronSpec:    fmt.Sprintf("%d %d * * *", minute, hour),
		location:    loc,
		summarizer:  summarizer,
		store:       store,
		send:        send,
		maxMessages: maxMessages,
		logger:      logger.With().Str("component", "scheduler").Logger(),
		entries:     make(map[int64]cron.EntryID),
	}, nil
}

// ParseDailyTime parses a "HH:MM" wall-clock time.
func ParseDailyTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("daily summary time must be HH:MM: %w", err)
	}
	return t.Hour(), t.Minute(), nil
}

// Start starts the cron runner.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Str("spec", s.cronSpec).Msg("Scheduler started")
}

// Stop cancels all pending triggers and waits for a running fire to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// Enable arms the daily trigger for a chat. Enabling an already armed
// chat is a no-op; re-enabling after Disable recomputes the next
// occurrence from the current instant.
func (s *Scheduler) Enable(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[chatID]; ok {
		return nil
	}

	id, err := s.cron.AddFunc(s.cronSpec, func() {
		if err := s.FireOnce(context.Background(), chatID); err != nil {
			s.logger.Error().
				Err(err).
				Int64("chat_id", chatID).
				Msg("Daily summary firing failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to arm daily trigger: %w", err)
	}

	s.entries[chatID] = id
	s.logger.Info().Int64("chat_id", chatID).Msg("Daily summary armed")
	return nil
}

// Disable cancels the pending trigger for a chat.
func (s *Scheduler) Disable(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[chatID]
	if !ok {
		return
	}

	s.cron.Remove(id)
	delete(s.entries, chatID)
	s.logger.Info().Int64("chat_id", chatID).Msg("Daily summary disarmed")
}

// Enabled reports whether a chat has an armed trigger.
func (s *Scheduler) Enabled(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[chatID]
	return ok
}

// FireOnce runs one daily-summary firing for a chat: skip if today's
// marker already exists, otherwise summarize the prior 24 hours,
// deliver, and only then write the marker. A failed generation or
// delivery leaves no marker, so the attempt may be retried the same day.
func (s *Scheduler) FireOnce(ctx context.Context, chatID int64) error {
	now := time.Now().In(s.location)
	date := now.Format(models.DateLayout)
	logger := s.logger.With().Int64("chat_id", chatID).Str("date", date).Logger()

	fired, err := s.store.DailySummaryExists(ctx, chatID, date)
	if err != nil {
		return fmt.Errorf("failed to check fire marker: %w", err)
	}
	if fired {
		logger.Info().Msg("Summary already sent today, skipping")
		return nil
	}

	logger.Info().Msg("Processing daily summary")

	result, err := s.summarizer.Summarize(ctx, models.SummaryWindow{
		ChatID:      chatID,
		MaxMessages: s.maxMessages,
		MaxHours:    24,
		AsOf:        now,
	})
	if errors.Is(err, models.ErrNoMessages) {
		logger.Info().Msg("No messages in the last day, skipping summary")
		return nil
	}
	if err != nil {
		if sendErr := s.send(chatID, "Couldn't put together today's summary, sorry. Will try again tomorrow."); sendErr != nil {
			logger.Error().Err(sendErr).Msg("Failed to send failure notice")
		}
		return fmt.Errorf("failed to generate daily summary: %w", err)
	}

	text := s.formatDailySummary(ctx, chatID, date, result)
	if err := s.send(chatID, text); err != nil {
		return fmt.Errorf("failed to send daily summary: %w", err)
	}

	// Marker written only after confirmed delivery.
	if err := s.store.SaveDailySummary(ctx, models.DailySummary{
		ChatID:       chatID,
		Date:         date,
		SummaryText:  result.Text,
		MessageCount: result.MessageCount,
	}); err != nil {
		// The summary was delivered; losing the marker only risks a
		// duplicate after a restart.
		logger.Error().Err(err).Msg("Failed to save fire marker")
	}

	logger.Info().
		Int("message_count", result.MessageCount).
		Msg("Daily summary completed successfully")

	return nil
}

// formatDailySummary prepends the date, message count and most active
// senders to the generated text.
func (s *Scheduler) formatDailySummary(ctx context.Context, chatID int64, date string, result *models.SummaryResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 Daily summary (%s)\n", date))
	sb.WriteString(fmt.Sprintf("📝 Messages: %d\n", result.MessageCount))

	stats, err := s.store.DailyStats(ctx, chatID, date)
	if err == nil && len(stats.TopSenders) > 0 {
		top := stats.TopSenders
		if len(top) > 5 {
			top = top[:5]
		}
		parts := make([]string, 0, len(top))
		for _, sc := range top {
			parts = append(parts, fmt.Sprintf("%s (%d)", sc.Sender, sc.Count))
		}
		sb.WriteString("👥 Most active: " + strings.Join(parts, ", ") + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(result.Text)
	return sb.String()
}
