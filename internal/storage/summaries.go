package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/group-summary-bot/internal/models"
)

// Daily summary artifacts live next to the message partitions:
// <dataDir>/<chat_id>/summaries/<YYYY-MM-DD>.json. The presence of a
// file is the restart-safe "already fired today" marker.

func (s *Store) summaryPath(chatID int64, date string) string {
	return filepath.Join(s.chatDir(chatID), "summaries", date+".json")
}

// SaveDailySummary stores the generated daily summary for a date.
// Saving twice for the same date overwrites the previous artifact.
func (s *Store) SaveDailySummary(ctx context.Context, summary models.DailySummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	path := s.summaryPath(summary.ChatID, summary.Date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &models.StorageError{Op: "save_daily_summary", Err: err}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return &models.StorageError{Op: "save_daily_summary", Err: err}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &models.StorageError{Op: "save_daily_summary", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &models.StorageError{Op: "save_daily_summary", Err: err}
	}

	s.logger.Info().
		Int64("chat_id", summary.ChatID).
		Str("date", summary.Date).
		Int("message_count", summary.MessageCount).
		Msg("Daily summary saved")

	return nil
}

// DailySummaryExists checks whether a summary was already delivered for
// the given local date.
func (s *Store) DailySummaryExists(ctx context.Context, chatID int64, date string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(s.summaryPath(chatID, date))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &models.StorageError{Op: "check_daily_summary", Err: err}
	}
	return true, nil
}

// GetDailySummary retrieves a stored daily summary, or nil if none
// exists for that date.
func (s *Store) GetDailySummary(ctx context.Context, chatID int64, date string) (*models.DailySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.summaryPath(chatID, date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &models.StorageError{Op: "get_daily_summary", Err: err}
	}

	var summary models.DailySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, &models.StorageError{Op: "get_daily_summary", Err: fmt.Errorf("failed to parse summary: %w", err)}
	}

	return &summary, nil
}
