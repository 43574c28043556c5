package storage

import (
	"context"
	"time"

	"github.com/group-summary-bot/internal/models"
)

// FetchWindow returns the messages matching the window, oldest first.
// Every returned message satisfies earliest <= timestamp <= as-of; when
// more than MaxMessages qualify, the most recent ones are kept.
//
// Partitions are walked backward from the as-of date, so a window that
// crosses local midnight reads two or more partitions. The walk stops as
// soon as the earliest boundary is covered, or earlier once the message
// budget is already satisfied, so old partitions are never touched
// needlessly.
func (s *Store) FetchWindow(ctx context.Context, w models.SummaryWindow) ([]models.Message, error) {
	if w.MaxMessages <= 0 {
		return nil, &models.ValidationError{Reason: "message count must be positive"}
	}
	if w.MaxHours <= 0 {
		return nil, &models.ValidationError{Reason: "hours must be positive"}
	}
	if w.AsOf.IsZero() {
		w.AsOf = time.Now().UTC()
	}

	earliest := w.Earliest()

	day := localMidnight(w.AsOf, s.location)
	earliestDay := localMidnight(earliest, s.location)

	var collected []models.Message
	for {
		partition, err := s.LoadPartition(ctx, w.ChatID, day.Format(models.DateLayout))
		if err != nil {
			return nil, err
		}

		var matched []models.Message
		for _, msg := range partition {
			if msg.Timestamp.Before(earliest) || msg.Timestamp.After(w.AsOf) {
				continue
			}
			matched = append(matched, msg)
		}
		// Prepend to keep chronological order across partitions.
		collected = append(matched, collected...)

		if !day.After(earliestDay) {
			break
		}
		if len(collected) >= w.MaxMessages {
			break
		}
		day = day.AddDate(0, 0, -1)
	}

	// The count limit trims from the oldest end after time filtering.
	if len(collected) > w.MaxMessages {
		collected = collected[len(collected)-w.MaxMessages:]
	}

	return collected, nil
}

// localMidnight truncates an instant to the start of its local calendar day.
func localMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
