package storage

import (
	"context"
	"testing"
	"time"

	"github.com/group-summary-bot/internal/models"
	"github.com/stretchr/testify/require"
)

func TestFetchWindowTimeBound(t *testing.T) {
	store := newTestStore(t, time.UTC)
	ctx := context.Background()

	asOf := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	timestamps := []time.Time{
		asOf.Add(-5 * time.Hour), // outside
		asOf.Add(-90 * time.Minute),
		asOf.Add(-30 * time.Minute),
		asOf.Add(time.Hour), // after as-of
	}
	for i, ts := range timestamps {
		require.NoError(t, store.Append(ctx, testMessage(42, int64(i+1), "alice", ts)))
	}

	got, err := store.FetchWindow(ctx, models.SummaryWindow{
		ChatID:      42,
		MaxMessages: 10,
		MaxHours:    2,
		AsOf:        asOf,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	earliest := asOf.Add(-2 * time.Hour)
	for _, msg := range got {
		require.False(t, msg.Timestamp.Before(earliest))
		require.False(t, msg.Timestamp.After(asOf))
	}
}

func TestFetchWindowKeepsMostRecent(t *testing.T) {
	store := newTestStore(t, time.UTC)
	ctx := context.Background()

	asOf := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 8; i++ {
		ts := asOf.Add(-time.Duration(9-i) * time.Minute)
		require.NoError(t, store.Append(ctx, testMessage(42, i, "alice", ts)))
	}

	got, err := store.FetchWindow(ctx, models.SummaryWindow{
		ChatID:      42,
		MaxMessages: 3,
		MaxHours:    24,
		AsOf:        asOf,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	// The count limit trims from the oldest end: 6, 7, 8 remain.
	require.Equal(t, int64(6), got[0].MessageID)
	require.Equal(t, int64(7), got[1].MessageID)
	require.Equal(t, int64(8), got[2].MessageID)
}

func TestFetchWindowSpansMidnight(t *testing.T) {
	store := newTestStore(t, time.UTC)
	ctx := context.Background()

	day1 := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	require.NoError(t, store.Append(ctx, testMessage(42, 1, "alice", day1.Add(10*time.Hour))))
	require.NoError(t, store.Append(ctx, testMessage(42, 2, "bob", day1.Add(14*time.Hour))))
	require.NoError(t, store.Append(ctx, testMessage(42, 3, "alice", day1.Add(23*time.Hour+50*time.Minute))))
	require.NoError(t, store.Append(ctx, testMessage(42, 4, "bob", day2.Add(10*time.Minute))))

	got, err := store.FetchWindow(ctx, models.SummaryWindow{
		ChatID:      42,
		MaxMessages: 10,
		MaxHours:    4,
		AsOf:        day2.Add(30 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(3), got[0].MessageID) // 23:50 day 1
	require.Equal(t, int64(4), got[1].MessageID) // 00:10 day 2
}

func TestFetchWindowEmptyConversation(t *testing.T) {
	store := newTestStore(t, time.UTC)

	got, err := store.FetchWindow(context.Background(), models.SummaryWindow{
		ChatID:      42,
		MaxMessages: 10,
		MaxHours:    24,
		AsOf:        time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFetchWindowValidatesLimits(t *testing.T) {
	store := newTestStore(t, time.UTC)
	ctx := context.Background()

	var validationErr *models.ValidationError

	_, err := store.FetchWindow(ctx, models.SummaryWindow{ChatID: 42, MaxMessages: 0, MaxHours: 24})
	require.ErrorAs(t, err, &validationErr)

	_, err = store.FetchWindow(ctx, models.SummaryWindow{ChatID: 42, MaxMessages: 10, MaxHours: 0})
	require.ErrorAs(t, err, &validationErr)
}

func TestFetchWindowFractionalHours(t *testing.T) {
	store := newTestStore(t, time.UTC)
	ctx := context.Background()

	asOf := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, testMessage(42, 1, "alice", asOf.Add(-45*time.Minute))))
	require.NoError(t, store.Append(ctx, testMessage(42, 2, "bob", asOf.Add(-15*time.Minute))))

	got, err := store.FetchWindow(ctx, models.SummaryWindow{
		ChatID:      42,
		MaxMessages: 10,
		MaxHours:    0.5,
		AsOf:        asOf,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(2), got[0].MessageID)
}
