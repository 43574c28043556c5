package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/group-summary-bot/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeSummarizer struct {
	result     *models.SummaryResult
	err        error
	calls      int
	lastWindow models.SummaryWindow
}

func (f *fakeSummarizer) Summarize(_ context.Context, w models.SummaryWindow) (*models.SummaryResult, error) {
	f.calls++
	f.lastWindow = w
	if f.err != nil {
		return nil, f.err
	}
	result := *f.result
	result.Window = w
	return &result, nil
}

type fakeStore struct {
	exists    bool
	existsErr error
	saved     []models.DailySummary
	saveErr   error
	stats     models.DailyStats
}

func (f *fakeStore) DailySummaryExists(context.Context, int64, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStore) SaveDailySummary(_ context.Context, summary models.DailySummary) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, summary)
	return nil
}

func (f *fakeStore) DailyStats(_ context.Context, _ int64, date string) (models.DailyStats, error) {
	stats := f.stats
	stats.Date = date
	return stats, nil
}

type sendRecorder struct {
	sent []string
	err  error
}

func (r *sendRecorder) send(_ int64, text string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, text)
	return nil
}

func newTestScheduler(t *testing.T, summarizer Summarizer, store SummaryStore, sender *sendRecorder) *Scheduler {
	t.Helper()
	sched, err := New("23:59", time.UTC, summarizer, store, sender.send, 100, zerolog.Nop())
	require.NoError(t, err)
	return sched
}

func TestParseDailyTime(t *testing.T) {
	hour, minute, err := ParseDailyTime(" 09:15 ")
	require.NoError(t, err)
	require.Equal(t, 9, hour)
	require.Equal(t, 15, minute)
}

func TestParseDailyTimeInvalid(t *testing.T) {
	_, _, err := ParseDailyTime("9-15")
	require.Error(t, err)

	_, _, err = ParseDailyTime("25:00")
	require.Error(t, err)
}

func TestFireOnceSkipsWhenAlreadyFired(t *testing.T) {
	summarizer := &fakeSummarizer{result: &models.SummaryResult{Text: "summary"}}
	store := &fakeStore{exists: true}
	sender := &sendRecorder{}
	sched := newTestScheduler(t, summarizer, store, sender)

	require.NoError(t, sched.FireOnce(context.Background(), 42))
	require.Zero(t, summarizer.calls, "firing must be skipped when today's marker exists")
	require.Empty(t, sender.sent)
	require.Empty(t, store.saved)
}

func TestFireOnceDeliversAndMarks(t *testing.T) {
	summarizer := &fakeSummarizer{result: &models.SummaryResult{Text: "the day's topics", MessageCount: 12}}
	store := &fakeStore{stats: models.DailyStats{TopSenders: []models.SenderCount{{Sender: "alice", Count: 7}}}}
	sender := &sendRecorder{}
	sched := newTestScheduler(t, summarizer, store, sender)

	require.NoError(t, sched.FireOnce(context.Background(), 42))

	require.Equal(t, 1, summarizer.calls)
	require.Equal(t, float64(24), summarizer.lastWindow.MaxHours)
	require.Equal(t, 100, summarizer.lastWindow.MaxMessages)

	require.Len(t, sender.sent, 1)
	require.Contains(t, sender.sent[0], "the day's topics")
	require.Contains(t, sender.sent[0], "alice (7)")

	require.Len(t, store.saved, 1)
	require.Equal(t, int64(42), store.saved[0].ChatID)
	require.Equal(t, time.Now().UTC().Format(models.DateLayout), store.saved[0].Date)
	require.Equal(t, 12, store.saved[0].MessageCount)
}

func TestFireOnceNoMessages(t *testing.T) {
	summarizer := &fakeSummarizer{err: models.ErrNoMessages}
	store := &fakeStore{}
	sender := &sendRecorder{}
	sched := newTestScheduler(t, summarizer, store, sender)

	require.NoError(t, sched.FireOnce(context.Background(), 42))
	require.Empty(t, sender.sent, "an empty day is skipped silently")
	require.Empty(t, store.saved)
}

func TestFireOnceBackendFailureLeavesNoMarker(t *testing.T) {
	summarizer := &fakeSummarizer{err: &models.BackendError{Transient: true, Attempts: 3, Err: errors.New("backend down")}}
	store := &fakeStore{}
	sender := &sendRecorder{}
	sched := newTestScheduler(t, summarizer, store, sender)

	err := sched.FireOnce(context.Background(), 42)
	require.Error(t, err)
	require.Len(t, sender.sent, 1, "the chat gets a failure notice")
	require.Empty(t, store.saved, "a failed firing must not write the marker")
}

func TestFireOnceDeliveryFailureLeavesNoMarker(t *testing.T) {
	summarizer := &fakeSummarizer{result: &models.SummaryResult{Text: "summary"}}
	store := &fakeStore{}
	sender := &sendRecorder{err: errors.New("telegram unavailable")}
	sched := newTestScheduler(t, summarizer, store, sender)

	err := sched.FireOnce(context.Background(), 42)
	require.Error(t, err)
	require.Empty(t, store.saved)
}

func TestEnableDisable(t *testing.T) {
	summarizer := &fakeSummarizer{result: &models.SummaryResult{Text: "summary"}}
	sched := newTestScheduler(t, summarizer, &fakeStore{}, &sendRecorder{})

	require.False(t, sched.Enabled(42))

	require.NoError(t, sched.Enable(42))
	require.True(t, sched.Enabled(42))

	// Enabling an armed chat is a no-op.
	require.NoError(t, sched.Enable(42))
	require.True(t, sched.Enabled(42))

	sched.Disable(42)
	require.False(t, sched.Enabled(42))

	// Entries are independent per chat.
	require.NoError(t, sched.Enable(1))
	require.NoError(t, sched.Enable(2))
	sched.Disable(1)
	require.False(t, sched.Enabled(1))
	require.True(t, sched.Enabled(2))
}
