package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("TIMEZONE", "UTC")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	require.Equal(t, "data", cfg.DataDir)
	require.True(t, cfg.DailySummaryEnabled)
	require.Equal(t, "23:59", cfg.DailySummaryTime)
	require.Equal(t, 100, cfg.SummaryMessageCount)
	require.Equal(t, float64(24), cfg.SummaryHours)
	require.Empty(t, cfg.AllowedChatIDs)
}

func TestLoadAllowedChats(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_ALLOWED_CHAT_IDS", "-1003128718593, 42")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []int64{-1003128718593, 42}, cfg.AllowedChatIDs)

	require.True(t, cfg.IsAllowedChat(42))
	require.False(t, cfg.IsAllowedChat(7))
}

func TestEmptyAllowListAcceptsAll(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.IsAllowedChat(7))
	require.True(t, cfg.IsAllowedChat(-1))
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("GEMINI_API_KEY", "test-key")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadInvalidDailyTime(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DAILY_SUMMARY_TIME", "9pm")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadInvalidSummaryCount(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SUMMARY_MESSAGE_COUNT", "-5")

	_, err := Load()
	require.Error(t, err)
}
