package models

import "time"

// DateLayout is the partition date format (local calendar date).
const DateLayout = "2006-01-02"

// Message is a single immutable chat message as received from Telegram.
// MessageID is unique within a chat but not globally.
type Message struct {
	ChatID    int64     `json:"chat_id"`
	MessageID int64     `json:"message_id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"` // UTC
}

// SummaryWindow describes a bounded slice of a chat's history used as
// summarization input. It is never persisted.
type SummaryWindow struct {
	ChatID      int64
	MaxMessages int
	MaxHours    float64
	AsOf        time.Time // reference instant; zero means "now"
}

// Earliest returns the lower time bound of the window.
func (w SummaryWindow) Earliest() time.Time {
	return w.AsOf.Add(-time.Duration(w.MaxHours * float64(time.Hour)))
}

// SummaryResult is a successfully generated summary for one window.
type SummaryResult struct {
	Window       SummaryWindow
	MessageCount int
	Text         string
	GeneratedAt  time.Time
}

// SenderCount is a per-sender message count for statistics.
type SenderCount struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

// DailyStats holds per-day message statistics for one chat.
type DailyStats struct {
	Date         string
	MessageCount int
	SenderCount  int
	TopSenders   []SenderCount // sorted by count, descending
}

// DailySummary is the persisted artifact of a daily summary firing.
// Its presence for a (chat, date) pair is what prevents a second firing
// on the same local calendar date after a restart.
type DailySummary struct {
	ChatID       int64     `json:"chat_id"`
	Date         string    `json:"date"` // Format: YYYY-MM-DD in the configured timezone
	SummaryText  string    `json:"summary_text"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// BotConfig represents bot configuration
type BotConfig struct {
	// Telegram settings
	TelegramToken  string
	AllowedChatIDs []int64 // empty list means all chats are accepted

	// Gemini API settings
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout int

	// Storage settings
	DataDir string

	// App settings
	Timezone    string
	LogLevel    string
	Environment string

	// Summary settings
	DailySummaryEnabled bool
	DailySummaryTime    string // HH:MM in the configured timezone
	SummaryMessageCount int
	SummaryHours        float64

	// LLM generation parameters
	LLMTemperature float32
	LLMMaxTokens   int32
}

// IsAllowedChat checks if the given chat ID is accepted. An empty
// allow-list accepts every chat.
func (c *BotConfig) IsAllowedChat(chatID int64) bool {
	if len(c.AllowedChatIDs) == 0 {
		return true
	}
	for _, allowedID := range c.AllowedChatIDs {
		if allowedID == chatID {
			return true
		}
	}
	return false
}
