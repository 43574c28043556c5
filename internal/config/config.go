package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/group-summary-bot/internal/models"
	"github.com/joho/godotenv"
)

// Load loads configuration from environment variables
// It first attempts to load from .env file, then reads environment variables
func Load() (*models.BotConfig, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	config := &models.BotConfig{
		// Telegram settings
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		AllowedChatIDs: getEnvInt64List("TELEGRAM_ALLOWED_CHAT_IDS"),

		// Gemini API settings
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeout: getEnvInt("GEMINI_TIMEOUT", 60),

		// Storage settings
		DataDir: getEnv("DATA_DIR", "data"),

		// App settings
		Timezone:    getEnv("TIMEZONE", "Europe/Moscow"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "production"),

		// Summary settings
		DailySummaryEnabled: getEnvBool("DAILY_SUMMARY_ENABLED", true),
		DailySummaryTime:    getEnv("DAILY_SUMMARY_TIME", "23:59"),
		SummaryMessageCount: getEnvInt("SUMMARY_MESSAGE_COUNT", 100),
		SummaryHours:        getEnvFloat("SUMMARY_HOURS", 24),

		// LLM generation parameters
		LLMTemperature: float32(getEnvFloat("LLM_TEMPERATURE", 0.7)),
		LLMMaxTokens:   int32(getEnvInt("LLM_MAX_TOKENS", 2048)),
	}

	// Validate configuration
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks if all required configuration values are set
func validate(cfg *models.BotConfig) error {
	if cfg.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}
	if _, err := time.Parse("15:04", cfg.DailySummaryTime); err != nil {
		return fmt.Errorf("DAILY_SUMMARY_TIME must be HH:MM, got %s", cfg.DailySummaryTime)
	}

	// Validate positive values
	if cfg.SummaryMessageCount <= 0 {
		return fmt.Errorf("SUMMARY_MESSAGE_COUNT must be positive, got %d", cfg.SummaryMessageCount)
	}
	if cfg.SummaryHours <= 0 {
		return fmt.Errorf("SUMMARY_HOURS must be positive, got %v", cfg.SummaryHours)
	}
	if cfg.GeminiTimeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive, got %d", cfg.GeminiTimeout)
	}
	if cfg.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", cfg.LLMMaxTokens)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %s", cfg.LogLevel)
	}

	return nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvFloat retrieves environment variable as float or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvBool retrieves environment variable as boolean or returns default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvInt64List parses a comma-separated list of chat IDs.
// An empty variable yields an empty list (all chats accepted).
func getEnvInt64List(key string) []int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	parts := strings.Split(valueStr, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
