package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/group-summary-bot/internal/models"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GenerateRequest is a single text-generation call.
type GenerateRequest struct {
	System          string
	Prompt          string
	MaxOutputTokens int32
	Temperature     float32
}

// Backend is the text-generation service consumed by the pipeline.
// Implementations classify failures by returning *models.BackendError
// with the Transient flag set accordingly.
type Backend interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeminiBackend implements Backend on top of the Gemini API.
type GeminiBackend struct {
	apiKey  string
	model   string
	timeout time.Duration
	logger  zerolog.Logger

	mu          sync.Mutex
	genaiClient *genai.Client
}

var _ Backend = (*GeminiBackend)(nil)

// NewGeminiBackend creates a Gemini backend. The underlying client is
// created lazily on first use and reused afterwards.
func NewGeminiBackend(apiKey, model string, timeout int, logger zerolog.Logger) *GeminiBackend {
	return &GeminiBackend{
		apiKey:  apiKey,
		model:   model,
		timeout: time.Duration(timeout) * time.Second,
		logger:  logger.With().Str("component", "gemini_backend").Logger(),
	}
}

// getClient returns or creates a genai client (thread-safe)
func (b *GeminiBackend) getClient(ctx context.Context) (*genai.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.genaiClient != nil {
		return b.genaiClient, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(b.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	b.genaiClient = client
	b.logger.Info().Msg("Gemini client created and cached")
	return b.genaiClient, nil
}

// Close closes the backend and releases resources
func (b *GeminiBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.genaiClient != nil {
		err := b.genaiClient.Close()
		b.genaiClient = nil
		if err != nil {
			b.logger.Error().Err(err).Msg("Failed to close Gemini client")
			return err
		}
		b.logger.Info().Msg("Gemini client closed")
	}
	return nil
}

// Generate makes a single API call to Gemini.
func (b *GeminiBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	client, err := b.getClient(ctx)
	if err != nil {
		return "", &models.BackendError{Transient: true, Attempts: 1, Err: err}
	}

	model := client.GenerativeModel(b.model)
	model.SetTemperature(req.Temperature)
	model.SetMaxOutputTokens(req.MaxOutputTokens)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	b.logger.Debug().
		Str("model", b.model).
		Int("prompt_length", len(req.Prompt)).
		Msg("Sending request to Gemini")

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", &models.BackendError{Transient: isTransient(err), Attempts: 1, Err: err}
	}

	// A response without usable parts is typically a safety block;
	// retrying the same prompt will not help.
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &models.BackendError{Transient: false, Attempts: 1, Err: fmt.Errorf("no response candidates from LLM")}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &models.BackendError{Transient: false, Attempts: 1, Err: fmt.Errorf("no content parts in response")}
	}

	var responseText strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text := responseText.String()

	b.logger.Debug().
		Str("model", b.model).
		Int("response_length", len(text)).
		Msg("Received Gemini response")

	return text, nil
}

// isTransient reports whether an API failure is worth retrying:
// rate limits, server-side errors and timeouts are; everything else
// (auth, validation, safety) is not.
func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}
