package summary

import (
	"context"
	"errors"
	"time"

	"github.com/group-summary-bot/internal/models"
	"github.com/rs/zerolog"
)

// MessageSource provides the window of messages to summarize.
type MessageSource interface {
	FetchWindow(ctx context.Context, w models.SummaryWindow) ([]models.Message, error)
}

// RetryPolicy is the backoff schedule for transient backend failures,
// kept separate from the call mechanics so tests can inject a fake
// backend and count attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// DefaultRetryPolicy retries twice after the first failure: 1s, 2s.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Second}

// Backoff returns the delay before the given attempt (2-based): the
// schedule doubles from BaseBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseBackoff << uint(attempt-2)
}

// Pipeline turns a summary window into a generated summary: fetch the
// messages, render the prompt, call the backend with retries. Callers
// observe either a complete SummaryResult or a single typed error.
type Pipeline struct {
	source      MessageSource
	backend     Backend
	policy      RetryPolicy
	location    *time.Location
	temperature float32
	maxTokens   int32
	logger      zerolog.Logger
}

// NewPipeline creates a summary pipeline.
func NewPipeline(source MessageSource, backend Backend, policy RetryPolicy, loc *time.Location, temperature float32, maxTokens int32, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		source:      source,
		backend:     backend,
		policy:      policy,
		location:    loc,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger.With().Str("component", "summary_pipeline").Logger(),
	}
}

// Summarize produces a summary for the window, or models.ErrNoMessages
// when the window is empty (the backend is never called in that case),
// or a *models.BackendError when generation fails.
func (p *Pipeline) Summarize(ctx context.Context, w models.SummaryWindow) (*models.SummaryResult, error) {
	if w.AsOf.IsZero() {
		w.AsOf = time.Now().UTC()
	}

	messages, err := p.source.FetchWindow(ctx, w)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		p.logger.Debug().
			Int64("chat_id", w.ChatID).
			Float64("hours", w.MaxHours).
			Msg("No messages to summarize")
		return nil, models.ErrNoMessages
	}

	p.logger.Info().
		Int64("chat_id", w.ChatID).
		Int("message_count", len(messages)).
		Int("max_messages", w.MaxMessages).
		Float64("hours", w.MaxHours).
		Msg("Starting summary generation")

	req := GenerateRequest{
		System:          SystemPrompt,
		Prompt:          RenderMessages(messages, p.location),
		MaxOutputTokens: p.maxTokens,
		Temperature:     p.temperature,
	}

	text, err := p.generateWithRetry(ctx, w, req)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Int64("chat_id", w.ChatID).
		Int("message_count", len(messages)).
		Int("summary_length", len(text)).
		Msg("Summary generation completed")

	return &models.SummaryResult{
		Window:       w,
		MessageCount: len(messages),
		Text:         text,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

// generateWithRetry calls the backend, retrying transient failures with
// exponential backoff up to the policy ceiling. Non-transient failures
// surface on the first attempt.
func (p *Pipeline) generateWithRetry(ctx context.Context, w models.SummaryWindow, req GenerateRequest) (string, error) {
	var lastErr error

	attempts := 0
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := p.policy.Backoff(attempt)
			p.logger.Warn().
				Int64("chat_id", w.ChatID).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying backend request")

			select {
			case <-ctx.Done():
				return "", &models.BackendError{Transient: true, Attempts: attempts, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		attempts = attempt
		text, err := p.backend.Generate(ctx, req)
		if err == nil {
			return text, nil
		}

		lastErr = err
		p.logger.Error().
			Err(err).
			Int64("chat_id", w.ChatID).
			Int("attempt", attempt).
			Msg("Backend request failed")

		var backendErr *models.BackendError
		if errors.As(err, &backendErr) && !backendErr.Transient {
			return "", &models.BackendError{Transient: false, Attempts: attempts, Err: backendErr.Err}
		}
	}

	cause := lastErr
	var backendErr *models.BackendError
	if errors.As(lastErr, &backendErr) {
		cause = backendErr.Err
	}
	return "", &models.BackendError{Transient: true, Attempts: attempts, Err: cause}
}
