package generate

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v5"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hpungsan/kiln/internal/config"
	"github.com/hpungsan/kiln/internal/metrics"
)

// ErrEmptyResponse is returned when the model answers with only whitespace.
var ErrEmptyResponse = stderrors.New("generator returned an empty response")

// Retrying wraps a Generator with exponential backoff, jitter and a capped delay.
type Retrying struct {
	inner    Generator
	provider string
	cfg      config.RetryConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewRetrying wraps inner. A nil logger discards retry logs.
func NewRetrying(inner Generator, provider string, cfg config.RetryConfig, logger *slog.Logger, m *metrics.Metrics) *Retrying {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retrying{inner: inner, provider: provider, cfg: cfg, logger: logger, metrics: m}
}

func (r *Retrying) Model() string {
	return r.inner.Model()
}

func (r *Retrying) Generate(ctx context.Context, system string, turns []Message) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		start := time.Now()
		out, err := r.inner.Generate(ctx, system, turns)
		if err == nil && strings.TrimSpace(out) == "" {
			err = ErrEmptyResponse
		}

		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
		}
		r.metrics.ObserveGenerator(r.provider, outcome, time.Since(start))

		if err != nil {
			if !IsRetryable(err) {
				return "", backoff.Permanent(err)
			}
			r.logger.Warn("generator call failed",
				slog.String("provider", r.provider),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return "", err
		}
		return out, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(uint(max(r.cfg.MaxAttempts, 1))),
	)
}

func (r *Retrying) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if r.cfg.InitialBackoffMs > 0 {
		b.InitialInterval = time.Duration(r.cfg.InitialBackoffMs) * time.Millisecond
	}
	if r.cfg.MaxBackoffMs > 0 {
		b.MaxInterval = time.Duration(r.cfg.MaxBackoffMs) * time.Millisecond
	}
	if r.cfg.Multiplier >= 1 {
		b.Multiplier = r.cfg.Multiplier
	}
	if r.cfg.JitterFactor >= 0 && r.cfg.JitterFactor <= 1 {
		b.RandomizationFactor = r.cfg.JitterFactor
	}
	return b
}

// IsRetryable reports whether a generator error is worth another attempt:
// rate limits, server errors and transport failures are; client errors and
// cancellation are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	var anthErr *anthropic.Error
	if stderrors.As(err, &anthErr) {
		return retryableStatus(anthErr.StatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == 0 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
