package generate

import (
	"context"
	"errors"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/kiln/internal/config"
)

type flakyGenerator struct {
	errs  []error
	reply string
	calls int
}

func (f *flakyGenerator) Model() string { return "flaky" }

func (f *flakyGenerator) Generate(context.Context, string, []Message) (string, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return "", f.errs[f.calls-1]
	}
	return f.reply, nil
}

func fastRetry(attempts int) config.RetryConfig {
	return config.RetryConfig{MaxAttempts: attempts, InitialBackoffMs: 1, MaxBackoffMs: 2, Multiplier: 2, JitterFactor: 0}
}

func TestRetrying_RecoversFromTransientErrors(t *testing.T) {
	inner := &flakyGenerator{
		errs:  []error{errors.New("connection reset"), &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}},
		reply: "ok",
	}
	r := NewRetrying(inner, "openai", fastRetry(3), nil, nil)

	out, err := r.Generate(context.Background(), "sys", []Message{User("hi")})
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 3, inner.calls)
	require.Equal(t, "flaky", r.Model())
}

func TestRetrying_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &flakyGenerator{
		errs: []error{errors.New("e1"), errors.New("e2"), errors.New("e3")},
	}
	r := NewRetrying(inner, "openai", fastRetry(2), nil, nil)

	_, err := r.Generate(context.Background(), "", nil)
	require.Error(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestRetrying_ClientErrorIsPermanent(t *testing.T) {
	apiErr := &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}
	inner := &flakyGenerator{errs: []error{apiErr}, reply: "never"}
	r := NewRetrying(inner, "openai", fastRetry(5), nil, nil)

	_, err := r.Generate(context.Background(), "", nil)
	var got *openai.APIError
	require.ErrorAs(t, err, &got)
	require.Equal(t, 1, inner.calls)
}

func TestRetrying_EmptyResponseRetried(t *testing.T) {
	inner := &flakyGenerator{errs: nil, reply: "   "}
	r := NewRetrying(inner, "openai", fastRetry(2), nil, nil)

	_, err := r.Generate(context.Background(), "", nil)
	require.ErrorIs(t, err, ErrEmptyResponse)
	require.Equal(t, 2, inner.calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"wrapped deadline", errors.Join(errors.New("x"), context.DeadlineExceeded), false},
		{"500", &openai.APIError{HTTPStatusCode: 500}, true},
		{"429", &openai.APIError{HTTPStatusCode: 429}, true},
		{"400", &openai.APIError{HTTPStatusCode: 400}, false},
		{"request 503", &openai.RequestError{HTTPStatusCode: 503}, true},
		{"transport", errors.New("dial tcp: refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
