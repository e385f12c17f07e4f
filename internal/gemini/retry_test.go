package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/RezaSbu/MO-BOT/internal/log"
)

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()

	assert.Positive(t, cfg.MaxRetries)
	assert.Positive(t, cfg.InitialInterval)
	assert.Positive(t, cfg.MaxInterval)
	assert.GreaterOrEqual(t, cfg.MaxInterval, cfg.InitialInterval)
}

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "rate limit error", err: errors.New("rate limit exceeded"), expected: true},
		{name: "quota exceeded error", err: errors.New("quota exceeded for project"), expected: true},
		{name: "429 status code", err: errors.New("HTTP 429: Too Many Requests"), expected: true},
		{name: "500 server error", err: errors.New("HTTP 500 Internal Server Error"), expected: true},
		{name: "503 unavailable", err: errors.New("503 Service Unavailable"), expected: true},
		{name: "connection reset", err: errors.New("connection reset by peer"), expected: true},
		{name: "timeout error", err: errors.New("request timeout"), expected: true},
		{name: "case insensitive", err: errors.New("RATE LIMIT reached"), expected: true},
		{name: "invalid API key", err: errors.New("invalid API key"), expected: false},
		{name: "400 bad request", err: errors.New("HTTP 400 Bad Request"), expected: false},
		{name: "403 forbidden", err: errors.New("HTTP 403 Forbidden"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, retryableError(tt.err))
		})
	}
}

func TestContainsAny(t *testing.T) {
	t.Parallel()

	assert.False(t, containsAny("", "foo"))
	assert.False(t, containsAny("foo bar"))
	assert.True(t, containsAny("foo bar baz", "foo", "qux"))
	assert.True(t, containsAny("foo bar baz", "qux", "baz"))
	assert.True(t, containsAny("FOO BAR", "foo"))
	assert.False(t, containsAny("foo bar", "qux", "quux"))
}

// retryClient builds a Client suitable for exercising generateWithRetry
// without a real API connection.
func retryClient(cfg RetryConfig) *Client {
	return &Client{
		model:   "test-model",
		retry:   cfg,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  log.NewNop(),
	}
}

func TestGenerateWithRetrySucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	c := retryClient(DefaultRetryConfig())
	calls := 0
	resp, err := c.generateWithRetry(context.Background(), func(context.Context) (*genai.GenerateContentResponse, error) {
		calls++
		return &genai.GenerateContentResponse{}, nil
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 1, calls)
}

func TestGenerateWithRetryRecoversFromTransientError(t *testing.T) {
	t.Parallel()

	c := retryClient(RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})

	calls := 0
	resp, err := c.generateWithRetry(context.Background(), func(context.Context) (*genai.GenerateContentResponse, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("503 Service Unavailable")
		}
		return &genai.GenerateContentResponse{}, nil
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 3, calls)
}

func TestGenerateWithRetryStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	c := retryClient(DefaultRetryConfig())
	calls := 0
	_, err := c.generateWithRetry(context.Background(), func(context.Context) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, errors.New("invalid API key")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent errors are not retried")
}

func TestGenerateWithRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()

	c := retryClient(RetryConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	})

	calls := 0
	_, err := c.generateWithRetry(context.Background(), func(context.Context) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, errors.New("request timeout")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestGenerateWithRetryHonorsContextDuringBackoff(t *testing.T) {
	t.Parallel()

	c := retryClient(RetryConfig{
		MaxRetries:      5,
		InitialInterval: time.Hour,
		MaxInterval:     time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.generateWithRetry(ctx, func(context.Context) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("503 Service Unavailable")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateWithRetryNilLimiter(t *testing.T) {
	t.Parallel()

	c := retryClient(DefaultRetryConfig())
	c.limiter = nil

	resp, err := c.generateWithRetry(context.Background(), func(context.Context) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
}
