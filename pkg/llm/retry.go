package llm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const retryBaseDelay = 500 * time.Millisecond

func retryableStatus(status int) bool {
	return status >= 500 ||
		status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout
}

// retryable classifies transient upstream failures: network errors, 5xx,
// rate limiting (429), and request timeout (408). Other 4xx and logical
// empty-response errors surface immediately.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	var vsErr *vectorStoreError
	if errors.As(err, &vsErr) {
		return retryableStatus(vsErr.Status)
	}
	if errors.Is(err, ErrNoEmbedding) || errors.Is(err, ErrNoCompletion) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Anything else is a transport-level failure (connection refused, reset,
	// unexpected EOF) and worth another attempt.
	return true
}

// withRetry runs fn with jittered exponential backoff up to maxRetries
// attempts. Context cancellation aborts the wait immediately.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == c.maxRetries {
			return lastErr
		}

		delay := retryBaseDelay * time.Duration(1<<(attempt-1))
		delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))
		slog.Warn("LLM call failed, retrying",
			"op", op, "attempt", attempt, "delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
