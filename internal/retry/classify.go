package retry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// maxErrorBody bounds the response text quoted in errors.
const maxErrorBody = 512

// StatusError classifies a non-2xx provider response. Timeouts, 429 and
// 5xx are transient and carry any Retry-After hint; other statuses mean
// the request itself was rejected.
func StatusError(provider, op string, resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}

	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return &domain.TransientProviderError{
			Provider:   provider,
			Op:         op,
			StatusCode: resp.StatusCode,
			RetryAfter: RetryAfter(resp.Header),
			Err:        errors.New(msg),
		}
	default:
		return domain.NewInvalidInput("", "%s %s rejected (status %d): %s", provider, op, resp.StatusCode, msg)
	}
}

// TransportError classifies a failure to get any response at all.
// Caller cancellation is returned unchanged; everything else, including
// deadline expiry, is transient.
func TransportError(ctx context.Context, provider, op string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return &domain.TransientProviderError{Provider: provider, Op: op, Err: err}
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func RetryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
