package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// recordSleeps replaces sleep for the duration of the test.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = orig })
	return &slept
}

func transient(status int) error {
	return &domain.TransientProviderError{Provider: "test", Op: "embed", StatusCode: status}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	slept := recordSleeps(t)
	calls := 0

	err := Policy{MaxAttempts: 4}.Do(context.Background(), "embed", func(context.Context) error {
		calls++
		if calls < 3 {
			return transient(503)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, *slept)
}

func TestDo_StopsAtAttemptCeiling(t *testing.T) {
	recordSleeps(t)
	calls := 0

	err := Policy{MaxAttempts: 3}.Do(context.Background(), "embed", func(context.Context) error {
		calls++
		return transient(429)
	})

	assert.ErrorIs(t, err, domain.ErrTransientProvider)
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryPermanentErrors(t *testing.T) {
	slept := recordSleeps(t)
	calls := 0

	err := Policy{MaxAttempts: 5}.Do(context.Background(), "chat", func(context.Context) error {
		calls++
		return &domain.ContentPolicyError{Provider: "test", Reason: "blocked"}
	})

	assert.ErrorIs(t, err, domain.ErrContentPolicy)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestDo_CancelledContext(t *testing.T) {
	recordSleeps(t)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Policy{MaxAttempts: 5}.Do(ctx, "embed", func(context.Context) error {
		calls++
		cancel()
		return transient(503)
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_AttemptTimeoutIsTransient(t *testing.T) {
	recordSleeps(t)
	calls := 0

	err := Policy{Provider: "ollama", MaxAttempts: 2, Timeout: time.Millisecond}.Do(context.Background(), "embed", func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})

	var te *domain.TransientProviderError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "ollama", te.Provider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestBackoff(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	assert.Equal(t, 100*time.Millisecond, p.Backoff(0, errors.New("x")))
	assert.Equal(t, 800*time.Millisecond, p.Backoff(3, errors.New("x")))
	assert.Equal(t, time.Second, p.Backoff(10, errors.New("x")))
	assert.Equal(t, time.Second, p.Backoff(64, errors.New("x")))

	hinted := &domain.TransientProviderError{RetryAfter: 700 * time.Millisecond}
	assert.Equal(t, 700*time.Millisecond, p.Backoff(0, hinted))

	capped := &domain.TransientProviderError{RetryAfter: time.Minute}
	assert.Equal(t, time.Second, p.Backoff(0, capped))
}

func TestStatusError(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"3"}}}
	err := StatusError("openai", "embed", resp, []byte("slow down"))

	var te *domain.TransientProviderError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 429, te.StatusCode)
	assert.Equal(t, 3*time.Second, te.RetryAfter)
	assert.Contains(t, err.Error(), "slow down")

	err = StatusError("openai", "embed", &http.Response{StatusCode: 502, Header: http.Header{}}, nil)
	assert.ErrorIs(t, err, domain.ErrTransientProvider)

	err = StatusError("openai", "embed", &http.Response{StatusCode: 400, Header: http.Header{}}, []byte("bad input"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotErrorIs(t, err, domain.ErrTransientProvider)
}

func TestTransportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, TransportError(ctx, "ollama", "chat", context.Canceled), context.Canceled)
	assert.NotErrorIs(t, TransportError(ctx, "ollama", "chat", context.Canceled), domain.ErrTransientProvider)

	err := TransportError(context.Background(), "ollama", "chat", errors.New("connection refused"))
	assert.ErrorIs(t, err, domain.ErrTransientProvider)
}

func TestRetryAfter(t *testing.T) {
	assert.Zero(t, RetryAfter(http.Header{}))
	assert.Equal(t, 2*time.Second, RetryAfter(http.Header{"Retry-After": []string{"2"}}))
	assert.Zero(t, RetryAfter(http.Header{"Retry-After": []string{"soon"}}))

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	assert.Greater(t, RetryAfter(http.Header{"Retry-After": []string{future}}), 59*time.Minute)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0))
	l := NewLimiter(0.5)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
	assert.Equal(t, 10, NewLimiter(10).Burst())
}
