// Package retry bounds calls to external providers: per-attempt timeouts,
// exponential backoff for transient failures, Retry-After and optional
// client-side rate limiting.
package retry

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Defaults used when a Policy field is zero.
const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 200 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// Policy describes how one provider operation is attempted.
type Policy struct {
	// Provider names the service in errors raised by the policy itself.
	Provider string

	// MaxAttempts is the total number of attempts, first call included.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt; it doubles after each failure.
	BaseDelay time.Duration

	// MaxDelay caps both computed backoff and provider Retry-After hints.
	MaxDelay time.Duration

	// Timeout bounds each attempt. Zero means no per-attempt deadline.
	Timeout time.Duration

	// Limiter throttles attempts when set.
	Limiter *rate.Limiter
}

// NewLimiter returns a limiter for rps requests per second, or nil when
// rps is not positive.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// sleep waits for d or until ctx is done. Replaced in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn until it succeeds, fails permanently or runs out of attempts.
//
// Only errors matching domain.ErrTransientProvider are retried. An attempt
// that hits its own deadline is reported as a TransientProviderError for
// op. Cancellation of ctx stops immediately and returns ctx.Err().
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if p.Limiter != nil {
			if werr := p.Limiter.Wait(ctx); werr != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return werr
			}
		}

		err = p.attempt(ctx, op, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !domain.IsTransient(err) || attempt == attempts-1 {
			return err
		}

		delay := p.Backoff(attempt, err)
		logger.Debug("%s: attempt %d/%d failed, retrying in %s: %v", op, attempt+1, attempts, delay, err)
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}

func (p Policy) attempt(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	err := fn(actx)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) && !domain.IsTransient(err) {
		return &domain.TransientProviderError{Provider: p.Provider, Op: op, Err: err}
	}
	return err
}

// Backoff returns the wait before the attempt following a failed one.
// A Retry-After hint on err takes precedence when it is longer.
func (p Policy) Backoff(attempt int, err error) time.Duration {
	base, limit := p.BaseDelay, p.MaxDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if limit <= 0 {
		limit = DefaultMaxDelay
	}

	d := limit
	if attempt < 30 {
		d = min(base<<attempt, limit)
	}

	var te *domain.TransientProviderError
	if errors.As(err, &te) && te.RetryAfter > d {
		d = min(te.RetryAfter, limit)
	}
	return d
}
