package agent

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy governs how many times, and with what backoff, the loop
// retries a Responder call before surfacing a *TransportError.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultRetryPolicy returns a conservative exponential backoff: three
// attempts total, starting at 250ms and doubling up to 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	d := float64(p.InitialDelay)
	mult := p.Multiplier
	if mult <= 1 {
		mult = 2
	}
	for i := 1; i < attempt; i++ {
		d *= mult
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*p.Jitter
	}
	return time.Duration(d)
}

// retryRespond calls fn up to policy.MaxAttempts times, sleeping between
// attempts per the policy's backoff, and wraps the final failure in a
// *TransportError. Context cancellation aborts retrying immediately.
func retryRespond(ctx context.Context, policy RetryPolicy, fn func() (*Response, error)) (*Response, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = attempts
		case <-time.After(policy.delay(attempt)):
		}
	}
	return nil, &TransportError{Cause: lastErr, Attempts: attempts}
}
