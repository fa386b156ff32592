// Package retry runs an operation under a bounded exponential backoff of
// BaseDelay * 2^(attempt-1) between attempts. The final attempt is not
// followed by a wait.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy bounds a retry loop. Timer is optional and lets tests observe the
// waits without sleeping.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Timer       backoff.Timer
}

// Default is 3 attempts with 1s and 2s gaps.
func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Outcome reports how many attempts ran and the total delay waited between them.
type Outcome struct {
	Attempts int
	Delay    time.Duration
}

// Do calls op until it succeeds or returns an error retryable rejects. After
// MaxAttempts the last error is returned as is.
func Do(ctx context.Context, p Policy, retryable func(error) bool, op func(ctx context.Context, attempt int) error) (Outcome, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = p.BaseDelay << uint(p.MaxAttempts)
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)

	var out Outcome
	err := backoff.RetryNotifyWithTimer(func() error {
		out.Attempts++
		err := op(ctx, out.Attempts)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(_ error, d time.Duration) {
		out.Delay += d
	}, p.Timer)
	return out, err
}
