package pager

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy decides how long to wait before re-requesting a page that
// failed with a transient error. Not-found responses never reach it.
type RetryPolicy struct {
	Delay       time.Duration // wait before the first retry
	MaxDelay    time.Duration // cap for the doubling delay; <= Delay keeps it fixed
	MaxAttempts int           // 0 retries forever
}

// DefaultRetryPolicy starts at 5s, doubles up to a minute, and gives up
// after eight failures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Delay:       5 * time.Second,
		MaxDelay:    time.Minute,
		MaxAttempts: 8,
	}
}

// FixedRetryPolicy retries forever at a fixed interval.
func FixedRetryPolicy(delay time.Duration) RetryPolicy {
	return RetryPolicy{Delay: delay, MaxDelay: delay}
}

// NewBackOff returns the delay sequence for one page's run of failures.
// NextBackOff never sleeps; it returns backoff.Stop once MaxAttempts
// retries have been handed out. The sequence has no jitter.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Second
	}

	var b backoff.BackOff
	if p.MaxDelay <= delay {
		b = backoff.NewConstantBackOff(delay)
	} else {
		b = backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(delay),
			backoff.WithRandomizationFactor(0),
			backoff.WithMultiplier(2),
			backoff.WithMaxInterval(p.MaxDelay),
			backoff.WithMaxElapsedTime(0),
		)
	}
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts))
	}
	return b
}
