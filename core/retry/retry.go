// Package retry holds the bounded exponential-backoff policy used around broker publishes.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes a bounded exponential backoff.
type Policy struct {
	// InitialInterval is the delay before the second attempt.
	InitialInterval time.Duration `mapstructure:"initial_interval" default:"500ms"`
	// Multiplier grows the delay after every failed attempt.
	Multiplier float64 `mapstructure:"multiplier" default:"2"`
	// MaxInterval caps a single delay.
	MaxInterval time.Duration `mapstructure:"max_interval" default:"10s"`
	// MaxAttempts bounds the total number of attempts, the first one included.
	MaxAttempts uint `mapstructure:"max_attempts" default:"3"`
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2,
		MaxInterval:     10 * time.Second,
		MaxAttempts:     3,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	return p
}

// NewBackOff builds the exponential backoff described by the policy.
// Jitter is disabled so delays are predictable: initial, initial*m, initial*m^2...
func (p Policy) NewBackOff() *backoff.ExponentialBackOff {
	p = p.normalized()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// Notify is called after a failed attempt with the error and the upcoming delay.
type Notify func(err error, next time.Duration)

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the context ends or the
// attempt budget is spent. The last error is returned on exhaustion.
func Do(ctx context.Context, p Policy, op func() error, notify Notify) error {
	p = p.normalized()
	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.NewBackOff()),
		backoff.WithMaxTries(p.MaxAttempts),
		// The attempt count is the only bound; the elapsed-time default would cut retries short.
		backoff.WithMaxElapsedTime(0),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(notify)))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	}, opts...)
	return err
}
