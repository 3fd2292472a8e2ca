// Package retry wraps cenkalti/backoff with the timeout and retry policy applied
// to every call this service makes to a third-party API.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/secmon-lab/switchboard/pkg/utils/logging"
)

const (
	DefaultMaxTries        = 3
	DefaultTimeout         = 10 * time.Second
	DefaultInitialInterval = 200 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
)

// Policy configures per-attempt timeout and retry backoff
type Policy struct {
	MaxTries        uint
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy returns the policy used when none is configured
func DefaultPolicy() Policy {
	return Policy{
		MaxTries:        DefaultMaxTries,
		Timeout:         DefaultTimeout,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxTries == 0 {
		p.MaxTries = d.MaxTries
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	return p
}

// Do runs op until it succeeds, returns a Permanent error, or MaxTries is reached.
// Each attempt gets its own context bounded by Timeout; op must finish
// reading any response before returning.
func Do[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	attempt := func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()
		return op(attemptCtx)
	}

	notify := func(err error, next time.Duration) {
		logging.From(ctx).Warn("retrying call",
			"call", name,
			"error", err.Error(),
			"next", next.String(),
		)
	}

	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxTries),
		backoff.WithNotify(notify),
	)
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Delay returns the exponential delay before the given attempt (1-based),
// capped at max. No jitter is applied so results are deterministic.
func Delay(attempt int, initial, max time.Duration) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.RandomizationFactor = 0
	b.Reset()

	d := initial
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
