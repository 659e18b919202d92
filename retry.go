package swr

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// defaultErrorRetry builds the stock retry hook: exponential backoff with
// jitter, seeded from ErrorRetryInterval and capped by MaxRetryCount.
// Callers can replace the whole policy via Config.OnErrorRetry.
func (c *Coordinator) defaultErrorRetry(cfg Config) ErrorRetryFunc {
	return func(err error, key string, revalidate RetryRevalidateFunc, opts RetryOptions) {
		if cfg.MaxRetryCount > 0 && opts.RetryCount > cfg.MaxRetryCount {
			return
		}
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = cfg.ErrorRetryInterval
		bo.MaxElapsedTime = 0
		delay := bo.NextBackOff()
		for i := 1; i < opts.RetryCount; i++ {
			delay = bo.NextBackOff()
		}
		c.clock.AfterFunc(delay, func() {
			revalidate(context.Background(), opts)
		})
	}
}
