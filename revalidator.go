package swr

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type revalidateOpts struct {
	dedupe     bool
	retryCount int
}

// revalidate is the request lifecycle state machine. It returns true when
// a request path completed and wrote state, false when the attempt was
// skipped on a precondition or its result was discarded by a race.
//
// sub may be nil for ad-hoc callers; when present, its key and generation
// are re-checked after every suspension point so callbacks that outlive
// their subscription context never write shared state.
func (c *Coordinator) revalidate(ctx context.Context, sub *Subscription, key string, arg any, fetch Fetcher, cfg Config, opts revalidateOpts) bool {
	if key == "" || fetch == nil {
		return false
	}
	if c.env.IsPaused() {
		return false
	}
	if c.isClosed() {
		return false
	}
	var gen uint64
	if sub != nil {
		var ok bool
		gen, ok = sub.current(key)
		if !ok {
			return false
		}
	}
	start := c.clock.Now()

	fl, owned := c.claimFlight(key, opts.dedupe)
	if owned {
		rec, _ := c.store.Get(key)
		c.store.Set(key, Patch{
			IsValidating:    true,
			SetIsValidating: true,
			IsLoading:       !rec.HasData,
			SetIsLoading:    true,
			Arg:             arg,
			SetArg:          true,
		})
		if cfg.LoadingTimeout > 0 && cfg.OnLoadingSlow != nil {
			c.clock.AfterFunc(cfg.LoadingTimeout, func() {
				if c.currentFlight(key) != fl {
					return
				}
				select {
				case <-fl.done:
				default:
					cfg.OnLoadingSlow(key)
				}
			})
		}
		go func() {
			fl.data, fl.err = runFetcher(ctx, fetch, arg)
			close(fl.done)
		}()
		c.debug(key, "revalidation started", logrus.Fields{"retry_count": opts.retryCount})
	} else {
		c.debug(key, "attached to in-flight request", nil)
		c.observe("dedupe", key, true, nil, start)
	}

	// Suspension point: all deduped callers for the key share this flight.
	if owned {
		<-fl.done
	} else {
		select {
		case <-fl.done:
		case <-ctx.Done():
			return false
		}
	}

	if sub != nil && !sub.still(key, gen) {
		return false
	}

	if fl.err != nil {
		return c.settleError(ctx, sub, key, arg, fetch, cfg, opts, fl, owned, start)
	}
	return c.settleSuccess(key, cfg, fl, owned, start)
}

func (c *Coordinator) settleSuccess(key string, cfg Config, fl *flight, owned bool, start time.Time) bool {
	if owned {
		// The entry keeps absorbing deduped attempts for a while; expiry
		// checks flight identity in case a newer request took the slot.
		c.scheduleFlightExpiry(key, fl, cfg.DedupingInterval)
	}

	// Freshness check: last-started request wins regardless of completion
	// order.
	if c.currentFlight(key) != fl {
		c.debug(key, "result discarded: superseded by newer request", nil)
		c.observe("discard", key, false, nil, start)
		if owned && cfg.OnDiscarded != nil {
			cfg.OnDiscarded(key)
		}
		return false
	}

	if c.overlapsMutation(key, fl.startedAt) {
		// The mutation's write is authoritative. Drop the data but still
		// flush the flags so observers never see a stuck loading state.
		c.store.Set(key, Patch{SetIsValidating: true, SetIsLoading: true})
		c.debug(key, "result discarded: overlapping mutation", nil)
		c.observe("discard", key, false, nil, start)
		if owned && cfg.OnDiscarded != nil {
			cfg.OnDiscarded(key)
		}
		return false
	}

	rec, _ := c.store.Get(key)
	patch := Patch{SetErr: true, SetIsValidating: true, SetIsLoading: true}
	if rec.HasData && cfg.Compare(rec.Data, fl.data) {
		// Equal by the configured comparison: keep the cached reference so
		// downstream identity checks stay stable. Err is still cleared.
	} else {
		patch.Data = fl.data
		patch.SetData = true
	}
	c.store.Set(key, patch)
	c.observe("revalidate", key, true, nil, start)
	if owned && cfg.OnSuccess != nil {
		cfg.OnSuccess(fl.data, key)
	}
	return true
}

func (c *Coordinator) settleError(ctx context.Context, sub *Subscription, key string, arg any, fetch Fetcher, cfg Config, opts revalidateOpts, fl *flight, owned bool, start time.Time) bool {
	if owned {
		// No dedup grace period for errors.
		c.removeFlightIf(key, fl)
	}

	paused := c.env.IsPaused()
	patch := Patch{SetIsValidating: true, SetIsLoading: true}
	if !paused {
		patch.Err = fl.err
		patch.SetErr = true
	}
	c.store.Set(key, patch)
	c.observe("revalidate", key, false, fl.err, start)
	c.debug(key, "revalidation failed", logrus.Fields{"error": fl.err})

	if owned && !paused {
		if cfg.OnError != nil {
			cfg.OnError(fl.err, key)
		}
		if cfg.ShouldRetryOnError(fl.err) && c.retryEligible(cfg) {
			retry := cfg.OnErrorRetry
			if retry == nil {
				retry = c.defaultErrorRetry(cfg)
			}
			next := RetryOptions{RetryCount: opts.retryCount + 1, Dedupe: true}
			rerun := func(ctx context.Context, ro RetryOptions) bool {
				return c.revalidate(ctx, sub, key, arg, fetch, cfg, revalidateOpts{
					dedupe:     ro.Dedupe,
					retryCount: ro.RetryCount,
				})
			}
			retry(fl.err, key, rerun, next)
		}
	}
	return true
}

// retryEligible: retry while the consumer is active, or when it never
// relies on focus/reconnect triggers to recover on its own.
func (c *Coordinator) retryEligible(cfg Config) bool {
	if c.env.IsVisible() && c.env.IsOnline() {
		return true
	}
	return !*cfg.RevalidateOnFocus && !*cfg.RevalidateOnReconnect
}

func runFetcher(ctx context.Context, fetch Fetcher, arg any) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("swr: fetcher panic: %v", r)
		}
	}()
	return fetch(ctx, arg)
}
