package swr

import (
	"context"
	"reflect"
	"time"
)

const (
	defaultDedupingInterval      = 2 * time.Second
	defaultLoadingTimeout        = 3 * time.Second
	defaultFocusThrottleInterval = 5 * time.Second
	defaultErrorRetryInterval    = 5 * time.Second
)

// Fetcher loads the value for a key's derived argument. It may return any
// error type; the coordinator stores it, it is never re-thrown.
type Fetcher func(ctx context.Context, arg any) (any, error)

// KeyFunc resolves the current key and the argument passed to the fetcher.
// Returning an empty key disables fetching. A KeyFunc that panics is
// treated as a disabled key, mirroring conditional-fetch usage where the
// key depends on data that is not ready yet.
type KeyFunc func() (key string, arg any)

// CompareFunc decides whether two data values are equal. When it reports
// true the previously cached reference is kept.
type CompareFunc func(a, b any) bool

// IntervalFunc computes the polling interval from the current cached data.
// Returning 0 or less disables polling.
type IntervalFunc func(data any) time.Duration

// Every returns an IntervalFunc with a constant interval.
func Every(d time.Duration) IntervalFunc {
	return func(any) time.Duration { return d }
}

// RetryOptions carries the state of the retry-on-error loop.
type RetryOptions struct {
	RetryCount int
	Dedupe     bool
}

// RetryRevalidateFunc re-enters the revalidation path from a retry hook.
type RetryRevalidateFunc func(ctx context.Context, opts RetryOptions) bool

// ErrorRetryFunc schedules (or declines) a retry after a fetch error. The
// default implementation applies exponential backoff; replace it to control
// backoff policy entirely.
type ErrorRetryFunc func(err error, key string, revalidate RetryRevalidateFunc, opts RetryOptions)

// Bool is a convenience for the tri-state *bool config fields.
func Bool(v bool) *bool { return &v }

// Config controls the revalidation behavior of a subscription.
//
// The zero value is usable: revalidate-if-stale, revalidate-on-focus and
// revalidate-on-reconnect default to enabled, polling to disabled.
type Config struct {
	// RevalidateOnMount forces (true) or suppresses (false) the initial
	// fetch. When nil the subscription fetches on mount unless it already
	// has data and RevalidateIfStale is disabled.
	RevalidateOnMount *bool

	// RevalidateIfStale controls whether a mount with cached data still
	// triggers a soft revalidation. Defaults to true.
	RevalidateIfStale *bool

	// RevalidateOnFocus enables soft revalidation on focus triggers,
	// throttled by FocusThrottleInterval. Defaults to true.
	RevalidateOnFocus *bool

	// RevalidateOnReconnect enables soft revalidation on reconnect
	// triggers. Defaults to true.
	RevalidateOnReconnect *bool

	// RefreshInterval enables polling when it yields a positive interval.
	RefreshInterval IntervalFunc

	// RefreshWhenHidden lets the poller fetch while not visible.
	RefreshWhenHidden bool

	// RefreshWhenOffline lets the poller fetch while offline.
	RefreshWhenOffline bool

	// DedupingInterval is how long a settled request keeps absorbing
	// deduped revalidation attempts. Defaults to 2s.
	DedupingInterval time.Duration

	// LoadingTimeout is how long a request may stay outstanding before
	// OnLoadingSlow fires. Defaults to 3s. Set negative to disable.
	LoadingTimeout time.Duration

	// FocusThrottleInterval is the minimum spacing between focus-driven
	// revalidations. Defaults to 5s.
	FocusThrottleInterval time.Duration

	// ShouldRetryOnError decides whether a fetch error enters the retry
	// loop. Defaults to retrying every error.
	ShouldRetryOnError func(err error) bool

	// MaxRetryCount caps the retry loop for the default retry hook.
	// 0 means unbounded.
	MaxRetryCount int

	// ErrorRetryInterval is the base delay for the default retry hook's
	// exponential backoff. Defaults to 5s.
	ErrorRetryInterval time.Duration

	// Compare decides data equality. Defaults to reflect.DeepEqual.
	Compare CompareFunc

	// KeepPreviousData keeps the previous key's data in the observer
	// snapshot while the new key's fetch is outstanding.
	KeepPreviousData bool

	// FallbackData pre-seeds the observer snapshot without marking the
	// record as fetched. HasFallbackData distinguishes an explicit nil.
	FallbackData    any
	HasFallbackData bool

	// Hooks. All optional, invoked synchronously at the described point.
	OnLoadingSlow func(key string)
	OnSuccess     func(data any, key string)
	OnError       func(err error, key string)
	OnErrorRetry  ErrorRetryFunc
	OnDiscarded   func(key string)
}

func (c Config) withDefaults() Config {
	if c.RevalidateIfStale == nil {
		c.RevalidateIfStale = Bool(true)
	}
	if c.RevalidateOnFocus == nil {
		c.RevalidateOnFocus = Bool(true)
	}
	if c.RevalidateOnReconnect == nil {
		c.RevalidateOnReconnect = Bool(true)
	}
	if c.DedupingInterval <= 0 {
		c.DedupingInterval = defaultDedupingInterval
	}
	if c.LoadingTimeout == 0 {
		c.LoadingTimeout = defaultLoadingTimeout
	}
	if c.FocusThrottleInterval <= 0 {
		c.FocusThrottleInterval = defaultFocusThrottleInterval
	}
	if c.ErrorRetryInterval <= 0 {
		c.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.ShouldRetryOnError == nil {
		c.ShouldRetryOnError = func(error) bool { return true }
	}
	if c.Compare == nil {
		c.Compare = reflect.DeepEqual
	}
	return c
}
