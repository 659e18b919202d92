package swr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultRetryRecoversAfterBackoff(t *testing.T) {
	c, mc := newTestCoordinator()
	ctx := context.Background()

	boom := errors.New("flaky")
	var calls int32
	fetch := func(context.Context, any) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return "v", nil
	}

	cfg := Config{ErrorRetryInterval: 100 * time.Millisecond, MaxRetryCount: 5}
	if !c.Revalidate(ctx, "k", fetch, cfg) {
		t.Fatal("error path should report a completed write")
	}
	rec, _ := c.Store().Get("k")
	if rec.Err != boom {
		t.Fatalf("expected error stored before retry, got %v", rec.Err)
	}

	// The scheduled retry fires somewhere within the jittered backoff range.
	mc.Add(time.Second)
	rec, _ = c.Store().Get("k")
	if rec.Err != nil || rec.Data != "v" {
		t.Fatalf("expected retry to recover, got %+v", rec)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected exactly one retry fetch, got %d total", n)
	}
}

func TestDefaultRetryStopsAtMaxRetryCount(t *testing.T) {
	c, mc := newTestCoordinator()

	fired := make(chan RetryOptions, 1)
	rerun := func(ctx context.Context, opts RetryOptions) bool {
		fired <- opts
		return true
	}
	hook := c.defaultErrorRetry(Config{ErrorRetryInterval: time.Second, MaxRetryCount: 2}.withDefaults())
	boom := errors.New("x")

	hook(boom, "k", rerun, RetryOptions{RetryCount: 2, Dedupe: true})
	mc.Add(time.Hour)
	select {
	case opts := <-fired:
		if opts.RetryCount != 2 {
			t.Fatalf("unexpected retry options: %+v", opts)
		}
	default:
		t.Fatal("expected retry at the cap to fire")
	}

	hook(boom, "k", rerun, RetryOptions{RetryCount: 3, Dedupe: true})
	mc.Add(time.Hour)
	select {
	case <-fired:
		t.Fatal("expected retries beyond the cap to stop")
	default:
	}
}

func TestRetrySkippedWhileInactive(t *testing.T) {
	env := newTestEnv()
	env.setOnline(false)
	c, _ := newTestCoordinator(WithEnvironment(env))
	ctx := context.Background()

	boom := errors.New("x")
	retried := make(chan struct{}, 1)
	cfg := Config{
		OnErrorRetry: func(error, string, RetryRevalidateFunc, RetryOptions) {
			retried <- struct{}{}
		},
	}

	if !c.Revalidate(ctx, "k", func(context.Context, any) (any, error) { return nil, boom }, cfg) {
		t.Fatal("error path should report a completed write")
	}
	select {
	case <-retried:
		t.Fatal("expected no retry while offline with reconnect recovery enabled")
	default:
	}

	// A consumer that opted out of focus and reconnect triggers has no other
	// recovery path, so the retry loop stays on even while inactive.
	cfg.RevalidateOnFocus = Bool(false)
	cfg.RevalidateOnReconnect = Bool(false)
	if !c.Revalidate(ctx, "k2", func(context.Context, any) (any, error) { return nil, boom }, cfg) {
		t.Fatal("error path should report a completed write")
	}
	select {
	case <-retried:
	default:
		t.Fatal("expected retry when no trigger-based recovery exists")
	}
}
