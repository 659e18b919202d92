package swr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitSnapshot(t *testing.T, s *Subscription, cond func(Record) bool) Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec := s.Snapshot(); cond(rec) {
			return rec
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("subscription snapshot never reached expected state; last: %+v", s.Snapshot())
	return Record{}
}

func TestNotifiesOnlyTrackedFields(t *testing.T) {
	c, mc := newTestCoordinator()
	ctx := context.Background()

	boom1 := errors.New("b1")
	boom2 := errors.New("b2")
	gate := make(chan struct{})
	var calls int32
	fetch := func(context.Context, any) (any, error) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			<-gate
			return "v1", nil
		case 2:
			return nil, boom1
		default:
			return nil, boom2
		}
	}

	notifs := make(chan Record, 16)
	cfg := Config{ShouldRetryOnError: func(error) bool { return false }}
	sub, err := c.Subscribe(ctx, "k", fetch, cfg, func(rec Record) { notifs <- rec })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	sub.Track(FieldData)
	close(gate)

	select {
	case rec := <-notifs:
		if rec.Data != "v1" {
			t.Fatalf("unexpected notified data: %v", rec.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected notification for tracked data change")
	}

	mc.Add(3 * time.Second) // let the dedup entry lapse

	// Error lands but only data is tracked: no notification.
	if !sub.Revalidate(ctx) {
		t.Fatal("revalidation failed")
	}
	select {
	case rec := <-notifs:
		t.Fatalf("unexpected notification for untracked change: %+v", rec)
	default:
	}
	if sub.Snapshot().Err != boom1 {
		t.Fatalf("expected error retained in snapshot, got %v", sub.Snapshot().Err)
	}

	sub.Track(FieldErr)
	if !sub.Revalidate(ctx) {
		t.Fatal("revalidation failed")
	}
	select {
	case rec := <-notifs:
		if rec.Err != boom2 {
			t.Fatalf("unexpected notified error: %v", rec.Err)
		}
	default:
		t.Fatal("expected notification for tracked error change")
	}
}

func TestFallbackDataVisibleUntilRealValue(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	gate := make(chan struct{})
	cfg := Config{FallbackData: "fb", HasFallbackData: true}
	sub, err := c.Subscribe(ctx, "k", gatedFetch("real", gate), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	if data, ok := sub.Data(); !ok || data != "fb" {
		t.Fatalf("expected fallback data before first fetch, got %v (%v)", data, ok)
	}

	close(gate)
	waitSnapshot(t, sub, func(rec Record) bool { return rec.Data == "real" })
}

func TestKeepPreviousDataAcrossKeyChange(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	gate := make(chan struct{})
	fetch := func(_ context.Context, arg any) (any, error) {
		if arg == "k2" {
			<-gate
			return "v2", nil
		}
		return "v1", nil
	}

	sub, err := c.Subscribe(ctx, "k1", fetch, Config{KeepPreviousData: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	waitSnapshot(t, sub, func(rec Record) bool { return rec.Data == "v1" })

	sub.UpdateKey("k2", "k2")
	if sub.Key() != "k2" {
		t.Fatalf("expected key switched, got %q", sub.Key())
	}
	if data, ok := sub.Data(); !ok || data != "v1" {
		t.Fatalf("expected previous data retained across key change, got %v (%v)", data, ok)
	}

	close(gate)
	waitSnapshot(t, sub, func(rec Record) bool { return rec.Data == "v2" })
}

func TestStaleCallbackNeverWritesAfterKeyChange(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	gate := make(chan struct{})
	fetch := func(_ context.Context, arg any) (any, error) {
		if arg == "k1" {
			<-gate
			return "v1", nil
		}
		return "v2", nil
	}

	sub, err := c.Subscribe(ctx, "k1", fetch, Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	waitFlight(t, c, "k1", nil)

	sub.UpdateKey("k2", "k2")
	waitSnapshot(t, sub, func(rec Record) bool { return rec.Data == "v2" })

	// Release the abandoned fetch and give its callback a chance to run.
	close(gate)
	time.Sleep(50 * time.Millisecond)

	rec, _ := c.Store().Get("k1")
	if rec.HasData {
		t.Fatalf("stale callback wrote data for abandoned key: %+v", rec)
	}
	if data, _ := sub.Data(); data != "v2" {
		t.Fatalf("expected current key data, got %v", data)
	}
}

func TestSubscribeAfterCloseReturnsErrClosed(t *testing.T) {
	c, _ := newTestCoordinator()
	c.Close()
	if _, err := c.Subscribe(context.Background(), "k", instantFetch("v"), Config{}, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestKeyFuncPanicLeavesSubscriptionInert(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	var calls int32
	fetch := func(context.Context, any) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}

	sub, err := c.SubscribeFunc(ctx, func() (string, any) { panic("deps not ready") }, fetch, Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	if sub.Key() != "" {
		t.Fatalf("expected disabled key, got %q", sub.Key())
	}
	if sub.Revalidate(ctx) {
		t.Fatal("revalidation without a key must be skipped")
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("expected no fetches while disabled, got %d", n)
	}

	sub.UpdateKeyFunc(func() (string, any) { return "k", "k" })
	waitSnapshot(t, sub, func(rec Record) bool { return rec.Data == "v" })
}

func TestMountRevalidationToggles(t *testing.T) {
	c, mc := newTestCoordinator()
	ctx := context.Background()

	var calls int32
	fetch := func(context.Context, any) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	sub, err := c.Subscribe(ctx, "k", fetch, Config{RevalidateOnMount: Bool(false)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("expected no mount fetch when disabled, got %d", n)
	}
	if !sub.Revalidate(ctx) {
		t.Fatal("revalidation failed")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected manual revalidation to fetch, got %d", n)
	}
	sub.Close()

	mc.Add(3 * time.Second)

	// Cached data plus RevalidateIfStale disabled: no mount fetch either.
	sub2, err := c.Subscribe(ctx, "k", fetch, Config{RevalidateIfStale: Bool(false)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sub2.Close()
	time.Sleep(20 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected cached data to suppress mount fetch, got %d", n)
	}
	if data, ok := sub2.Data(); !ok || data != int32(1) {
		t.Fatalf("expected seeded snapshot, got %v (%v)", data, ok)
	}
}
