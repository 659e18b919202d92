package swr

import (
	"context"
	"sync"
	"time"
)

// OnChangeFunc receives the refreshed snapshot after an observably
// relevant change.
type OnChangeFunc func(Record)

// Subscription is one observer of a key. It retains a snapshot of the
// cached record, tracks which fields the observer actually reads, and only
// invokes its change callback when one of those fields changes.
type Subscription struct {
	coord    *Coordinator
	fetch    Fetcher
	cfg      Config
	onChange OnChangeFunc
	ctx      context.Context

	mu          sync.Mutex
	key         string
	arg         any
	gen         uint64
	tracked     FieldSet
	snapshot    Record
	nextFocusAt time.Time
	unsubStore  func()
	poll        *poller
	closed      bool
}

// Subscribe registers an observer for a fixed key. The argument passed to
// the fetcher is the key itself.
// @group Subscriptions
//
// Example: subscribe and read
//
//	sub, _ := coord.Subscribe(ctx, "user:42", fetchUser, swr.Config{}, func(rec swr.Record) {
//		// re-render
//	})
//	defer sub.Close()
//	data, ok := sub.Data()
//	_ = data
//	_ = ok
func (c *Coordinator) Subscribe(ctx context.Context, key string, fetch Fetcher, cfg Config, onChange OnChangeFunc) (*Subscription, error) {
	return c.SubscribeFunc(ctx, func() (string, any) { return key, key }, fetch, cfg, onChange)
}

// SubscribeFunc registers an observer whose key is resolved lazily. A
// KeyFunc returning "" or panicking leaves the subscription inert until
// UpdateKeyFunc resolves to a usable key.
// @group Subscriptions
func (c *Coordinator) SubscribeFunc(ctx context.Context, keyFn KeyFunc, fetch Fetcher, cfg Config, onChange OnChangeFunc) (*Subscription, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.withDefaults()
	key, arg := resolveKey(keyFn)

	s := &Subscription{
		coord:    c,
		fetch:    fetch,
		cfg:      cfg,
		onChange: onChange,
		ctx:      ctx,
		key:      key,
		arg:      arg,
	}
	rec, _ := c.store.Get(key)
	s.snapshot = rec
	if !rec.HasData && cfg.HasFallbackData {
		s.snapshot.Data = cfg.FallbackData
		s.snapshot.HasData = true
	}
	s.attach()
	return s, nil
}

// resolveKey runs keyFn, treating a panic as a disabled key. Conditional
// fetching often derives the key from data that is not ready yet.
func resolveKey(keyFn KeyFunc) (key string, arg any) {
	if keyFn == nil {
		return "", nil
	}
	defer func() {
		if recover() != nil {
			key, arg = "", nil
		}
	}()
	return keyFn()
}

// attach wires the subscription to its current key: store listener,
// registry entry, mount revalidation and poller. Caller must not hold s.mu.
func (s *Subscription) attach() {
	s.mu.Lock()
	key := s.key
	arg := s.arg
	cfg := s.cfg
	closed := s.closed
	s.mu.Unlock()
	if closed || key == "" {
		return
	}

	c := s.coord
	c.registerSub(key, s)
	unsub := c.store.Subscribe(key, s.onStoreChange)
	s.mu.Lock()
	s.unsubStore = unsub
	s.mu.Unlock()

	rec, _ := c.store.Get(key)
	mount := true
	explicit := false
	if cfg.RevalidateOnMount != nil {
		mount = *cfg.RevalidateOnMount
		explicit = mount
	} else if rec.HasData || cfg.HasFallbackData {
		mount = *cfg.RevalidateIfStale
	}
	if mount && s.fetch != nil {
		// An explicitly requested mount fetch starts fresh; everything else
		// is a soft revalidation that may attach to an in-flight request.
		go c.revalidate(s.ctx, s, key, arg, s.fetch, cfg, revalidateOpts{dedupe: !explicit})
	}

	if cfg.RefreshInterval != nil {
		p := newPoller(s, s.ctx)
		s.mu.Lock()
		s.poll = p
		s.mu.Unlock()
		p.schedule()
	}
}

// onStoreChange refreshes the retained snapshot in place and notifies the
// observer only when a tracked field observably changed.
func (s *Subscription) onStoreChange(cur, _ Record) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	old := s.snapshot
	next := cur
	if !cur.HasData && old.HasData {
		// A write revoked the data. Only keep-previous retention or a
		// configured fallback keeps a value visible; everyone else sees the
		// cleared record, notably after an optimistic rollback.
		if s.cfg.KeepPreviousData {
			next.Data = old.Data
			next.HasData = true
		} else if s.cfg.HasFallbackData {
			next.Data = s.cfg.FallbackData
			next.HasData = true
		}
	}
	s.snapshot = next
	tracked := s.tracked
	compare := s.cfg.Compare
	fn := s.onChange
	s.mu.Unlock()

	if fn == nil {
		return
	}
	if changedFields(old, next, compare)&tracked != 0 {
		fn(next)
	}
}

// current returns the generation when the subscription is still attached
// to key.
func (s *Subscription) current(key string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.key != key {
		return 0, false
	}
	return s.gen, true
}

// still reports whether a callback captured at (key, gen) may write shared
// state.
func (s *Subscription) still(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.key == key && s.gen == gen
}

// Key returns the current key.
// @group Subscriptions
func (s *Subscription) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Snapshot returns the retained record without marking any field as read.
// @group Subscriptions
func (s *Subscription) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Track marks fields as read so future changes to them notify the
// observer. Read accessors below track implicitly.
// @group Subscriptions
func (s *Subscription) Track(fields ...Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fields {
		s.tracked.Add(f)
	}
}

// Data returns the snapshot data and marks the data field as read.
// @group Subscriptions
func (s *Subscription) Data() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked.Add(FieldData)
	return s.snapshot.Data, s.snapshot.HasData
}

// Err returns the snapshot error and marks the error field as read.
// @group Subscriptions
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked.Add(FieldErr)
	return s.snapshot.Err
}

// IsValidating reports an outstanding request and marks the field as read.
// @group Subscriptions
func (s *Subscription) IsValidating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked.Add(FieldIsValidating)
	return s.snapshot.IsValidating
}

// IsLoading reports the never-had-data state and marks the field as read.
// @group Subscriptions
func (s *Subscription) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked.Add(FieldIsLoading)
	return s.snapshot.IsLoading
}

// Revalidate issues a soft (deduped) revalidation for the current key.
// @group Subscriptions
func (s *Subscription) Revalidate(ctx context.Context) bool {
	s.mu.Lock()
	key, arg, cfg := s.key, s.arg, s.cfg
	s.mu.Unlock()
	return s.coord.revalidate(ctx, s, key, arg, s.fetch, cfg, revalidateOpts{dedupe: true})
}

// UpdateKey switches the subscription to a new key. The generation is
// bumped so callbacks captured under the old key never write state, and
// with KeepPreviousData the old data stays in the snapshot until the new
// key produces a value.
// @group Subscriptions
func (s *Subscription) UpdateKey(key string, arg any) {
	s.mu.Lock()
	if s.closed || key == s.key {
		s.mu.Unlock()
		return
	}
	s.gen++
	prevKey := s.key
	old := s.snapshot
	unsub := s.unsubStore
	s.unsubStore = nil
	poll := s.poll
	s.poll = nil
	s.key = key
	s.arg = arg
	s.nextFocusAt = time.Time{}

	rec, _ := s.coord.store.Get(key)
	next := rec
	if !rec.HasData {
		if s.cfg.KeepPreviousData && old.HasData {
			next.Data = old.Data
			next.HasData = true
		} else if s.cfg.HasFallbackData {
			next.Data = s.cfg.FallbackData
			next.HasData = true
		}
	}
	s.snapshot = next
	tracked := s.tracked
	compare := s.cfg.Compare
	fn := s.onChange
	s.mu.Unlock()

	if poll != nil {
		poll.stop()
	}
	if unsub != nil {
		unsub()
	}
	if prevKey != "" {
		s.coord.unregisterSub(prevKey, s)
	}
	s.attach()

	if fn != nil && changedFields(old, next, compare)&tracked != 0 {
		fn(next)
	}
}

// UpdateKeyFunc is UpdateKey with lazy key resolution.
// @group Subscriptions
func (s *Subscription) UpdateKeyFunc(keyFn KeyFunc) {
	key, arg := resolveKey(keyFn)
	s.UpdateKey(key, arg)
}

// Close detaches the subscription, stops its poller, and invalidates every
// outstanding callback. Safe to call more than once.
// @group Subscriptions
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	key := s.key
	unsub := s.unsubStore
	s.unsubStore = nil
	poll := s.poll
	s.poll = nil
	s.mu.Unlock()

	if poll != nil {
		poll.stop()
	}
	if unsub != nil {
		unsub()
	}
	if key != "" {
		s.coord.unregisterSub(key, s)
	}
}
