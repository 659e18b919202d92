package swr

import "context"

// HandleFocus dispatches a focus-regained trigger to every active
// subscription. Each subscription throttles itself by its
// FocusThrottleInterval; the revalidations issued are soft (deduped) and
// run concurrently so one slow fetch never delays the rest.
// @group Triggers
//
// Example: wire a focus event source
//
//	onWindowFocus(func() { coord.HandleFocus(context.Background()) })
func (c *Coordinator) HandleFocus(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := c.clock.Now()
	if c.env.IsPaused() || !c.env.IsVisible() || !c.env.IsOnline() {
		return
	}
	for _, s := range c.allSubs() {
		s.revalidateOnFocus(ctx)
	}
	c.observe("focus", "", true, nil, start)
}

// HandleReconnect dispatches a network-reconnect trigger. No throttle;
// gated only by activity and each subscription's RevalidateOnReconnect.
// @group Triggers
func (c *Coordinator) HandleReconnect(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := c.clock.Now()
	if c.env.IsPaused() || !c.env.IsVisible() || !c.env.IsOnline() {
		return
	}
	for _, s := range c.allSubs() {
		s.revalidateOnReconnect(ctx)
	}
	c.observe("reconnect", "", true, nil, start)
}

// HandleMutate dispatches a mutation-driven trigger for one key. The first
// subscription starts a fresh request (not deduped unless asked);
// remaining subscriptions attach to it.
// @group Triggers
func (c *Coordinator) HandleMutate(ctx context.Context, key string, dedupe bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := c.clock.Now()
	for i, s := range c.subsForKey(key) {
		d := dedupe
		if i > 0 {
			d = true
		}
		s.mu.Lock()
		cfg, arg, k, closed := s.cfg, s.arg, s.key, s.closed
		s.mu.Unlock()
		if closed || k != key {
			continue
		}
		c.revalidate(ctx, s, key, arg, s.fetch, cfg, revalidateOpts{dedupe: d})
	}
	c.observe("mutate_trigger", key, true, nil, start)
}

// revalidateOnFocus gates and throttles synchronously, then issues the
// fetch in its own goroutine. The threshold advances before the goroutine
// starts so rapid focus toggling cannot queue a revalidation storm.
func (s *Subscription) revalidateOnFocus(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.key == "" || !*s.cfg.RevalidateOnFocus {
		s.mu.Unlock()
		return
	}
	now := s.coord.clock.Now()
	if now.Before(s.nextFocusAt) {
		s.mu.Unlock()
		return
	}
	s.nextFocusAt = now.Add(s.cfg.FocusThrottleInterval)
	key, arg, cfg := s.key, s.arg, s.cfg
	s.mu.Unlock()

	go s.coord.revalidate(ctx, s, key, arg, s.fetch, cfg, revalidateOpts{dedupe: true})
}

func (s *Subscription) revalidateOnReconnect(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.key == "" || !*s.cfg.RevalidateOnReconnect {
		s.mu.Unlock()
		return
	}
	key, arg, cfg := s.key, s.arg, s.cfg
	s.mu.Unlock()

	go s.coord.revalidate(ctx, s, key, arg, s.fetch, cfg, revalidateOpts{dedupe: true})
}
