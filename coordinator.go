package swr

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Coordinator owns the revalidation machinery for one cache store: the
// in-flight request registry, the mutation ledger and the set of active
// subscriptions. Registries are per-coordinator, never package globals.
type Coordinator struct {
	store    Store
	env      Environment
	clock    clock.Clock
	logger   logrus.FieldLogger
	observer Observer

	mu        sync.Mutex
	lamport   int64
	flights   map[string]*flight
	mutations map[string]*window
	subs      map[string]map[*Subscription]struct{}
	closed    bool
}

// New creates a coordinator with an in-memory store and an always-active
// environment unless overridden by options.
// @group Constructors
//
// Example: coordinator with defaults
//
//	coord := swr.New()
//	defer coord.Close()
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     NewMemoryStore(),
		env:       AlwaysActive(),
		clock:     clock.New(),
		flights:   make(map[string]*flight),
		mutations: make(map[string]*window),
		subs:      make(map[string]map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying cache store.
// @group Coordinator
func (c *Coordinator) Store() Store {
	return c.store
}

// Revalidate runs a one-off soft (deduped) revalidation for key. It returns
// true when a request path completed and state was written, false when the
// attempt was skipped or its result discarded.
// @group Coordinator
//
// Example: ad-hoc revalidation
//
//	coord := swr.New()
//	ok := coord.Revalidate(context.Background(), "user:42", fetchUser, swr.Config{})
//	_ = ok
func (c *Coordinator) Revalidate(ctx context.Context, key string, fetch Fetcher, cfg Config) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.withDefaults()
	return c.revalidate(ctx, nil, key, key, fetch, cfg, revalidateOpts{dedupe: true})
}

// Close detaches every subscription. Further operations return ErrClosed
// or are skipped.
// @group Coordinator
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	var all []*Subscription
	for _, set := range c.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	c.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Coordinator) registerSub(key string, s *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[key] == nil {
		c.subs[key] = make(map[*Subscription]struct{})
	}
	c.subs[key][s] = struct{}{}
}

func (c *Coordinator) unregisterSub(key string, s *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.subs[key]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(c.subs, key)
		}
	}
}

func (c *Coordinator) subsForKey(key string) []*Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Subscription, 0, len(c.subs[key]))
	for s := range c.subs[key] {
		out = append(out, s)
	}
	return out
}

func (c *Coordinator) allSubs() []*Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Subscription
	for _, set := range c.subs {
		for s := range set {
			out = append(out, s)
		}
	}
	return out
}

func (c *Coordinator) observe(op, key string, ok bool, err error, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.OnRevalidate(op, key, ok, err, c.clock.Now().Sub(start))
}

func (c *Coordinator) debug(key string, msg string, fields logrus.Fields) {
	if c.logger == nil {
		return
	}
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["key"] = key
	c.logger.WithFields(fields).Debug(msg)
}
