package swrfake

import (
	"sync"
	"testing"

	"github.com/goforj/swr"
)

// Op identifies a store operation for assertions.
type Op string

const (
	OpGet       Op = "get"
	OpSet       Op = "set"
	OpSubscribe Op = "subscribe"
	OpNotify    Op = "notify"
)

// Fake exposes a deterministic in-memory store plus assertion helpers for
// tests. It wraps the default memory store so no collaborators are needed.
type Fake struct {
	store  swr.Store
	mu     sync.Mutex
	counts map[Op]map[string]int
}

// New creates a Fake around the default in-memory store.
func New() *Fake {
	return NewWith(swr.NewMemoryStore())
}

// NewWith creates a Fake around an arbitrary store.
func NewWith(inner swr.Store) *Fake {
	f := &Fake{counts: make(map[Op]map[string]int)}
	f.store = &countingStore{inner: inner, onCount: f.record}
	return f
}

// Store returns the instrumented store to inject into code under test.
func (f *Fake) Store() swr.Store { return f.store }

// Reset clears recorded counts.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[Op]map[string]int)
}

// AssertCalled verifies key was touched by op the expected number of times.
func (f *Fake) AssertCalled(t *testing.T, op Op, key string, times int) {
	t.Helper()
	if got := f.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures key was never touched by op.
func (f *Fake) AssertNotCalled(t *testing.T, op Op, key string) {
	t.Helper()
	if got := f.Count(op, key); got != 0 {
		t.Fatalf("expected %s %q not called, got %d", op, key, got)
	}
}

// Count returns calls for op+key.
func (f *Fake) Count(op Op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		return 0
	}
	return f.counts[op][key]
}

// Total returns total calls for an op across keys.
func (f *Fake) Total(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int
	for _, v := range f.counts[op] {
		sum += v
	}
	return sum
}

func (f *Fake) record(op Op, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		f.counts[op] = make(map[string]int)
	}
	f.counts[op][key]++
}

type countingStore struct {
	inner   swr.Store
	onCount func(Op, string)
}

func (s *countingStore) Get(key string) (swr.Record, bool) {
	s.onCount(OpGet, key)
	return s.inner.Get(key)
}

func (s *countingStore) Set(key string, patch swr.Patch) swr.Record {
	s.onCount(OpSet, key)
	return s.inner.Set(key, patch)
}

func (s *countingStore) Subscribe(key string, fn swr.Listener) func() {
	s.onCount(OpSubscribe, key)
	return s.inner.Subscribe(key, func(cur, prev swr.Record) {
		s.onCount(OpNotify, key)
		fn(cur, prev)
	})
}
