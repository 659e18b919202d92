package swr

import (
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

type memoryStore struct {
	records *gocache.Cache

	mu        sync.Mutex
	listeners map[string]map[int]Listener
	notifiers map[string]*keyNotifier
	nextID    int
}

// keyNotifier orders notification delivery for one key. Writers take a
// sequence number under the store lock; delivery holds the notifier lock so
// listeners for a key never run concurrently, and a delivery that lost the
// race to a newer write is dropped instead of running out of order.
type keyNotifier struct {
	nextSeq uint64 // guarded by memoryStore.mu

	mu        sync.Mutex
	delivered uint64
}

func (n *keyNotifier) deliver(seq uint64, fns []Listener, cur, prev Record) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if seq <= n.delivered {
		return
	}
	n.delivered = seq
	for _, fn := range fns {
		fn(cur, prev)
	}
}

// NewMemoryStore returns the default in-process store. Records live for
// the lifetime of the store; eviction is an external concern.
// @group Constructors
//
// Example: explicit store
//
//	store := swr.NewMemoryStore()
//	coord := swr.New(swr.WithStore(store))
//	_ = coord
func NewMemoryStore() Store {
	return &memoryStore{
		records:   gocache.New(gocache.NoExpiration, 0),
		listeners: make(map[string]map[int]Listener),
		notifiers: make(map[string]*keyNotifier),
	}
}

func (s *memoryStore) Get(key string) (Record, bool) {
	item, ok := s.records.Get(key)
	if !ok {
		return Record{}, false
	}
	rec, ok := item.(Record)
	if !ok {
		return Record{}, false
	}
	return rec, true
}

func (s *memoryStore) Set(key string, patch Patch) Record {
	s.mu.Lock()
	var prev Record
	if item, ok := s.records.Get(key); ok {
		if rec, ok := item.(Record); ok {
			prev = rec
		}
	}
	next := patch.apply(prev)
	s.records.Set(key, next, gocache.NoExpiration)

	n := s.notifiers[key]
	if n == nil {
		n = &keyNotifier{}
		s.notifiers[key] = n
	}
	n.nextSeq++
	seq := n.nextSeq

	fns := make([]Listener, 0, len(s.listeners[key]))
	for _, fn := range s.listeners[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	// Listeners run outside the store lock so they may read back into the
	// store. A same-key Set from inside a listener would self-deadlock on
	// the notifier lock.
	n.deliver(seq, fns, next, prev)
	return next
}

func (s *memoryStore) Subscribe(key string, fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners[key] == nil {
		s.listeners[key] = make(map[int]Listener)
	}
	id := s.nextID
	s.nextID++
	s.listeners[key][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners[key], id)
		if len(s.listeners[key]) == 0 {
			delete(s.listeners, key)
		}
	}
}
