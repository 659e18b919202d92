package swr

import "time"

// Flight and window stamps come from a per-coordinator logical counter,
// not the wall clock, so two events can never tie and race adjudication
// stays deterministic. Durations (dedup expiry, slow loading, retries)
// still run on the injected clock.

// flight is one physical fetch in progress. The closed done channel is how
// deduped callers attach to the shared result. A registry slot is replaced
// wholesale when a new request starts; the old flight keeps running and is
// discarded on settle.
type flight struct {
	startedAt int64
	done      chan struct{}
	data      any
	err       error
}

// window records the span of an out-of-band mutation for a key.
// endedAt stays zero while the mutation is still running.
type window struct {
	startedAt int64
	endedAt   int64
}

func (c *Coordinator) currentFlight(key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flights[key]
}

// claimFlight decides whether to start a new request. A nil existing entry
// or a non-deduped caller starts fresh; otherwise the caller attaches to
// the running flight.
func (c *Coordinator) claimFlight(key string, dedupe bool) (fl *flight, owned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.flights[key]; ok && dedupe {
		return existing, false
	}
	c.lamport++
	fl = &flight{
		startedAt: c.lamport,
		done:      make(chan struct{}),
	}
	c.flights[key] = fl
	return fl, true
}

// removeFlightIf drops the registry entry only while it still holds fl;
// a newer request may have superseded it.
func (c *Coordinator) removeFlightIf(key string, fl *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flights[key] == fl {
		delete(c.flights, key)
	}
}

func (c *Coordinator) scheduleFlightExpiry(key string, fl *flight, after time.Duration) {
	c.clock.AfterFunc(after, func() {
		c.removeFlightIf(key, fl)
	})
}

func (c *Coordinator) beginMutation(key string) *window {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lamport++
	w := &window{startedAt: c.lamport}
	c.mutations[key] = w
	return w
}

// endMutation closes w unless a newer mutation has replaced it.
func (c *Coordinator) endMutation(key string, w *window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mutations[key] == w {
		c.lamport++
		w.endedAt = c.lamport
	}
}

// overlapsMutation reports whether a fetch started at startedAt must be
// discarded in favor of a recorded mutation: the fetch began before the
// mutation started, before it finished, or the mutation is still running.
func (c *Coordinator) overlapsMutation(key string, startedAt int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.mutations[key]
	if !ok {
		return false
	}
	if startedAt <= w.startedAt {
		return true
	}
	if w.endedAt == 0 {
		return true
	}
	if startedAt <= w.endedAt {
		return true
	}
	// The fetch started after the window closed. Stamps only grow, so no
	// later fetch can observe this window either; drop the entry.
	delete(c.mutations, key)
	return false
}
