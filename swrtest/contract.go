package swrtest

import (
	"errors"
	"testing"

	"github.com/goforj/swr"
)

// Options configures shared store contract checks.
type Options struct {
	// CaseName is used to namespace keys. Defaults to t.Name().
	CaseName string
}

// RunStoreContract runs a backend-agnostic contract suite against a
// swr.Store implementation: partial-merge semantics, listener delivery
// order, and unsubscribe behavior.
func RunStoreContract(t *testing.T, store swr.Store, opts Options) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	key := func(s string) string { return caseName + ":" + s }

	// Missing key.
	if _, ok := store.Get(key("missing")); ok {
		t.Fatalf("expected miss for unknown key")
	}

	// Partial merges accumulate.
	store.Set(key("merge"), swr.Patch{Data: "v1", SetData: true})
	store.Set(key("merge"), swr.Patch{IsValidating: true, SetIsValidating: true})
	rec, ok := store.Get(key("merge"))
	if !ok {
		t.Fatalf("expected record after set")
	}
	if !rec.HasData || rec.Data != "v1" {
		t.Fatalf("expected merged data to survive flag write, got %+v", rec)
	}
	if !rec.IsValidating {
		t.Fatalf("expected isValidating merged in")
	}

	// Error set and cleared.
	boom := errors.New("boom")
	store.Set(key("merge"), swr.Patch{Err: boom, SetErr: true})
	rec, _ = store.Get(key("merge"))
	if rec.Err != boom {
		t.Fatalf("expected error stored, got %v", rec.Err)
	}
	store.Set(key("merge"), swr.Patch{SetErr: true})
	rec, _ = store.Get(key("merge"))
	if rec.Err != nil {
		t.Fatalf("expected error cleared, got %v", rec.Err)
	}

	// ClearData resets to the never-fetched state.
	store.Set(key("clear"), swr.Patch{Data: 1, SetData: true})
	store.Set(key("clear"), swr.Patch{ClearData: true})
	rec, _ = store.Get(key("clear"))
	if rec.HasData || rec.Data != nil {
		t.Fatalf("expected data cleared, got %+v", rec)
	}

	// Listener receives (current, previous) per write, in order.
	type transition struct{ cur, prev swr.Record }
	var seen []transition
	unsub := store.Subscribe(key("notify"), func(cur, prev swr.Record) {
		seen = append(seen, transition{cur, prev})
	})
	store.Set(key("notify"), swr.Patch{Data: "a", SetData: true})
	store.Set(key("notify"), swr.Patch{Data: "b", SetData: true})
	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if seen[0].prev.HasData || seen[0].cur.Data != "a" {
		t.Fatalf("unexpected first transition: %+v", seen[0])
	}
	if seen[1].prev.Data != "a" || seen[1].cur.Data != "b" {
		t.Fatalf("unexpected second transition: %+v", seen[1])
	}

	// Writes to other keys never notify.
	store.Set(key("other"), swr.Patch{Data: "x", SetData: true})
	if len(seen) != 2 {
		t.Fatalf("expected no cross-key notification, got %d", len(seen))
	}

	// Unsubscribe stops delivery.
	unsub()
	store.Set(key("notify"), swr.Patch{Data: "c", SetData: true})
	if len(seen) != 2 {
		t.Fatalf("expected no notification after unsubscribe, got %d", len(seen))
	}
}
