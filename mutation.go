package swr

import (
	"context"

	"github.com/sirupsen/logrus"
)

// MutatorFunc computes the mutated value from the current cached data.
type MutatorFunc func(ctx context.Context, current any) (any, error)

// MutateOptions controls an out-of-band mutation.
type MutateOptions struct {
	// Revalidate triggers a fresh fetch after the mutation settles.
	// Defaults to true.
	Revalidate *bool

	// Dedupe lets the post-mutation revalidation attach to an in-flight
	// request instead of starting fresh. Off by default: a mutation wants
	// data newer than anything already running.
	Dedupe bool

	// OptimisticData is written immediately, before the mutator runs.
	OptimisticData    any
	HasOptimisticData bool

	// RollbackOnError restores the pre-mutation data when the mutator
	// fails and OptimisticData was applied. Defaults to true.
	RollbackOnError *bool
}

// Mutate applies an out-of-band write to key. It records a mutation window
// for the duration of the mutator; any fetch whose start time overlaps the
// window is discarded, so the mutation's value is never clobbered by a
// concurrent read that cannot know about it.
// @group Mutation
//
// Example: optimistic update
//
//	_, err := coord.Mutate(ctx, "user:42", renameUser, swr.MutateOptions{
//		OptimisticData:    optimistic,
//		HasOptimisticData: true,
//	})
//	_ = err
func (c *Coordinator) Mutate(ctx context.Context, key string, fn MutatorFunc, opts MutateOptions) (any, error) {
	if key == "" {
		return nil, ErrNoKey
	}
	if fn == nil {
		return nil, ErrNoMutator
	}
	if c.isClosed() {
		return nil, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := c.clock.Now()

	w := c.beginMutation(key)
	prev, hadRecord := c.store.Get(key)

	if opts.HasOptimisticData {
		c.store.Set(key, Patch{Data: opts.OptimisticData, SetData: true})
	}

	current := prev.Data
	if !prev.HasData {
		current = nil
	}
	data, err := fn(ctx, current)

	// Close the window before publishing so later fetches are not
	// suppressed; in-flight ones still lose the overlap check.
	c.endMutation(key, w)

	if err != nil {
		if opts.HasOptimisticData && boolOrDefault(opts.RollbackOnError, true) {
			rollback := Patch{}
			if hadRecord && prev.HasData {
				rollback.Data = prev.Data
				rollback.SetData = true
			} else {
				rollback.ClearData = true
			}
			c.store.Set(key, rollback)
		}
		c.observe("mutate", key, false, err, start)
		c.debug(key, "mutation failed", logrus.Fields{"error": err})
		return nil, err
	}

	c.store.Set(key, Patch{Data: data, SetData: true, SetErr: true})
	c.observe("mutate", key, true, nil, start)

	if boolOrDefault(opts.Revalidate, true) {
		c.HandleMutate(ctx, key, opts.Dedupe)
	}
	return data, nil
}

// MutateValue is Mutate with a literal replacement value.
// @group Mutation
func (c *Coordinator) MutateValue(ctx context.Context, key string, value any, opts MutateOptions) (any, error) {
	return c.Mutate(ctx, key, func(context.Context, any) (any, error) {
		return value, nil
	}, opts)
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
