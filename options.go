package swr

import (
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Option mutates a Coordinator during construction.
type Option func(*Coordinator)

// WithStore overrides the default in-memory store.
func WithStore(store Store) Option {
	return func(c *Coordinator) {
		if store != nil {
			c.store = store
		}
	}
}

// WithEnvironment overrides the default always-active environment.
func WithEnvironment(env Environment) Option {
	return func(c *Coordinator) {
		if env != nil {
			c.env = env
		}
	}
}

// WithClock injects the clock used for timestamps and timers. Tests pass
// clock.NewMock().
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger enables debug logging of revalidation decisions.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithObserver attaches an observer receiving operation events.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}
