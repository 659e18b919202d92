package swr

import "time"

// Observer receives events for coordinator operations.
// It is called after each operation settles.
type Observer interface {
	OnRevalidate(op string, key string, ok bool, err error, dur time.Duration)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(op string, key string, ok bool, err error, dur time.Duration)

// OnRevalidate implements Observer.
func (f ObserverFunc) OnRevalidate(op string, key string, ok bool, err error, dur time.Duration) {
	if f == nil {
		return
	}
	f(op, key, ok, err, dur)
}
