package swr

import "errors"

var (
	// ErrNoKey is returned by operations that require a non-empty key.
	ErrNoKey = errors.New("swr: key is empty")

	// ErrNoMutator is returned by Mutate when no mutator is supplied and
	// no optimistic value can stand in for one.
	ErrNoMutator = errors.New("swr: mutate requires a mutator or value")

	// ErrClosed is returned when an operation is issued against a closed
	// coordinator or subscription.
	ErrClosed = errors.New("swr: closed")
)
