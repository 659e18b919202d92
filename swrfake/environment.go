package swrfake

import "sync"

// Environment is a settable swr.Environment for tests. The zero value is
// hidden, offline and unpaused; NewEnvironment starts active.
type Environment struct {
	mu      sync.Mutex
	visible bool
	online  bool
	paused  bool
}

// NewEnvironment returns an environment that starts visible and online.
func NewEnvironment() *Environment {
	return &Environment{visible: true, online: true}
}

func (e *Environment) IsVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible
}

func (e *Environment) IsOnline() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

func (e *Environment) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Environment) SetVisible(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = v
}

func (e *Environment) SetOnline(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.online = v
}

func (e *Environment) SetPaused(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = v
}
