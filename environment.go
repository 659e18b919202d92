package swr

// Environment reports the consumer's activity state. Visibility and
// connectivity detection live outside this package; the coordinator only
// consults the answers.
type Environment interface {
	IsVisible() bool
	IsOnline() bool
	IsPaused() bool
}

type staticEnvironment struct {
	visible bool
	online  bool
	paused  bool
}

func (e staticEnvironment) IsVisible() bool { return e.visible }
func (e staticEnvironment) IsOnline() bool  { return e.online }
func (e staticEnvironment) IsPaused() bool  { return e.paused }

// AlwaysActive returns the default environment: visible, online, never
// paused.
func AlwaysActive() Environment {
	return staticEnvironment{visible: true, online: true}
}
