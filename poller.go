package swr

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// poller is the repeating revalidation task for one subscription. Each
// round computes the interval from current data, runs a gated soft
// revalidation, and reschedules. Stop wins over a concurrently firing
// callback: a tick that observes the stopped flag never reschedules.
type poller struct {
	sub *Subscription
	ctx context.Context

	mu      sync.Mutex
	timer   *clock.Timer
	stopped bool
}

func newPoller(sub *Subscription, ctx context.Context) *poller {
	return &poller{sub: sub, ctx: ctx}
}

func (p *poller) schedule() {
	interval := p.sub.refreshInterval()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || interval <= 0 {
		return
	}
	p.timer = p.sub.coord.clock.AfterFunc(interval, p.tick)
}

func (p *poller) tick() {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}
	p.sub.pollOnce(p.ctx)
	p.schedule()
}

func (p *poller) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
	}
}

func (s *Subscription) refreshInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.key == "" || s.cfg.RefreshInterval == nil {
		return 0
	}
	var data any
	if s.snapshot.HasData {
		data = s.snapshot.Data
	}
	return s.cfg.RefreshInterval(data)
}

// pollOnce runs one polling round. The fetch is skipped while errored,
// hidden or offline (unless allowed by config), but the loop keeps
// rescheduling either way.
func (s *Subscription) pollOnce(ctx context.Context) {
	s.mu.Lock()
	cfg, key, arg := s.cfg, s.key, s.arg
	errored := s.snapshot.Err != nil
	closed := s.closed
	s.mu.Unlock()
	if closed || key == "" {
		return
	}
	env := s.coord.env
	if errored {
		return
	}
	if !env.IsVisible() && !cfg.RefreshWhenHidden {
		return
	}
	if !env.IsOnline() && !cfg.RefreshWhenOffline {
		return
	}
	start := s.coord.clock.Now()
	ok := s.coord.revalidate(ctx, s, key, arg, s.fetch, cfg, revalidateOpts{dedupe: true})
	s.coord.observe("poll", key, ok, nil, start)
}
