// Package session adapts the poller to the web, tray and config-reload
// surfaces.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/soar/padcontrol/internal/hub"
	"github.com/soar/padcontrol/internal/input"
	"github.com/soar/padcontrol/internal/poller"
)

// Session starts and stops polling and changes thresholds between ticks.
// Every start and stop is announced to websocket clients.
type Session struct {
	ctx         context.Context
	poller      *poller.Poller
	broadcaster *hub.Broadcaster
	logger      *slog.Logger

	mu       sync.Mutex
	onChange []func()
}

func New(ctx context.Context, p *poller.Poller, b *hub.Broadcaster, logger *slog.Logger) *Session {
	return &Session{ctx: ctx, poller: p, broadcaster: b, logger: logger}
}

// OnChange registers fn to run after every start and stop.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Session) Start() error {
	if err := s.poller.Start(s.ctx); err != nil {
		return err
	}
	s.changed(true)
	return nil
}

func (s *Session) Stop() error {
	if err := s.poller.Stop(); err != nil {
		return err
	}
	s.changed(false)
	return nil
}

func (s *Session) Running() bool {
	return s.poller.Running()
}

func (s *Session) changed(running bool) {
	s.broadcaster.PublishSession(running)

	s.mu.Lock()
	fns := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Session) SetNoiseThreshold(name string, v float64) error {
	err := s.poller.Do(func(r *input.Registry) error {
		if name == "" {
			return r.SetNoiseThreshold(v)
		}
		return r.SetNoiseThresholdFor(name, v)
	})
	if err == nil {
		s.logger.Info("Noise threshold set", "input", name, "value", v)
	}
	return err
}

func (s *Session) SetInputDelta(name string, v float64) error {
	err := s.poller.Do(func(r *input.Registry) error {
		if name == "" {
			return r.SetInputDelta(v)
		}
		return r.SetInputDeltaFor(name, v)
	})
	if err == nil {
		s.logger.Info("Input delta set", "input", name, "value", v)
	}
	return err
}
