// Package poller drives an input registry at a fixed rate and delivers the
// changed inputs to the registered handlers.
package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/soar/padcontrol/internal/input"
	plog "github.com/soar/padcontrol/internal/log"
)

const DefaultInterval = 50 * time.Millisecond

var (
	ErrAlreadyStarted = errors.New("polling already started")
	ErrNotStarted     = errors.New("polling already stopped")
)

// Source provides the raw device sample for one tick.
type Source interface {
	Snapshot() (input.Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (input.Snapshot, error)

func (f SourceFunc) Snapshot() (input.Snapshot, error) {
	return f()
}

// Handler receives a status. During a session it is the partial status of
// the inputs that changed on one tick; on Stop it is the full, all-zero
// status.
type Handler func(input.Status)

// Ticker is the tick scheduling capability used by the poller.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

// NewTimeTicker is the default ticker factory.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(p *Poller) {
		p.newTicker = newTicker
	}
}

// WithHandler adds a handler. Handlers run in registration order on the
// polling goroutine and must not call Stop.
func WithHandler(h Handler) Option {
	return func(p *Poller) {
		p.handlers = append(p.handlers, h)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

// Poller owns one registry and runs at most one polling session at a time.
type Poller struct {
	registry  *input.Registry
	source    Source
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	handlers  []Handler
	logger    *slog.Logger

	// mu serializes every access to registry
	mu sync.Mutex

	// lifecycle guards cancel and done
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}

	// failing is owned by the polling goroutine
	failing bool
}

func New(reg *input.Registry, src Source, opts ...Option) *Poller {
	p := &Poller{
		registry:  reg,
		source:    src,
		interval:  DefaultInterval,
		newTicker: NewTimeTicker,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling. It fails with ErrAlreadyStarted while a session is
// running. Cancelling ctx ends the ticks and Running reports false; Stop
// still resets the inputs and delivers the final status.
func (p *Poller) Start(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.cancel != nil {
		if !p.exited() {
			return ErrAlreadyStarted
		}
		// the previous loop ended with its context; wind it down first
		p.finish()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	ticker := p.newTicker(p.interval)

	go p.loop(loopCtx, ticker, p.done)

	p.logger.Info("Polling started", "interval", p.interval, "inputs", p.registry.Len())
	return nil
}

// Stop ends the session. When it returns no further tick will be processed,
// every input is back at zero and the handlers received the final status.
func (p *Poller) Stop() error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.cancel == nil {
		return ErrNotStarted
	}
	p.finish()
	p.logger.Info("Polling stopped")
	return nil
}

// finish cancels the loop, waits for it and reports the all-zero status.
// The caller holds lifecycle.
func (p *Poller) finish() {
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil

	p.mu.Lock()
	p.registry.Reset()
	final := p.registry.Status()
	p.mu.Unlock()

	p.notify(final)
}

func (p *Poller) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Running reports whether ticks are being processed. It turns false when
// Stop is called or the context given to Start is cancelled.
func (p *Poller) Running() bool {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	return p.cancel != nil && !p.exited()
}

// Status returns the full committed status.
func (p *Poller) Status() input.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registry.Status()
}

// Do runs fn with exclusive access to the registry, between ticks.
func (p *Poller) Do(fn func(*input.Registry) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(p.registry)
}

func (p *Poller) loop(ctx context.Context, ticker Ticker, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		// a tick racing with cancellation is dropped
		if ctx.Err() != nil {
			return
		}
		p.tick()
	}
}

func (p *Poller) tick() {
	snap, err := p.source.Snapshot()
	if err != nil {
		if !p.failing {
			p.logger.Warn("Skipping ticks until the source recovers", "error", err)
			p.failing = true
		}
		return
	}
	if p.failing {
		p.logger.Info("Source recovered")
		p.failing = false
	}
	p.logger.Log(context.Background(), plog.LevelTrace, "Tick", "buttons", len(snap.Buttons), "axes", len(snap.Axes))

	p.mu.Lock()
	changed := p.registry.Update(snap)
	p.mu.Unlock()

	if len(changed) == 0 {
		return
	}
	p.logger.Debug("Status changed", "changes", len(changed))
	p.notify(changed)
}

func (p *Poller) notify(s input.Status) {
	for _, h := range p.handlers {
		h(s.Clone())
	}
}
