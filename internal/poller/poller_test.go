package poller_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/padcontrol/internal/input"
	"github.com/soar/padcontrol/internal/poller"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

// fakeSource returns the snapshot last stored with set.
type fakeSource struct {
	mu   sync.Mutex
	snap input.Snapshot
	err  error
}

func (s *fakeSource) set(snap input.Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap, s.err = snap, err
}

func (s *fakeSource) Snapshot() (input.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), s.err
}

type harness struct {
	poller   *poller.Poller
	source   *fakeSource
	tickers  chan *fakeTicker
	statuses chan input.Status
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg, err := input.NewRegistry(
		input.Entry("adelante", input.NewDigitalButton(5)),
		input.Entry("atras", input.NewDigitalButton(4)),
		input.Entry("direccion", input.NewSingleAxis(0)),
	)
	require.NoError(t, err)

	h := &harness{
		source:   &fakeSource{},
		tickers:  make(chan *fakeTicker, 4),
		statuses: make(chan input.Status, 16),
	}
	h.poller = poller.New(reg, h.source,
		poller.WithInterval(10*time.Millisecond),
		poller.WithTicker(func(d time.Duration) poller.Ticker {
			tk := &fakeTicker{ch: make(chan time.Time)}
			h.tickers <- tk
			return tk
		}),
		poller.WithHandler(func(s input.Status) { h.statuses <- s }),
	)
	return h
}

func (h *harness) start(t *testing.T) *fakeTicker {
	t.Helper()
	require.NoError(t, h.poller.Start(context.Background()))
	select {
	case tk := <-h.tickers:
		return tk
	case <-time.After(time.Second):
		t.Fatal("ticker was not created")
		return nil
	}
}

func (h *harness) next(t *testing.T) input.Status {
	t.Helper()
	select {
	case s := <-h.statuses:
		return s
	case <-time.After(time.Second):
		t.Fatal("no status delivered")
		return nil
	}
}

func snapshot(axis float64, pressed ...int) input.Snapshot {
	b := make([]input.Button, 6)
	for _, i := range pressed {
		b[i] = input.Button{Pressed: true, Value: 1}
	}
	return input.Snapshot{Buttons: b, Axes: []float64{axis}}
}

func TestPollerDeliversChanges(t *testing.T) {
	h := newHarness(t)
	tk := h.start(t)

	h.source.set(snapshot(0, 5), nil)
	tk.ch <- time.Now()
	assert.Equal(t, input.Status{"adelante": input.Scalar(1)}, h.next(t))

	// an unchanged tick is not delivered; the next change is
	tk.ch <- time.Now()
	h.source.set(snapshot(0.8, 5), nil)
	tk.ch <- time.Now()
	assert.Equal(t, input.Status{"direccion": input.Scalar(0.8)}, h.next(t))

	h.source.set(snapshot(0, 5), nil)
	tk.ch <- time.Now()
	assert.Equal(t, input.Status{"direccion": input.Scalar(0)}, h.next(t))

	require.NoError(t, h.poller.Stop())
}

func TestPollerStopReportsZeroStatus(t *testing.T) {
	h := newHarness(t)
	tk := h.start(t)

	h.source.set(snapshot(-0.9, 4), nil)
	tk.ch <- time.Now()
	assert.Len(t, h.next(t), 2)

	require.NoError(t, h.poller.Stop())
	assert.True(t, tk.stopped.Load())
	assert.Equal(t, input.Status{
		"adelante":  input.Scalar(0),
		"atras":     input.Scalar(0),
		"direccion": input.Scalar(0),
	}, h.next(t))
	assert.Equal(t, h.poller.Status(), input.Status{
		"adelante":  input.Scalar(0),
		"atras":     input.Scalar(0),
		"direccion": input.Scalar(0),
	})
	assert.False(t, h.poller.Running())
}

func TestPollerLifecycleErrors(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.poller.Stop(), poller.ErrNotStarted)

	h.start(t)
	assert.True(t, h.poller.Running())
	assert.ErrorIs(t, h.poller.Start(context.Background()), poller.ErrAlreadyStarted)

	require.NoError(t, h.poller.Stop())
	h.next(t)
	assert.ErrorIs(t, h.poller.Stop(), poller.ErrNotStarted)

	// a new session can be started after a stop
	tk := h.start(t)
	h.source.set(snapshot(0, 5), nil)
	tk.ch <- time.Now()
	assert.Equal(t, input.Status{"adelante": input.Scalar(1)}, h.next(t))
	require.NoError(t, h.poller.Stop())
}

func TestPollerParentContextCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.poller.Start(ctx))
	tk := <-h.tickers

	h.source.set(snapshot(0, 5), nil)
	tk.ch <- time.Now()
	assert.Equal(t, input.Status{"adelante": input.Scalar(1)}, h.next(t))

	cancel()
	assert.Eventually(t, func() bool { return !h.poller.Running() }, time.Second, 5*time.Millisecond)
	assert.True(t, tk.stopped.Load())

	// Stop still winds the session down and reports the release
	require.NoError(t, h.poller.Stop())
	assert.Equal(t, input.Status{
		"adelante":  input.Scalar(0),
		"atras":     input.Scalar(0),
		"direccion": input.Scalar(0),
	}, h.next(t))
	assert.ErrorIs(t, h.poller.Stop(), poller.ErrNotStarted)
}

func TestPollerRestartsAfterParentContextCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.poller.Start(ctx))
	<-h.tickers
	cancel()
	require.Eventually(t, func() bool { return !h.poller.Running() }, time.Second, 5*time.Millisecond)

	tk := h.start(t)
	assert.Len(t, h.next(t), 3) // release of the ended session
	assert.True(t, h.poller.Running())

	h.source.set(snapshot(0, 4), nil)
	tk.ch <- time.Now()
	assert.Equal(t, input.Status{"atras": input.Scalar(1)}, h.next(t))
	require.NoError(t, h.poller.Stop())
}

func TestPollerSkipsSourceErrors(t *testing.T) {
	h := newHarness(t)
	tk := h.start(t)

	h.source.set(snapshot(0, 5), errors.New("invalid gamepad"))
	tk.ch <- time.Now()

	h.source.set(snapshot(0, 4), nil)
	tk.ch <- time.Now()
	assert.Equal(t, input.Status{"atras": input.Scalar(1)}, h.next(t))

	require.NoError(t, h.poller.Stop())
}

func TestPollerDo(t *testing.T) {
	h := newHarness(t)
	tk := h.start(t)

	err := h.poller.Do(func(r *input.Registry) error {
		return r.SetNoiseThreshold(0.9)
	})
	require.NoError(t, err)

	h.source.set(snapshot(0.8), nil)
	tk.ch <- time.Now()
	h.source.set(snapshot(0.95), nil)
	tk.ch <- time.Now()
	assert.Equal(t, input.Status{"direccion": input.Scalar(0.95)}, h.next(t))

	err = h.poller.Do(func(r *input.Registry) error {
		return r.SetInputDelta(-1)
	})
	assert.ErrorIs(t, err, input.ErrOutOfRange)

	require.NoError(t, h.poller.Stop())
}

func TestSourceFunc(t *testing.T) {
	src := poller.SourceFunc(func() (input.Snapshot, error) {
		return input.Snapshot{Axes: []float64{1}}, nil
	})
	snap, err := src.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, snap.Axes)
}
