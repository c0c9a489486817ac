package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soar/padcontrol/internal/input"
)

const (
	fullSyncInterval = 5 * time.Second
	deltaCountSync   = 100
	changesBuffer    = 64
)

// Broadcaster turns the poller's partial statuses into "delta" messages and
// periodically sends the merged status as a "full" message.
type Broadcaster struct {
	hub     *Hub
	changes chan input.Status
	logger  *slog.Logger

	mu   sync.Mutex
	last input.Status

	seq    atomic.Int64
	resync atomic.Bool
}

// NewBroadcaster creates a broadcaster seeded with the initial full status.
func NewBroadcaster(h *Hub, initial input.Status, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Broadcaster{
		hub:     h,
		changes: make(chan input.Status, changesBuffer),
		logger:  logger,
		last:    initial.Clone(),
	}
}

// Publish records a partial status. It never blocks the caller; when the
// queue is full the next broadcast is a full sync instead of a delta.
func (b *Broadcaster) Publish(partial input.Status) {
	b.mu.Lock()
	b.last.Merge(partial)
	b.mu.Unlock()

	select {
	case b.changes <- partial:
	default:
		b.resync.Store(true)
	}
}

// PublishSession announces a session start or stop to every client.
func (b *Broadcaster) PublishSession(running bool) {
	b.broadcast(NewSessionMessage(b.seq.Add(1), running))
}

// Status returns the merged status seen so far.
func (b *Broadcaster) Status() input.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last.Clone()
}

// Run starts the broadcaster loop until ctx is done. Should be run in a
// goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(fullSyncInterval)
	defer ticker.Stop()

	var deltaCount int

	for {
		select {
		case <-ctx.Done():
			return

		case delta := <-b.changes:
			if len(delta) == 0 {
				continue
			}
			deltaCount++

			if deltaCount >= deltaCountSync || b.resync.Swap(false) {
				b.sendFull()
				deltaCount = 0
			} else {
				b.broadcast(NewDeltaMessage(b.seq.Add(1), delta))
			}

		case <-ticker.C:
			b.resync.Store(false)
			b.sendFull()
		}
	}
}

// SendInitialState sends the current full status to a newly connected client.
func (b *Broadcaster) SendInitialState(c *Client) {
	data, err := json.Marshal(NewFullMessage(b.seq.Add(1), b.Status()))
	if err != nil {
		b.logger.Error("Error marshaling initial state", "error", err)
		return
	}
	b.hub.Send(c, data)
}

func (b *Broadcaster) sendFull() {
	b.broadcast(NewFullMessage(b.seq.Add(1), b.Status()))
}

func (b *Broadcaster) broadcast(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("Error marshaling message", "type", msg.Type, "error", err)
		return
	}
	b.hub.Broadcast(data)
}
