package car

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/soar/padcontrol/internal/input"
)

// Mode selects what the controller sends to the car.
type Mode string

const (
	// Basic sends an instruction only when it differs from the previous one.
	Basic Mode = "basic"
	// Advanced sends the full status on every change.
	Advanced Mode = "advanced"
	// Power sends base power vectors when they change.
	Power Mode = "power"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Basic, "":
		return Basic, nil
	case Advanced:
		return Advanced, nil
	case Power:
		return Power, nil
	default:
		return "", fmt.Errorf("unknown car mode %q", s)
	}
}

// Command is the unit handed to a Dispatcher. Exactly one of Instruction,
// Status and Power is set, depending on the mode.
type Command struct {
	Instruction Instruction  `json:"instruction,omitempty"`
	Status      input.Status `json:"status,omitempty"`
	Power       *BasePower   `json:"power,omitempty"`
	Timestamp   int64        `json:"timestamp"`
}

// Dispatcher delivers commands to the car.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Command) error
	Close() error
}

const (
	defaultQueueSize = 16
	defaultTimeout   = time.Second
)

type Config struct {
	Mode      Mode
	QueueSize int
	Timeout   time.Duration
}

// Controller consumes status updates and dispatches commands asynchronously.
// When the queue is full the oldest pending command is dropped.
type Controller struct {
	mode       Mode
	timeout    time.Duration
	dispatcher Dispatcher
	logger     *slog.Logger

	queue chan Command

	mu        sync.Mutex
	status    input.Status
	last      Instruction
	lastPower BasePower
	stale     bool // last command was dropped; resend even if unchanged
	latency   time.Duration
	dropped   int
	dispatchN int
}

func NewController(cfg Config, d Dispatcher, logger *slog.Logger) *Controller {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Mode == "" {
		cfg.Mode = Basic
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		mode:       cfg.Mode,
		timeout:    cfg.Timeout,
		dispatcher: d,
		logger:     logger,
		queue:      make(chan Command, cfg.QueueSize),
		status:     make(input.Status),
		last:       Halt,
	}
}

// Handle merges a status update and queues the resulting command, if any.
// It never blocks.
func (c *Controller) Handle(partial input.Status) {
	c.mu.Lock()
	c.status.Merge(partial)
	var cmd Command
	switch c.mode {
	case Advanced:
		cmd = Command{Status: c.status.Clone()}
	case Power:
		next := PowerFor(c.status)
		if next == c.lastPower && !c.stale {
			c.mu.Unlock()
			return
		}
		c.lastPower = next
		cmd = Command{Power: &next}
	default:
		next := Decide(c.status)
		if next == c.last && !c.stale {
			c.mu.Unlock()
			return
		}
		c.last = next
		cmd = Command{Instruction: next}
	}
	c.stale = false
	c.mu.Unlock()

	cmd.Timestamp = time.Now().UnixMilli()
	if c.enqueue(cmd) {
		return
	}
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}

// enqueue queues cmd, evicting the oldest pending command when the queue is
// full. The newest command always describes the current state.
func (c *Controller) enqueue(cmd Command) bool {
	select {
	case c.queue <- cmd:
		return true
	default:
	}

	select {
	case old := <-c.queue:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.logger.Warn("Dispatch queue full, dropping oldest command", "instruction", old.Instruction)
	default:
	}

	select {
	case c.queue <- cmd:
		return true
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.logger.Warn("Dispatch queue full, dropping command", "instruction", cmd.Instruction)
		return false
	}
}

// Run sends queued commands until ctx is done. A send in flight when ctx
// is cancelled still runs to completion or timeout; queued commands are
// left for Flush.
func (c *Controller) Run(ctx context.Context) {
	sendCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.queue:
			c.send(sendCtx, cmd)
		}
	}
}

// Flush sends every queued command. It is used on shutdown after the
// final status was handled.
func (c *Controller) Flush(ctx context.Context) {
	for {
		select {
		case cmd := <-c.queue:
			c.send(ctx, cmd)
		default:
			return
		}
	}
}

func (c *Controller) send(ctx context.Context, cmd Command) {
	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.dispatcher.Dispatch(sendCtx, cmd)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn("Dispatch failed", "instruction", cmd.Instruction, "error", err)
		return
	}

	c.mu.Lock()
	c.latency = elapsed
	c.dispatchN++
	c.mu.Unlock()
	c.logger.Debug("Dispatched", "instruction", cmd.Instruction, "latency", elapsed)
}

// Latency returns the round trip of the last successful dispatch.
func (c *Controller) Latency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency
}

// Stats returns the number of successful and dropped dispatches.
func (c *Controller) Stats() (dispatched, dropped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatchN, c.dropped
}

// LastInstruction returns the last instruction queued in basic mode.
func (c *Controller) LastInstruction() Instruction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
