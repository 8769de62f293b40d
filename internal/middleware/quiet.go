package middleware

import (
	"sync"
	"time"
)

// QuietCollector flushes after a quiet period (no new events for the window)
type QuietCollector[T any] struct {
	mu      sync.Mutex
	events  []T
	timer   *time.Timer
	quiet   time.Duration
	onFlush FlushFunc[T]
	closed  bool
}

// NewQuietCollector creates a new QuietCollector
func NewQuietCollector[T any](quiet time.Duration, onFlush FlushFunc[T]) *QuietCollector[T] {
	return &QuietCollector[T]{
		quiet:   quiet,
		onFlush: onFlush,
	}
}

// AddEvent adds an event and resets the quiet timer
func (c *QuietCollector[T]) AddEvent(event T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.events = append(c.events, event)

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.quiet, c.flush)
}

// flush sends accumulated events to the flush callback
func (c *QuietCollector[T]) flush() {
	c.mu.Lock()
	events := c.events
	c.events = nil
	c.mu.Unlock()

	if len(events) > 0 {
		c.onFlush(events)
	}
}

// Close stops the timer and discards pending events
func (c *QuietCollector[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.events = nil
	if c.timer != nil {
		c.timer.Stop()
	}
}
