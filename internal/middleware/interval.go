package middleware

import (
	"sync"
	"time"
)

// IntervalCollector flushes once per interval after the first event
type IntervalCollector[T any] struct {
	mu       sync.Mutex
	events   []T
	interval time.Duration
	timer    *time.Timer
	started  bool
	closed   bool
	onFlush  FlushFunc[T]
}

// NewIntervalCollector creates a new IntervalCollector
func NewIntervalCollector[T any](interval time.Duration, onFlush FlushFunc[T]) *IntervalCollector[T] {
	return &IntervalCollector[T]{
		interval: interval,
		onFlush:  onFlush,
	}
}

// AddEvent adds an event and starts the interval timer if not already started
func (c *IntervalCollector[T]) AddEvent(event T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.events = append(c.events, event)

	if !c.started {
		c.timer = time.AfterFunc(c.interval, c.flush)
		c.started = true
	}
}

// flush sends accumulated events to the flush callback
func (c *IntervalCollector[T]) flush() {
	c.mu.Lock()
	events := c.events
	c.events = nil
	c.started = false
	c.mu.Unlock()

	if len(events) > 0 {
		c.onFlush(events)
	}
}

// Close stops the timer and discards pending events
func (c *IntervalCollector[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.events = nil
	if c.timer != nil {
		c.timer.Stop()
	}
}
