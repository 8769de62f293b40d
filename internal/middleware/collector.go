// Package middleware batches bursts of events (slider movements, sensor readings)
// before they reach a handler.
package middleware

import (
	"fmt"
	"time"
)

// FlushFunc is called when collector flushes events
type FlushFunc[T any] func(events []T)

// Collector accumulates events and flushes based on strategy
type Collector[T any] interface {
	AddEvent(event T)
	Close()
}

// Strategy names a flush strategy.
type Strategy string

const (
	StrategyImmediate Strategy = "immediate"
	StrategyQuiet     Strategy = "quiet"
	StrategyInterval  Strategy = "interval"
)

// New creates a collector for the strategy. window is the quiet period or the
// flush interval; it is ignored for StrategyImmediate.
func New[T any](strategy Strategy, window time.Duration, onFlush FlushFunc[T]) (Collector[T], error) {
	switch strategy {
	case StrategyImmediate, "":
		return NewImmediateCollector(onFlush), nil
	case StrategyQuiet:
		return NewQuietCollector(window, onFlush), nil
	case StrategyInterval:
		return NewIntervalCollector(window, onFlush), nil
	default:
		return nil, fmt.Errorf("unknown collector strategy %q", strategy)
	}
}
