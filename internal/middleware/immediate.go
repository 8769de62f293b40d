package middleware

// ImmediateCollector flushes on every event (pass-through)
type ImmediateCollector[T any] struct {
	onFlush FlushFunc[T]
}

// NewImmediateCollector creates a new ImmediateCollector
func NewImmediateCollector[T any](onFlush FlushFunc[T]) *ImmediateCollector[T] {
	return &ImmediateCollector[T]{onFlush: onFlush}
}

// AddEvent immediately flushes the event
func (c *ImmediateCollector[T]) AddEvent(event T) {
	c.onFlush([]T{event})
}

// Close is a no-op for ImmediateCollector
func (c *ImmediateCollector[T]) Close() {}
