// Package eventbus routes inbound broker messages to handlers through a bounded worker pool.
package eventbus

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType represents the type of event
type EventType string

const (
	EventTypeCommand EventType = "command" // fixture command, consumed by the lamp
	EventTypeDisplay EventType = "display" // color report, consumed by the panel
	EventTypeRoom    EventType = "room"    // room sensor reading, consumed by the lamp
)

// Default configuration
const (
	DefaultWorkerCount = 4
	DefaultQueueSize   = 100
)

// Event is a message received on a broker topic
type Event struct {
	Type       EventType
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// Handler is a function that handles events
type Handler func(Event)

type work struct {
	event   Event
	handler Handler
}

// Bus provides event routing with a bounded worker pool.
// Every event type is pinned to one worker, so events of a type reach their
// handlers in publish order and never run concurrently with each other.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler

	queues []chan work
	wg     sync.WaitGroup

	// Closing this channel signals publishers to stop
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a new event bus with default settings
func New() *Bus {
	return NewWithConfig(DefaultWorkerCount, DefaultQueueSize)
}

// NewWithConfig creates a new event bus with custom worker count and queue size
func NewWithConfig(workerCount, queueSize int) *Bus {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	b := &Bus{
		handlers: make(map[EventType][]Handler),
		queues:   make([]chan work, workerCount),
		closing:  make(chan struct{}),
	}

	for i := range b.queues {
		b.queues[i] = make(chan work, queueSize)
		b.wg.Add(1)
		go b.worker(i, b.queues[i])
	}

	log.Debug().Int("workers", workerCount).Int("queue_size", queueSize).Msg("Event bus worker pool started")
	return b
}

func (b *Bus) worker(id int, queue <-chan work) {
	defer b.wg.Done()

	for w := range queue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("event_type", string(w.event.Type)).
						Str("topic", w.event.Topic).
						Int("worker", id).
						Msg("Event handler panicked")
				}
			}()
			w.handler(w.event)
		}()
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish sends an event to all subscribed handlers.
// Non-blocking: if the work queue is full or bus is closing, events are dropped.
func (b *Bus) Publish(event Event) {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		log.Debug().Str("event_type", string(event.Type)).Str("topic", event.Topic).Msg("No handlers for event")
		return
	}

	queue := b.queueFor(event.Type)

	for _, handler := range handlers {
		select {
		case <-b.closing:
			log.Warn().Str("event_type", string(event.Type)).Msg("Event bus closing, dropping event")
			return
		default:
		}

		select {
		case queue <- work{event: event, handler: handler}:
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Str("topic", event.Topic).
				Msg("Event bus queue full, dropping event")
		}
	}
}

// queueFor returns the queue of the worker owning eventType.
func (b *Bus) queueFor(eventType EventType) chan work {
	h := fnv.New32a()
	h.Write([]byte(eventType))
	return b.queues[h.Sum32()%uint32(len(b.queues))]
}

// Close shuts down the worker pool gracefully.
// Publish must not be called concurrently with Close.
func (b *Bus) Close(ctx context.Context) {
	first := false
	b.closeOnce.Do(func() {
		close(b.closing)
		first = true
	})
	if !first {
		return
	}

	for _, q := range b.queues {
		close(q)
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Event bus workers stopped gracefully")
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}
