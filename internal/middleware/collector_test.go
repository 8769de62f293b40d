package middleware

import (
	"sync"
	"testing"
	"time"
)

type flushRecorder struct {
	mu      sync.Mutex
	batches [][]int
	flushed chan struct{}
}

func newFlushRecorder() *flushRecorder {
	return &flushRecorder{flushed: make(chan struct{}, 10)}
}

func (r *flushRecorder) onFlush(events []int) {
	r.mu.Lock()
	r.batches = append(r.batches, events)
	r.mu.Unlock()
	r.flushed <- struct{}{}
}

func (r *flushRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.flushed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush")
	}
}

func TestImmediateCollector(t *testing.T) {
	rec := newFlushRecorder()
	c := NewImmediateCollector(rec.onFlush)

	c.AddEvent(1)
	c.AddEvent(2)

	if len(rec.batches) != 2 || rec.batches[1][0] != 2 {
		t.Errorf("batches = %v, want [[1] [2]]", rec.batches)
	}
}

func TestQuietCollector_FlushesBurstOnce(t *testing.T) {
	rec := newFlushRecorder()
	c := NewQuietCollector(40*time.Millisecond, rec.onFlush)
	defer c.Close()

	for i := 1; i <= 5; i++ {
		c.AddEvent(i)
	}
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.batches) != 1 || len(rec.batches[0]) != 5 {
		t.Errorf("batches = %v, want one batch of 5", rec.batches)
	}
}

func TestIntervalCollector(t *testing.T) {
	rec := newFlushRecorder()
	c := NewIntervalCollector(30*time.Millisecond, rec.onFlush)
	defer c.Close()

	c.AddEvent(1)
	c.AddEvent(2)
	rec.wait(t)

	c.AddEvent(3)
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.batches) != 2 || len(rec.batches[0]) != 2 || rec.batches[1][0] != 3 {
		t.Errorf("batches = %v, want [[1 2] [3]]", rec.batches)
	}
}

func TestCloseDiscardsPending(t *testing.T) {
	rec := newFlushRecorder()
	c := NewQuietCollector(20*time.Millisecond, rec.onFlush)

	c.AddEvent(1)
	c.Close()
	c.AddEvent(2)

	select {
	case <-rec.flushed:
		t.Error("closed collector must not flush")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestNew_UnknownStrategy(t *testing.T) {
	if _, err := New[int]("count", time.Second, func([]int) {}); err == nil {
		t.Error("unknown strategy should fail")
	}
	c, err := New[int](StrategyQuiet, time.Second, func([]int) {})
	if err != nil {
		t.Fatalf("New quiet error: %v", err)
	}
	if _, ok := c.(*QuietCollector[int]); !ok {
		t.Errorf("New quiet returned %T", c)
	}
}
