// Package queue buffers frames between a stream reader and the worker that
// processes them.
//
// A full queue drops the incoming frame rather than blocking the reader, so a
// slow consumer sheds load instead of falling further behind the live video.
package queue

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/pkg/logger"
	"github.com/okian/speakercam/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 64
)

// Queue provides non-blocking enqueue and pull-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame to the queue.
	// Returns false if the queue is full or closed and the frame was dropped.
	Enqueue(ctx context.Context, f model.Frame) bool

	// Next blocks for the next frame. It returns io.EOF once the queue is
	// closed and drained.
	Next(ctx context.Context) (model.Frame, error)

	// Len returns the current number of queued frames.
	Len() int

	// Close stops accepting frames. Frames already queued can still be read.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

type entry struct {
	frame model.Frame
	at    time.Time
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan entry
	capacity int
	log      logger.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		log:      logger.Nop(),
	}

	for _, opt := range opts {
		opt(q)
	}

	q.frames = make(chan entry, q.capacity)
	metrics.UpdateQueueCapacity(q.capacity)

	return q
}

// Enqueue adds a frame to the queue, dropping it when the queue is full.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f model.Frame) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.frames <- entry{frame: f, at: time.Now()}:
		metrics.RecordQueueEnqueue()
		metrics.AddQueueSize(1)
		return true
	default:
		q.dropped.Add(1)
		metrics.RecordQueueDrop()
		q.log.Warn(ctx, "frame queue full, dropping frame",
			logger.Uint64("seq", f.Seq),
			logger.Int("capacity", q.capacity),
		)
		return false
	}
}

// Next returns the oldest queued frame.
func (q *InMemoryQueue) Next(ctx context.Context) (model.Frame, error) {
	select {
	case <-ctx.Done():
		return model.Frame{}, ctx.Err()
	case e, ok := <-q.frames:
		if !ok {
			return model.Frame{}, io.EOF
		}
		metrics.AddQueueSize(-1)
		metrics.RecordQueueDequeue(float64(time.Since(e.at).Microseconds()) / 1000)
		return e.frame, nil
	}
}

// Len returns the current number of queued frames.
func (q *InMemoryQueue) Len() int {
	return len(q.frames)
}

// Dropped returns how many frames were dropped because the queue was full.
func (q *InMemoryQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close stops accepting frames. Buffered frames stay readable. Closing a
// closed queue returns ErrClosed.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	close(q.frames)
	q.closed = true

	return nil
}

// Drain closes the queue and discards whatever is still buffered. It
// returns the number of frames discarded.
func (q *InMemoryQueue) Drain() int {
	_ = q.Close()
	n := 0
	for range q.frames {
		n++
	}
	metrics.AddQueueSize(-n)
	return n
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
