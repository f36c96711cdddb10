package worker

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/speakercam/internal/domain/frame"
	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/pkg/logger"
	"github.com/okian/speakercam/pkg/metrics"
)

// Queue is where the worker pulls frames from.
type Queue interface {
	frame.Source
	// Drain discards frames left behind when the worker stops.
	Drain() int
}

// Streamer turns a frame source into render parameters.
type Streamer interface {
	Stream(ctx context.Context, s *frame.Session, src frame.Source) iter.Seq2[model.RenderParams, error]
}

// Sink receives render parameters in frame order.
type Sink interface {
	Deliver(ctx context.Context, out model.RenderParams) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, out model.RenderParams) error

// Deliver implements Sink.
func (f SinkFunc) Deliver(ctx context.Context, out model.RenderParams) error { return f(ctx, out) }

// StreamWorker processes one stream's frames, one at a time and in order.
// The session belongs to the worker while it runs.
type StreamWorker struct {
	queue     Queue
	processor Streamer
	session   *frame.Session
	sink      Sink
	name      string

	processed atomic.Uint64

	// Shutdown control
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewStreamWorker creates a worker with configuration options.
func NewStreamWorker(q Queue, p Streamer, s *frame.Session, sink Sink, opts ...Option) *StreamWorker {
	w := &StreamWorker{
		queue:     q,
		processor: p,
		session:   s,
		sink:      sink,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)

	return w
}

// stampedSource records when each frame left the queue so processing
// latency excludes time spent waiting for input.
type stampedSource struct {
	src frame.Source
	at  time.Time
}

func (s *stampedSource) Next(ctx context.Context) (model.Frame, error) {
	f, err := s.src.Next(ctx)
	s.at = time.Now()
	return f, err
}

// Run processes frames until the queue is exhausted, ctx is canceled, or
// Shutdown is called. It returns nil in all three cases. A sink or source
// failure stops the worker and is returned.
func (w *StreamWorker) Run(ctx context.Context) error {
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	defer func() {
		if n := w.queue.Drain(); n > 0 {
			w.logger.Debug(ctx, "discarded queued frames", logger.Int("count", n))
		}
	}()

	src := &stampedSource{src: w.queue}
	for out, err := range w.processor.Stream(ctx, w.session, src) {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			metrics.RecordErrorByComponent("worker", "source")
			w.logger.Error(ctx, "frame source failed", logger.Error(err))
			return fmt.Errorf("worker %s: %w", w.name, err)
		}
		metrics.RecordFrameProcessed(float64(time.Since(src.at).Microseconds())/1000, len(out.Faces))
		w.processed.Add(1)

		if err := w.sink.Deliver(ctx, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.RecordErrorByComponent("worker", "sink")
			w.logger.Warn(ctx, "delivering render params failed",
				logger.Uint64("seq", out.Seq),
				logger.Error(err),
			)
			return fmt.Errorf("worker %s: deliver: %w", w.name, err)
		}
	}
	return nil
}

// Processed returns how many frames the worker has processed.
func (w *StreamWorker) Processed() uint64 { return w.processed.Load() }

// Done is closed when Run returns.
func (w *StreamWorker) Done() <-chan struct{} { return w.done }

// Shutdown stops the worker and waits for Run to return.
func (w *StreamWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
