// Package service owns camera sessions and implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	framequeue "github.com/okian/speakercam/internal/adapters/mq/queue"
	streamworker "github.com/okian/speakercam/internal/adapters/mq/worker"
	"github.com/okian/speakercam/internal/domain/frame"
	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/pkg/logger"
	"github.com/okian/speakercam/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize    = 64
	defaultSessionTTL   = 10 * time.Minute
	minReapInterval     = 10 * time.Millisecond
	maxReapInterval     = time.Minute
	streamStopTimeout   = 5 * time.Second
	nanosPerMillisecond = 1e6
)

// entry is one HTTP-driven session. mu serializes frames for the session.
type entry struct {
	mu       sync.Mutex
	session  *frame.Session
	lastUsed atomic.Int64
	closed   bool
}

func (e *entry) touch() { e.lastUsed.Store(time.Now().UnixNano()) }

// Service implements the API dependencies for the camera pipeline.
type Service struct {
	mu sync.RWMutex

	processor *frame.Processor
	sessions  map[string]*entry
	streams   map[string]*Stream

	// Configuration
	queueSize    int
	sessionTTL   time.Duration
	reapInterval time.Duration

	// State
	started bool
	ctx     context.Context //nolint:containedctx // lifetime of background workers
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	frames  atomic.Uint64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProcessor sets the frame pipeline shared by all sessions.
func WithProcessor(p *frame.Processor) Option {
	return func(s *Service) {
		if p != nil {
			s.processor = p
		}
	}
}

// WithQueueSize sets the per-stream frame queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSessionTTL sets how long an idle session lives. Zero disables expiry.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithReapInterval overrides how often idle sessions are looked for.
func WithReapInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.reapInterval = interval
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:   make(map[string]*entry),
		streams:    make(map[string]*Stream),
		queueSize:  defaultQueueSize,
		sessionTTL: defaultSessionTTL,
		logger:     logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.reapInterval == 0 {
		s.reapInterval = min(max(s.sessionTTL/2, minReapInterval), maxReapInterval)
	}

	return s
}

// Start initializes the pipeline and starts the session reaper.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.processor == nil {
		p, err := frame.NewProcessor(frame.WithLogger(s.logger.Named("frame")), frame.WithObserver(metricsObserver{}))
		if err != nil {
			return fmt.Errorf("build frame processor: %w", err)
		}
		s.processor = p
	}

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	if s.sessionTTL > 0 {
		s.wg.Add(1)
		go s.reapLoop()
	}

	s.started = true
	s.logger.Info(ctx, "camera service started",
		logger.Int("queueSize", s.queueSize),
		logger.Duration("sessionTTL", s.sessionTTL),
	)
	return nil
}

// Stop closes every session and stream and waits for background work.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	streams := make([]*Stream, 0, len(s.streams))
	for _, st := range s.streams {
		streams = append(streams, st)
	}
	for id, e := range s.sessions {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		delete(s.sessions, id)
	}
	metrics.UpdateSessionsActive(0)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), streamStopTimeout)
	defer cancel()
	for _, st := range streams {
		_ = st.Close(ctx)
	}
	s.wg.Wait()

	s.logger.Info(context.Background(), "camera service stopped")
}

// CreateSession opens a session with a neutral camera and returns its id.
func (s *Service) CreateSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return "", ErrNotStarted
	}

	id := uuid.NewString()
	e := &entry{session: s.processor.NewSession()}
	e.touch()
	s.sessions[id] = e

	metrics.RecordSessionCreated()
	metrics.UpdateSessionsActive(len(s.sessions))
	s.logger.Debug(ctx, "session created", logger.String("session_id", id))
	return id, nil
}

// CloseSession discards a session and all of its state.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		metrics.UpdateSessionsActive(len(s.sessions))
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("close %s: %w", id, ErrSessionNotFound)
	}
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	s.logger.Debug(ctx, "session closed", logger.String("session_id", id))
	return nil
}

// withSession runs fn holding the session's lock.
func (s *Service) withSession(id string, fn func(*frame.Session)) error {
	s.mu.RLock()
	started := s.started
	e, ok := s.sessions[id]
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	e.touch()
	fn(e.session)
	return nil
}

// ResetSession drops face tracks and returns the camera to neutral.
func (s *Service) ResetSession(ctx context.Context, id string) error {
	err := s.withSession(id, func(sess *frame.Session) { sess.Reset() })
	if err == nil {
		s.logger.Debug(ctx, "session reset", logger.String("session_id", id))
	}
	return err
}

// SetZoomEnabled toggles speaker framing for a session.
func (s *Service) SetZoomEnabled(ctx context.Context, id string, enabled bool) error {
	err := s.withSession(id, func(sess *frame.Session) { sess.SetZoomEnabled(enabled) })
	if err == nil {
		s.logger.Debug(ctx, "zoom toggled", logger.String("session_id", id), logger.Bool("enabled", enabled))
	}
	return err
}

// ProcessFrame runs one frame through a session. Calls for the same session
// are serialized.
func (s *Service) ProcessFrame(ctx context.Context, id string, f model.Frame) (model.RenderParams, error) {
	var out model.RenderParams
	err := s.withSession(id, func(sess *frame.Session) {
		start := time.Now()
		out = s.processor.ProcessFrame(ctx, sess, f)
		metrics.RecordFrameProcessed(float64(time.Since(start).Nanoseconds())/nanosPerMillisecond, len(f.Faces))
	})
	if err != nil {
		return model.RenderParams{}, err
	}
	s.frames.Add(1)
	return out, nil
}

// reapLoop closes sessions that have been idle longer than the TTL.
func (s *Service) reapLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.reap()
		}
	}
}

func (s *Service) reap() {
	cutoff := time.Now().Add(-s.sessionTTL).UnixNano()

	s.mu.Lock()
	var expired []string
	for id, e := range s.sessions {
		if e.lastUsed.Load() < cutoff {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	if len(expired) > 0 {
		metrics.UpdateSessionsActive(len(s.sessions))
	}
	s.mu.Unlock()

	for _, id := range expired {
		metrics.RecordSessionReaped()
		s.logger.Info(s.ctx, "idle session expired", logger.String("session_id", id))
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"started":         s.started,
		"sessions":        len(s.sessions),
		"streams":         len(s.streams),
		"queueSize":       s.queueSize,
		"sessionTTL":      s.sessionTTL.String(),
		"framesProcessed": s.frames.Load(),
	}
}

// Stream is a queued session fed by a long-lived connection. Frames are
// processed in order by a dedicated worker and delivered to the sink.
type Stream struct {
	id     string
	svc    *Service
	queue  *framequeue.InMemoryQueue
	worker *streamworker.StreamWorker
	done   chan struct{}
	err    error
	once   sync.Once
}

// OpenStream starts a stream session that delivers render parameters to sink.
func (s *Service) OpenStream(ctx context.Context, sink streamworker.Sink) (*Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, ErrNotStarted
	}

	id := uuid.NewString()
	log := s.logger.Named("stream").Named(id)
	q := framequeue.NewInMemoryQueue(
		framequeue.WithCapacity(s.queueSize),
		framequeue.WithLogger(log),
	)
	st := &Stream{
		id:    id,
		svc:   s,
		queue: q,
		worker: streamworker.NewStreamWorker(q, s.processor, s.processor.NewSession(), sink,
			streamworker.WithName(id),
			streamworker.WithLogger(s.logger.Named("stream")),
		),
		done: make(chan struct{}),
	}
	s.streams[id] = st

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(st.done)
		st.err = st.worker.Run(s.ctx)
		s.frames.Add(st.worker.Processed())
	}()

	metrics.AddStreamsActive(1)
	log.Debug(ctx, "stream opened")
	return st, nil
}

// ID returns the stream's session id.
func (st *Stream) ID() string { return st.id }

// Submit queues a frame. It returns false if the frame was dropped.
func (st *Stream) Submit(ctx context.Context, f model.Frame) bool {
	return st.queue.Enqueue(ctx, f)
}

// Dropped returns how many frames were dropped on a full queue.
func (st *Stream) Dropped() uint64 { return st.queue.Dropped() }

// Done is closed once the stream's worker has stopped.
func (st *Stream) Done() <-chan struct{} { return st.done }

// Finish stops accepting frames, waits for the queued ones to be delivered
// and releases the stream.
func (st *Stream) Finish(ctx context.Context) error {
	_ = st.queue.Close()
	select {
	case <-st.done:
	case <-ctx.Done():
		if err := st.worker.Shutdown(context.WithoutCancel(ctx)); err != nil {
			st.release()
			return err
		}
		<-st.done
	}
	st.release()
	return st.err
}

// Close stops the stream immediately, discarding queued frames.
func (st *Stream) Close(ctx context.Context) error {
	if err := st.worker.Shutdown(ctx); err != nil {
		st.release()
		return err
	}
	<-st.done
	st.release()
	return st.err
}

func (st *Stream) release() {
	st.once.Do(func() {
		st.svc.mu.Lock()
		delete(st.svc.streams, st.id)
		st.svc.mu.Unlock()
		metrics.AddStreamsActive(-1)
	})
}
