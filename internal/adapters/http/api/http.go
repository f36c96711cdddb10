// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/speakercam/internal/app"
	streamworker "github.com/okian/speakercam/internal/adapters/mq/worker"
	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/pkg/logger"
)

// Default request limits.
const (
	defaultMaxFaces     = 5
	defaultMaxLandmarks = 500
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	CreateSession(ctx context.Context) (string, error)
	CloseSession(ctx context.Context, id string) error
	ResetSession(ctx context.Context, id string) error
	SetZoomEnabled(ctx context.Context, id string, enabled bool) error
	ProcessFrame(ctx context.Context, id string, f model.Frame) (model.RenderParams, error)

	// OpenStream starts a queued session whose results go to sink.
	OpenStream(ctx context.Context, sink streamworker.Sink) (*service.Stream, error)
}

// Server wires HTTP routes for the camera API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
	streamHandler   *StreamHandler
}

// Option configures the Server.
type Option func(*serverOptions)

type serverOptions struct {
	limits limits
	logger logger.Logger
}

// WithLimits bounds the faces and landmarks accepted in one frame.
func WithLimits(maxFaces, maxLandmarks int) Option {
	return func(o *serverOptions) {
		if maxFaces > 0 {
			o.limits.maxFaces = maxFaces
		}
		if maxLandmarks > 0 {
			o.limits.maxLandmarks = maxLandmarks
		}
	}
}

// WithLogger sets the logger used by the stream handler.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{
		limits: limits{maxFaces: defaultMaxFaces, maxLandmarks: defaultMaxLandmarks},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionsHandler: NewSessionsHandler(deps, o.limits),
		streamHandler:   NewStreamHandler(deps, o.limits, o.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /sessions/stream", MetricsMiddleware(s.streamHandler.HandleStream, "stream"))
	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleClose, "sessions"))
	mux.HandleFunc("POST /sessions/{id}/reset", MetricsMiddleware(s.sessionsHandler.HandleReset, "reset"))
	mux.HandleFunc("PUT /sessions/{id}/zoom", MetricsMiddleware(s.sessionsHandler.HandleZoom, "zoom"))
	mux.HandleFunc("POST /sessions/{id}/frames", MetricsMiddleware(s.sessionsHandler.HandleFrame, "frames"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
