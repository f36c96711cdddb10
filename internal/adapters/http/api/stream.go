package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"

	streamworker "github.com/okian/speakercam/internal/adapters/mq/worker"
	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/pkg/logger"
	"github.com/okian/speakercam/pkg/metrics"
)

const (
	streamReadLimit    = 1 << 20
	streamWriteTimeout = 5 * time.Second
	streamCloseTimeout = 5 * time.Second
)

// streamMessage is one client message on the stream. A message with Finish
// set carries no frame: the server delivers everything still queued and
// closes the connection normally.
type streamMessage struct {
	frameRequest
	Finish bool `json:"finish,omitempty"`
}

// StreamHandler serves GET /sessions/stream over WebSocket.
type StreamHandler struct {
	deps   Dependencies
	limits limits
	logger logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps Dependencies, l limits, log logger.Logger) *StreamHandler {
	return &StreamHandler{deps: deps, limits: l, logger: log.Named("stream")}
}

// HandleStream upgrades the connection and runs one session for its lifetime.
// Client messages are frames; server messages are render parameters in frame
// order, or an error object for a rejected frame.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	// the connection outlives the server's request timeouts
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket accept failed", logger.Error(err))
		return
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(streamReadLimit)

	ctx := r.Context()
	sink := streamworker.SinkFunc(func(ctx context.Context, out model.RenderParams) error {
		return writeMessage(ctx, conn, out)
	})
	st, err := h.deps.OpenStream(ctx, sink)
	if err != nil {
		h.logger.Warn(ctx, "open stream failed", logger.Error(err))
		_ = conn.Close(websocket.StatusTryAgainLater, "service unavailable")
		return
	}
	log := h.logger.Named(st.ID())
	log.Debug(ctx, "stream connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			h.abort(log, st.Close, err)
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reject(ctx, conn, WrapKind(op, ErrBadRequest, err))
			continue
		}
		if msg.Finish {
			h.finish(ctx, log, conn, st.Finish)
			return
		}
		if err := msg.validate(h.limits); err != nil {
			h.reject(ctx, conn, WrapKind(op, ErrBadRequest, err))
			continue
		}

		if !st.Submit(ctx, msg.frame()) {
			select {
			case <-st.Done():
				log.Info(ctx, "stream worker stopped")
				_ = conn.Close(websocket.StatusGoingAway, "stream stopped")
				return
			default:
			}
		}
	}
}

// finish waits for queued frames to be delivered and closes normally.
func (h *StreamHandler) finish(ctx context.Context, log logger.Logger, conn *websocket.Conn, finish func(context.Context) error) {
	fctx, cancel := context.WithTimeout(ctx, streamCloseTimeout)
	defer cancel()
	if err := finish(fctx); err != nil {
		log.Warn(ctx, "stream finished with error", logger.Error(err))
		metrics.RecordErrorByComponent("stream", "delivery")
		_ = conn.Close(websocket.StatusInternalError, "delivery failed")
		return
	}
	log.Debug(ctx, "stream finished")
	_ = conn.Close(websocket.StatusNormalClosure, "finished")
}

// abort stops the stream after the client went away.
func (h *StreamHandler) abort(log logger.Logger, closeStream func(context.Context) error, readErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), streamCloseTimeout)
	defer cancel()
	if err := closeStream(ctx); err != nil {
		log.Warn(ctx, "stream close failed", logger.Error(err))
	}
	switch websocket.CloseStatus(readErr) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Debug(ctx, "stream disconnected")
	default:
		if !errors.Is(readErr, context.Canceled) {
			log.Info(ctx, "stream read failed", logger.Error(readErr))
		}
	}
}

func (h *StreamHandler) reject(ctx context.Context, conn *websocket.Conn, err error) {
	metrics.RecordErrorByComponent("stream", "bad_request")
	if werr := writeMessage(ctx, conn, errorResponse{Code: "bad_request", Message: err.Error()}); werr != nil {
		h.logger.Debug(ctx, "reject write failed", logger.Error(werr))
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}
