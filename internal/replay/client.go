package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/pkg/logger"
)

// wsReadLimit bounds one server message.
const wsReadLimit = 1 << 16

// HTTPClient wraps http.Client with the service's endpoints.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client with a per-request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, want int) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Health checks that the service answers its health endpoint.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// CreateSession opens a session and returns its id.
func (c *HTTPClient) CreateSession(ctx context.Context) (string, error) {
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, &resp, http.StatusCreated); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// CloseSession deletes a session.
func (c *HTTPClient) CloseSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+id, nil, nil, http.StatusNoContent)
}

// ProcessFrame submits one frame and returns its render parameters.
func (c *HTTPClient) ProcessFrame(ctx context.Context, id string, f model.Frame) (model.RenderParams, error) {
	var out model.RenderParams
	err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/frames", toWire(f), &out, http.StatusOK)
	return out, err
}

// StreamFrames sends frames over one WebSocket stream, asks the server to
// finish and returns every render message in arrival order.
func (c *HTTPClient) StreamFrames(ctx context.Context, frames []model.Frame) ([]model.RenderParams, error) {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/sessions/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(wsReadLimit)

	writeErr := make(chan error, 1)
	go func() {
		for _, f := range frames {
			if err := writeJSON(ctx, conn, toWire(f)); err != nil {
				writeErr <- err
				return
			}
		}
		writeErr <- writeJSON(ctx, conn, wireFrame{Finish: true})
	}()

	outs := make([]model.RenderParams, 0, len(frames))
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				break
			}
			return outs, fmt.Errorf("read stream: %w", err)
		}
		var msg streamReply
		if err := json.Unmarshal(data, &msg); err != nil {
			return outs, fmt.Errorf("decode render params: %w", err)
		}
		if msg.Code != "" {
			return outs, fmt.Errorf("stream rejected a frame: %s: %s", msg.Code, msg.Message)
		}
		outs = append(outs, msg.RenderParams)
	}
	if err := <-writeErr; err != nil {
		return outs, fmt.Errorf("write stream: %w", err)
	}
	return outs, nil
}

// streamReply is either render parameters or an error object.
type streamReply struct {
	model.RenderParams
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
