package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/okian/speakercam/internal/app"
	"github.com/okian/speakercam/internal/config"
	"github.com/okian/speakercam/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("SPEAKERCAM_ADDR", ":8080")
			_ = os.Setenv("SPEAKERCAM_FRAME_QUEUE_SIZE", "128")
			_ = os.Setenv("SPEAKERCAM_SELECTION_POLICY", "lowest_slot")
			defer func() {
				_ = os.Unsetenv("SPEAKERCAM_ADDR")
				_ = os.Unsetenv("SPEAKERCAM_FRAME_QUEUE_SIZE")
				_ = os.Unsetenv("SPEAKERCAM_SELECTION_POLICY")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.FrameQueueSize, convey.ShouldEqual, 128)
				convey.So(cfg.SelectionPolicy, convey.ShouldEqual, "lowest_slot")
			})
		})

		convey.Convey("When the handler is built over a started service", func() {
			svc := app.New()
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()
			h := newHandler(config.New(), svc, logger.Nop())

			convey.Convey("Then sessions can be created", func() {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
			})

			convey.Convey("Then the API docs are served", func() {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then frame limits come from the config", func() {
				faces := strings.Repeat(`[],`, 6)
				body := `{"faces":[` + strings.TrimSuffix(faces, ",") + `]}`
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/x/frames", strings.NewReader(body)))
				convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			})
		})

		convey.Convey("When updating system metrics", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}

func TestServe(t *testing.T) {
	convey.Convey("Given a server on a free port", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		base := "http://" + ln.Addr().String()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- serve(ctx, config.New(), logger.Nop(), ln) }()

		convey.Convey("When a client uses it and the context ends", func() {
			client := &http.Client{Timeout: 2 * time.Second}

			var resp *http.Response
			deadline := time.Now().Add(2 * time.Second)
			for {
				resp, err = client.Get(base + "/healthz")
				if err == nil || time.Now().After(deadline) {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			resp, err = client.Post(base+"/sessions", "application/json", nil)
			convey.So(err, convey.ShouldBeNil)
			var created map[string]string
			convey.So(json.NewDecoder(resp.Body).Decode(&created), convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(created["session_id"], convey.ShouldNotBeBlank)

			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("serve did not return", convey.ShouldBeEmpty)
				}
			})
		})

		cancel()
	})

	convey.Convey("Given an invalid configuration", t, func() {
		cfg := config.New()
		cfg.SpeakOnFrames = 0
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = ln.Close() }()

		convey.So(serve(context.Background(), cfg, logger.Nop(), ln), convey.ShouldNotBeNil)
	})
}
