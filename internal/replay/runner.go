// Package replay drives scripted multi-speaker scenes through a running
// speakercam service and checks that the camera follows the speaker.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/pkg/logger"
)

// Run executes a replay against cfg.BaseURL. The returned stats carry every
// session report; the error joins the sessions that failed.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stats := &Stats{
		RunID:     uuid.NewString(),
		Sessions:  cfg.Sessions,
		StartTime: time.Now(),
		Reports:   make([]Report, cfg.Sessions),
	}
	log := logger.Get().Named("replay")
	log.Info(ctx, "starting replay",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", cfg.BaseURL),
		logger.String("mode", cfg.Mode),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("frames", cfg.Frames),
		logger.Int("workers", cfg.Workers))

	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for k := 0; k < cfg.Sessions; k++ {
		g.Go(func() error {
			scene := BuildScene(k, cfg.Frames)
			frames := make([]model.Frame, cfg.Frames)
			for i := range frames {
				frames[i] = scene.Frame(i)
			}

			outs, err := replaySession(gctx, client, cfg.Mode, frames)
			r := Verify(scene, outs, cfg)
			r.Session = k
			if err != nil {
				r.Err = errors.Join(err, r.Err)
			}

			mu.Lock()
			stats.Reports[k] = r
			stats.FramesSent += len(frames)
			stats.FramesAnswered += len(outs)
			stats.Switches += r.Switches
			if r.Err != nil {
				stats.Failed++
			}
			mu.Unlock()

			if cfg.Verbose || r.Err != nil {
				logReport(gctx, log, r)
			}
			// session failures are reported, not fatal to the run
			return gctx.Err()
		})
	}
	waitErr := g.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if waitErr != nil {
		return stats, waitErr
	}
	var errs []error
	for _, r := range stats.Reports {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("session %d: %w", r.Session, r.Err))
		}
	}
	return stats, errors.Join(errs...)
}

func replaySession(ctx context.Context, client *HTTPClient, mode string, frames []model.Frame) ([]model.RenderParams, error) {
	if mode == ModeWebSocket {
		return client.StreamFrames(ctx, frames)
	}

	id, err := client.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := client.CloseSession(context.WithoutCancel(ctx), id); err != nil {
			logger.Get().Warn(ctx, "failed to close session", logger.String("session_id", id), logger.Error(err))
		}
	}()

	outs := make([]model.RenderParams, 0, len(frames))
	for _, f := range frames {
		out, err := client.ProcessFrame(ctx, id, f)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func logReport(ctx context.Context, log logger.Logger, r Report) {
	fields := []logger.Field{
		logger.Int("session", r.Session),
		logger.Int("frames", r.Frames),
		logger.Float64("agreement", r.Agreement),
		logger.Float64("maxJump", r.MaxJump),
		logger.Int("switches", r.Switches),
	}
	if r.Err != nil {
		log.Warn(ctx, "session failed verification", append(fields, logger.Error(r.Err))...)
		return
	}
	log.Info(ctx, "session verified", fields...)
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var framesPerSecond float64
	if stats.Duration > 0 {
		framesPerSecond = float64(stats.FramesAnswered) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.String("runID", stats.RunID),
		logger.Int("sessions", stats.Sessions),
		logger.Int("failed", stats.Failed),
		logger.Int("framesSent", stats.FramesSent),
		logger.Int("framesAnswered", stats.FramesAnswered),
		logger.Int("switches", stats.Switches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("framesPerSecond", framesPerSecond))
}
