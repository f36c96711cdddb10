package service

import (
	"fmt"

	"github.com/okian/speakercam/internal/config"
	"github.com/okian/speakercam/internal/domain/frame"
	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/internal/domain/selector"
	"github.com/okian/speakercam/internal/domain/signal"
	"github.com/okian/speakercam/internal/domain/speaking"
	"github.com/okian/speakercam/internal/domain/zoom"
	"github.com/okian/speakercam/pkg/logger"
	"github.com/okian/speakercam/pkg/metrics"
)

// NewProcessor builds the frame pipeline described by cfg.
func NewProcessor(cfg *config.Config, log logger.Logger) (*frame.Processor, error) {
	ext, err := signal.New(signal.Mode(cfg.SignalMode))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	cls, err := speaking.NewClassifier(
		speaking.WithThreshold(cfg.Threshold()),
		speaking.WithSpeakOn(cfg.SpeakOnFrames),
		speaking.WithSpeakOff(cfg.SpeakOffFrames),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	sel, err := selector.New(selector.Policy(cfg.SelectionPolicy))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	ctl, err := zoom.NewController(
		zoom.WithStep(cfg.EasingStep),
		zoom.WithMaxScale(cfg.MaxZoomScale),
		zoom.WithFillRatio(cfg.TargetFillRatio),
		zoom.WithFixedScale(cfg.FixedZoomScale),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	opts := []frame.Option{
		frame.WithExtractor(ext),
		frame.WithClassifier(cls),
		frame.WithSelector(sel),
		frame.WithController(ctl),
		frame.WithPadding(cfg.BoxPadding),
		frame.WithZoomEnabled(cfg.ZoomEnabled),
		frame.WithLogger(log.Named("frame")),
		frame.WithObserver(metricsObserver{}),
	}
	if cfg.TrackIdentity {
		opts = append(opts, frame.WithIdentityTracking(cfg.TrackMaxDistance))
	}
	p, err := frame.NewProcessor(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return p, nil
}

// metricsObserver forwards pipeline state changes to Prometheus.
type metricsObserver struct{}

func (metricsObserver) SpeakingChanged(_ int, speaking bool) {
	metrics.RecordSpeakingTransition(speaking)
}

func (metricsObserver) ActiveChanged(_, _ model.Target) {
	metrics.RecordActiveSpeakerSwitch()
}

func (metricsObserver) Malformed(int, error) {
	metrics.RecordMalformedObservation()
}
