package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SPEAKERCAM_CONFIG is set
//  3. env (prefix SPEAKERCAM_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("SPEAKERCAM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SPEAKERCAM_EASING_STEP -> easing_step (flat keys, underscores kept)
	envProvider := env.Provider("SPEAKERCAM_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "speakercam_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would break the service or produce
// nonsensical camera motion.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.LogFormat != "json" && c.LogFormat != "text":
		return invalid("log_format must be json or text, got %q", c.LogFormat)
	case c.FrameQueueSize <= 0:
		return invalid("frame_queue_size must be positive, got %d", c.FrameQueueSize)
	case c.MaxFaces <= 0:
		return invalid("max_faces must be positive, got %d", c.MaxFaces)
	case c.MaxLandmarks <= 0:
		return invalid("max_landmarks must be positive, got %d", c.MaxLandmarks)
	case c.SessionTTL < 0:
		return invalid("session_ttl must not be negative, got %s", c.SessionTTL)
	case c.SignalMode != "delta" && c.SignalMode != "absolute":
		return invalid("signal_mode must be delta or absolute, got %q", c.SignalMode)
	case !finite(c.MovementThreshold) || c.MovementThreshold < 0:
		return invalid("movement_threshold must be a non-negative number, got %v", c.MovementThreshold)
	case !finite(c.OpeningThreshold) || c.OpeningThreshold < 0:
		return invalid("opening_threshold must be a non-negative number, got %v", c.OpeningThreshold)
	case c.SpeakOnFrames <= 0:
		return invalid("speak_on_frames must be positive, got %d", c.SpeakOnFrames)
	case c.SpeakOffFrames <= 0:
		return invalid("speak_off_frames must be positive, got %d", c.SpeakOffFrames)
	case !(c.EasingStep > 0 && c.EasingStep <= 1):
		return invalid("easing_step must be in (0,1], got %v", c.EasingStep)
	case !finite(c.MaxZoomScale) || c.MaxZoomScale < 1:
		return invalid("max_zoom_scale must be >= 1, got %v", c.MaxZoomScale)
	case !finite(c.TargetFillRatio) || c.TargetFillRatio <= 0:
		return invalid("target_fill_ratio must be positive, got %v", c.TargetFillRatio)
	case c.FixedZoomScale != 0 && !(c.FixedZoomScale >= 1 && c.FixedZoomScale <= c.MaxZoomScale):
		return invalid("fixed_zoom_scale must be 0 or in [1,%v], got %v", c.MaxZoomScale, c.FixedZoomScale)
	case !finite(c.BoxPadding) || c.BoxPadding < 0:
		return invalid("box_padding must be a non-negative number, got %v", c.BoxPadding)
	case c.SelectionPolicy != "keep_current" && c.SelectionPolicy != "lowest_slot":
		return invalid("selection_policy must be keep_current or lowest_slot, got %q", c.SelectionPolicy)
	case c.TrackIdentity && !(c.TrackMaxDistance > 0):
		return invalid("track_max_distance must be positive, got %v", c.TrackMaxDistance)
	}
	return nil
}
