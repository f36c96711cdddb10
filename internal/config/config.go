// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// FrameQueueSize bounds the per-stream frame queue.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// MaxFaces and MaxLandmarks bound a single frame submitted over the API.
	MaxFaces     int `koanf:"max_faces"`
	MaxLandmarks int `koanf:"max_landmarks"`

	// SessionTTL removes sessions idle for longer. Zero disables the reaper.
	SessionTTL time.Duration `koanf:"session_ttl"`

	// SignalMode is delta (frame to frame mouth movement) or absolute (mouth gap).
	SignalMode string `koanf:"signal_mode"`

	// MovementThreshold applies in delta mode, OpeningThreshold in absolute mode.
	MovementThreshold float64 `koanf:"movement_threshold"`
	OpeningThreshold  float64 `koanf:"opening_threshold"`

	// SpeakOnFrames and SpeakOffFrames debounce the speaking state.
	SpeakOnFrames  int `koanf:"speak_on_frames"`
	SpeakOffFrames int `koanf:"speak_off_frames"`

	// EasingStep is the transition progress added per frame, in (0,1].
	EasingStep float64 `koanf:"easing_step"`

	// MaxZoomScale caps the zoom; TargetFillRatio is the share of the frame
	// the framed face should fill. FixedZoomScale, when non-zero, replaces
	// the adaptive zoom.
	MaxZoomScale    float64 `koanf:"max_zoom_scale"`
	TargetFillRatio float64 `koanf:"target_fill_ratio"`
	FixedZoomScale  float64 `koanf:"fixed_zoom_scale"`

	// BoxPadding pads face boxes by this fraction of their larger side.
	BoxPadding float64 `koanf:"box_padding"`

	// SelectionPolicy is keep_current or lowest_slot.
	SelectionPolicy string `koanf:"selection_policy"`

	// TrackIdentity keys face state by nearest-centroid tracks instead of
	// detector slots. TrackMaxDistance is the match radius.
	TrackIdentity    bool    `koanf:"track_identity"`
	TrackMaxDistance float64 `koanf:"track_max_distance"`

	// ZoomEnabled is the initial zoom toggle for new sessions.
	ZoomEnabled bool `koanf:"zoom_enabled"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "json",
		Addr:              ":9080",
		FrameQueueSize:    64,
		MaxFaces:          5,
		MaxLandmarks:      500,
		SessionTTL:        10 * time.Minute,
		SignalMode:        "delta",
		MovementThreshold: 0.005,
		OpeningThreshold:  0.02,
		SpeakOnFrames:     3,
		SpeakOffFrames:    5,
		EasingStep:        0.05,
		MaxZoomScale:      2.5,
		TargetFillRatio:   0.4,
		BoxPadding:        0.15,
		SelectionPolicy:   "keep_current",
		TrackMaxDistance:  0.15,
		ZoomEnabled:       true,
	}
}

// Threshold is the speaking threshold for the configured signal mode.
func (c *Config) Threshold() float64 {
	if c.SignalMode == "absolute" {
		return c.OpeningThreshold
	}
	return c.MovementThreshold
}
