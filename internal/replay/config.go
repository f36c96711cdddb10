package replay

import (
	"errors"
	"fmt"
	"time"
)

// Transport modes.
const (
	ModeHTTP      = "http"
	ModeWebSocket = "ws"
)

// Default run parameters.
const (
	DefaultSessions     = 4
	DefaultFrames       = 240
	DefaultTimeout      = 30 * time.Second
	DefaultMaxJump      = 0.1
	DefaultMinAgreement = 0.95
	DefaultSettleFrames = 6
	minFrames           = 60
)

// ErrInvalidConfig is returned for unusable run parameters.
var ErrInvalidConfig = errors.New("invalid replay config")

// Config holds configuration for a replay run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Mode         string        // http or ws
	Sessions     int           // Number of concurrent sessions
	Frames       int           // Frames per session
	Workers      int           // Sessions running at once
	Timeout      time.Duration // HTTP request timeout
	MaxJump      float64       // Largest allowed per-frame camera move
	MinAgreement float64       // Required share of frames framing the right speaker
	SettleFrames int           // Lag allowed between a speaker change and the camera following
	Verbose      bool          // Enable verbose logging
}

// Validate fills defaults and checks the run parameters.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	}
	switch c.Mode {
	case "":
		c.Mode = ModeHTTP
	case ModeHTTP, ModeWebSocket:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.Sessions <= 0 {
		c.Sessions = DefaultSessions
	}
	if c.Frames == 0 {
		c.Frames = DefaultFrames
	}
	if c.Frames < minFrames {
		return fmt.Errorf("%w: frames must be at least %d", ErrInvalidConfig, minFrames)
	}
	if c.Workers <= 0 {
		c.Workers = c.Sessions
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxJump <= 0 {
		c.MaxJump = DefaultMaxJump
	}
	if c.MinAgreement <= 0 || c.MinAgreement > 1 {
		c.MinAgreement = DefaultMinAgreement
	}
	if c.SettleFrames <= 0 {
		c.SettleFrames = DefaultSettleFrames
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	RunID          string
	Sessions       int
	FramesSent     int
	FramesAnswered int
	Switches       int
	Failed         int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	Reports        []Report
}
