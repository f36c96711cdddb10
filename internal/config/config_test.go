package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/speakercam/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			convey.So(cfg.MaxFaces, convey.ShouldEqual, 5)
			convey.So(cfg.SessionTTL, convey.ShouldEqual, 10*time.Minute)
			convey.So(cfg.SpeakOnFrames, convey.ShouldEqual, 3)
			convey.So(cfg.SpeakOffFrames, convey.ShouldEqual, 5)
			convey.So(cfg.EasingStep, convey.ShouldEqual, 0.05)
			convey.So(cfg.MaxZoomScale, convey.ShouldEqual, 2.5)
			convey.So(cfg.TargetFillRatio, convey.ShouldEqual, 0.4)
			convey.So(cfg.ZoomEnabled, convey.ShouldBeTrue)
			convey.So(cfg.TrackIdentity, convey.ShouldBeFalse)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the threshold follows the signal mode", func() {
			convey.So(cfg.Threshold(), convey.ShouldEqual, 0.005)
			cfg.SignalMode = "absolute"
			convey.So(cfg.Threshold(), convey.ShouldEqual, 0.02)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field each", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = "" },
			"log format":         func(c *config.Config) { c.LogFormat = "xml" },
			"queue size":         func(c *config.Config) { c.FrameQueueSize = 0 },
			"max faces":          func(c *config.Config) { c.MaxFaces = 0 },
			"max landmarks":      func(c *config.Config) { c.MaxLandmarks = -1 },
			"session ttl":        func(c *config.Config) { c.SessionTTL = -time.Second },
			"signal mode":        func(c *config.Config) { c.SignalMode = "audio" },
			"movement threshold": func(c *config.Config) { c.MovementThreshold = -0.1 },
			"speak on":           func(c *config.Config) { c.SpeakOnFrames = 0 },
			"speak off":          func(c *config.Config) { c.SpeakOffFrames = -2 },
			"zero easing step":   func(c *config.Config) { c.EasingStep = 0 },
			"large easing step":  func(c *config.Config) { c.EasingStep = 1.01 },
			"max zoom":           func(c *config.Config) { c.MaxZoomScale = 0.9 },
			"fill ratio":         func(c *config.Config) { c.TargetFillRatio = 0 },
			"fixed zoom":         func(c *config.Config) { c.FixedZoomScale = 3 },
			"padding":            func(c *config.Config) { c.BoxPadding = -1 },
			"selection policy":   func(c *config.Config) { c.SelectionPolicy = "loudest" },
			"track max distance": func(c *config.Config) { c.TrackIdentity = true; c.TrackMaxDistance = 0 },
		}

		convey.Convey("Then each is rejected as invalid", func() {
			for name, mutate := range cases {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				if name == "empty addr" {
					convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				}
			}
		})
	})
}
