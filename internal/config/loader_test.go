package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/speakercam/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SPEAKERCAM_ADDR", ":8080")
			_ = os.Setenv("SPEAKERCAM_SPEAK_ON_FRAMES", "4")
			_ = os.Setenv("SPEAKERCAM_EASING_STEP", "0.1")
			_ = os.Setenv("SPEAKERCAM_SESSION_TTL", "30s")
			_ = os.Setenv("SPEAKERCAM_ZOOM_ENABLED", "false")
			_ = os.Setenv("SPEAKERCAM_SIGNAL_MODE", "absolute")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SpeakOnFrames, convey.ShouldEqual, 4)
				convey.So(cfg.EasingStep, convey.ShouldEqual, 0.1)
				convey.So(cfg.SessionTTL, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.ZoomEnabled, convey.ShouldBeFalse)
				convey.So(cfg.Threshold(), convey.ShouldEqual, 0.02)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# camera tuning for a wide conference room
addr: ":9090"
max_zoom_scale: 2.0
target_fill_ratio: 0.3
selection_policy: lowest_slot
track_identity: true
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SPEAKERCAM_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MaxZoomScale, convey.ShouldEqual, 2.0)
				convey.So(cfg.TargetFillRatio, convey.ShouldEqual, 0.3)
				convey.So(cfg.SelectionPolicy, convey.ShouldEqual, "lowest_slot")
				convey.So(cfg.TrackIdentity, convey.ShouldBeTrue)
				convey.So(cfg.SpeakOffFrames, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
speak_off_frames: 8
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SPEAKERCAM_CONFIG", tmpFile)
			_ = os.Setenv("SPEAKERCAM_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SpeakOffFrames, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SPEAKERCAM_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SPEAKERCAM_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SPEAKERCAM_SPEAK_ON_FRAMES", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When an easing step of zero would freeze the camera", func() {
			_ = os.Setenv("SPEAKERCAM_EASING_STEP", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "easing_step")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a YAML file blanks the addr", func() {
			tmpFile := createTempConfigFile("addr: \"\"\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SPEAKERCAM_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return validation error for empty addr", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SPEAKERCAM_CONFIG",
		"SPEAKERCAM_ADDR",
		"SPEAKERCAM_SPEAK_ON_FRAMES",
		"SPEAKERCAM_EASING_STEP",
		"SPEAKERCAM_SESSION_TTL",
		"SPEAKERCAM_ZOOM_ENABLED",
		"SPEAKERCAM_SIGNAL_MODE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "speakercam-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
