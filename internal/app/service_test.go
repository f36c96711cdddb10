package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/speakercam/internal/app"
	"github.com/okian/speakercam/internal/config"
	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/internal/synth"
	"github.com/okian/speakercam/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithFormat("text")); err != nil {
		panic(err)
	}
}

func talkingScene() synth.Scene {
	return synth.Scene{Faces: []synth.FaceSpec{
		{CenterX: 0.3, CenterY: 0.5, Size: 0.25, Talking: [][2]int{{0, 60}}},
		{CenterX: 0.7, CenterY: 0.5, Size: 0.25},
	}}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report itself stopped", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["sessions"], ShouldEqual, 0)
		})

		Convey("Then session calls fail until it is started", func() {
			_, err := svc.CreateSession(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.ProcessFrame(context.Background(), "x", model.Frame{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithLogger(logger.Get()))
		ctx := context.Background()

		Convey("When it is started twice and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			id, err := svc.CreateSession(ctx)
			So(err, ShouldBeNil)

			svc.Stop()
			svc.Stop()

			Convey("Then it is stopped and its sessions are gone", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.GetStats()["sessions"], ShouldEqual, 0)

				So(svc.Start(ctx), ShouldBeNil)
				defer svc.Stop()
				_, err := svc.ProcessFrame(ctx, id, model.Frame{})
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		id, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)
		So(id, ShouldNotBeBlank)
		scene := talkingScene()

		Convey("When a talking scene is submitted frame by frame", func() {
			var out model.RenderParams
			for i := 0; i < 30; i++ {
				out, err = svc.ProcessFrame(ctx, id, scene.Frame(i))
				So(err, ShouldBeNil)
			}

			Convey("Then the talker is framed", func() {
				So(out.Seq, ShouldEqual, 29)
				So(out.PerFaceSpeaking, ShouldResemble, map[int]bool{0: true, 1: false})
				So(out.Active, ShouldResemble, model.TargetOf(0))
				So(out.CameraPose.CenterX, ShouldAlmostEqual, 0.3, 1e-6)
				So(svc.GetStats()["framesProcessed"], ShouldEqual, 30)
			})

			Convey("Then a reset returns the camera to neutral", func() {
				So(svc.ResetSession(ctx, id), ShouldBeNil)
				out, err := svc.ProcessFrame(ctx, id, scene.Frame(30))
				So(err, ShouldBeNil)
				So(out.PerFaceSpeaking[0], ShouldBeFalse)
				So(out.CameraPose, ShouldResemble, model.NeutralPose)
			})

			Convey("Then turning zoom off eases back to neutral", func() {
				So(svc.SetZoomEnabled(ctx, id, false), ShouldBeNil)
				for i := 30; i < 60; i++ {
					out, err = svc.ProcessFrame(ctx, id, scene.Frame(i))
					So(err, ShouldBeNil)
				}
				So(out.PerFaceSpeaking[0], ShouldBeTrue)
				So(out.CameraPose, ShouldResemble, model.NeutralPose)
			})
		})

		Convey("When two sessions run side by side", func() {
			other, err := svc.CreateSession(ctx)
			So(err, ShouldBeNil)
			for i := 0; i < 10; i++ {
				_, err = svc.ProcessFrame(ctx, id, scene.Frame(i))
				So(err, ShouldBeNil)
			}
			out, err := svc.ProcessFrame(ctx, other, scene.Frame(10))

			Convey("Then they do not share state", func() {
				So(err, ShouldBeNil)
				So(out.PerFaceSpeaking[0], ShouldBeFalse)
				So(svc.GetStats()["sessions"], ShouldEqual, 2)
			})
		})

		Convey("When the session is closed", func() {
			So(svc.CloseSession(ctx, id), ShouldBeNil)

			Convey("Then it can no longer be used", func() {
				_, err := svc.ProcessFrame(ctx, id, scene.Frame(0))
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				So(errors.Is(svc.ResetSession(ctx, id), service.ErrSessionNotFound), ShouldBeTrue)
				So(errors.Is(svc.SetZoomEnabled(ctx, id, true), service.ErrSessionNotFound), ShouldBeTrue)
				So(errors.Is(svc.CloseSession(ctx, id), service.ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Reaper(t *testing.T) {
	Convey("Given a service with a short session TTL", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithSessionTTL(50*time.Millisecond),
			service.WithReapInterval(10*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		idle, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)
		busy, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)

		Convey("When one session goes idle", func() {
			deadline := time.Now().Add(300 * time.Millisecond)
			for time.Now().Before(deadline) {
				_, err := svc.ProcessFrame(ctx, busy, model.Frame{})
				So(err, ShouldBeNil)
				time.Sleep(5 * time.Millisecond)
			}

			Convey("Then only the idle session is expired", func() {
				_, err := svc.ProcessFrame(ctx, idle, model.Frame{})
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				_, err = svc.ProcessFrame(ctx, busy, model.Frame{})
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestNewProcessor(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := config.New()

		Convey("Then a processor can be built from it", func() {
			p, err := service.NewProcessor(cfg, logger.Nop())
			So(err, ShouldBeNil)
			So(p, ShouldNotBeNil)
		})

		Convey("Then identity tracking and absolute mode are wired", func() {
			cfg.TrackIdentity = true
			cfg.SignalMode = "absolute"
			p, err := service.NewProcessor(cfg, logger.Nop())
			So(err, ShouldBeNil)
			So(p, ShouldNotBeNil)
		})

		Convey("Then invalid tunables are reported as invalid config", func() {
			cfg.EasingStep = 0
			p, err := service.NewProcessor(cfg, logger.Nop())
			So(p, ShouldBeNil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
