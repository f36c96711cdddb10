package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// sample returns the value of the first series of a counter or gauge family,
// or -1 when the family is missing.
func sample(reg prometheus.Gatherer, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			return c.GetValue()
		}
		if g := m.GetGauge(); g != nil {
			return g.GetValue()
		}
		if h := m.GetHistogram(); h != nil {
			return float64(h.GetSampleCount())
		}
	}
	return -1
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("cam"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.framesProcessed.Inc()
			manager.sessionsActive.Set(3)

			Convey("Then metrics are registered under the custom names", func() {
				So(manager, ShouldNotBeNil)
				So(sample(registry, "test_cam_frames_processed_total"), ShouldEqual, 1)
				So(sample(registry, "test_cam_sessions_active"), ShouldEqual, 3)
			})

			Convey("Then custom labels are attached to every series", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				for _, mf := range families {
					for _, m := range mf.GetMetric() {
						found := false
						for _, lp := range m.GetLabel() {
							if lp.GetName() == "env" && lp.GetValue() == "test" {
								found = true
							}
						}
						So(found, ShouldBeTrue)
					}
				}
			})
		})

		Convey("When empty options are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "speakercam")
				So(manager.subsystem, ShouldEqual, "camera")
				So(manager.histogramBuckets, ShouldResemble, frameBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		reg := GetRegistry()
		So(reg, ShouldNotBeNil)

		Convey("When a frame is recorded", func() {
			frames := sample(reg, "speakercam_camera_frames_processed_total")
			faces := sample(reg, "speakercam_camera_faces_observed_total")
			RecordFrameProcessed(0.4, 3)

			Convey("Then frame and face counters advance", func() {
				So(sample(reg, "speakercam_camera_frames_processed_total"), ShouldEqual, frames+1)
				So(sample(reg, "speakercam_camera_faces_observed_total"), ShouldEqual, faces+3)
			})
		})

		Convey("When queue activity is recorded", func() {
			before := sample(reg, "speakercam_camera_queue_size")
			AddQueueSize(2)
			AddQueueSize(-1)
			So(sample(reg, "speakercam_camera_queue_size"), ShouldEqual, before+1)
			AddQueueSize(-1)

			drops := sample(reg, "speakercam_camera_queue_dropped_total")
			RecordQueueDrop()
			So(sample(reg, "speakercam_camera_queue_dropped_total"), ShouldEqual, drops+1)
		})

		Convey("When the remaining helpers are called", func() {
			So(func() {
				RecordMalformedObservation()
				RecordSpeakingTransition(true)
				RecordSpeakingTransition(false)
				RecordActiveSpeakerSwitch()
				UpdateSessionsActive(2)
				RecordSessionCreated()
				RecordSessionReaped()
				AddStreamsActive(1)
				AddStreamsActive(-1)
				UpdateQueueCapacity(64)
				RecordQueueEnqueue()
				RecordQueueDequeue(1.5)
				RecordHTTPRequest("/sessions", "POST", "201")
				RecordHTTPRequestDuration("/sessions", "POST", "201", 0.002)
				RecordErrorByComponent("api", "bad_request")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
			So(sample(reg, "speakercam_camera_sessions_active"), ShouldEqual, 2)
			So(sample(reg, "speakercam_camera_queue_capacity"), ShouldEqual, 64)
		})
	})
}
