package model_test

import (
	"encoding/json"
	"math"
	"testing"

	model "github.com/okian/speakercam/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestObservations(t *testing.T) {
	convey.Convey("Given raw detector output with three faces", t, func() {
		raw := [][]model.Landmark{
			{{X: 0.1, Y: 0.1}},
			{{X: 0.5, Y: 0.5}},
			{{X: 0.9, Y: 0.9}},
		}

		convey.Convey("When wrapping it into observations", func() {
			obs := model.Observations(raw)

			convey.Convey("Then slots follow list position", func() {
				convey.So(obs, convey.ShouldHaveLength, 3)
				for i, o := range obs {
					convey.So(o.Slot, convey.ShouldEqual, i)
					convey.So(o.Landmarks, convey.ShouldResemble, raw[i])
				}
			})
		})

		convey.Convey("When wrapping an empty frame", func() {
			convey.So(model.Observations(nil), convey.ShouldBeEmpty)
		})
	})
}

func TestLandmarkFinite(t *testing.T) {
	convey.Convey("Given landmarks with odd coordinates", t, func() {
		convey.So(model.Landmark{X: 0.2, Y: 0.3}.Finite(), convey.ShouldBeTrue)
		convey.So(model.Landmark{X: math.NaN(), Y: 0.3}.Finite(), convey.ShouldBeFalse)
		convey.So(model.Landmark{X: 0.2, Y: math.Inf(1)}.Finite(), convey.ShouldBeFalse)
	})
}

func TestFaceGeometryCenter(t *testing.T) {
	convey.Convey("Given a face box", t, func() {
		g := model.FaceGeometry{X: 0.2, Y: 0.4, Width: 0.2, Height: 0.1}
		cx, cy := g.Center()
		convey.So(cx, convey.ShouldAlmostEqual, 0.3)
		convey.So(cy, convey.ShouldAlmostEqual, 0.45)
	})
}

func TestTargetJSON(t *testing.T) {
	convey.Convey("Given render params", t, func() {
		convey.Convey("When no face is active", func() {
			b, err := json.Marshal(model.RenderParams{Active: model.NoTarget})
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldContainSubstring, `"active_slot":null`)
		})

		convey.Convey("When slot 2 is active", func() {
			b, err := json.Marshal(model.RenderParams{Active: model.TargetOf(2)})
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldContainSubstring, `"active_slot":2`)

			var back model.RenderParams
			convey.So(json.Unmarshal(b, &back), convey.ShouldBeNil)
			convey.So(back.Active, convey.ShouldResemble, model.TargetOf(2))
		})
	})
}
