package speaking_test

import (
	"errors"
	"testing"

	"github.com/okian/speakercam/internal/domain/speaking"
	. "github.com/smartystreets/goconvey/convey"
)

const threshold = 0.005

func run(c *speaking.Classifier, s speaking.State, scores ...float64) (speaking.State, []bool) {
	out := make([]bool, len(scores))
	for i, score := range scores {
		s = c.Update(s, score)
		out[i] = s.Speaking
	}
	return s, out
}

func TestClassifierHysteresis(t *testing.T) {
	Convey("Given the default 3/5 classifier", t, func() {
		c, err := speaking.NewClassifier(speaking.WithThreshold(threshold))
		So(err, ShouldBeNil)
		So(c.Threshold(), ShouldEqual, threshold)

		hi, lo := 0.02, 0.001

		Convey("When a silent face is active for frames 1-3 then quiet for frames 4-8", func() {
			_, states := run(c, speaking.State{}, hi, hi, hi, lo, lo, lo, lo, lo)

			Convey("Then speaking starts at frame 3 and ends at frame 8", func() {
				So(states, ShouldResemble, []bool{false, false, true, true, true, true, true, false})
			})
		})

		Convey("When a single spike is surrounded by quiet frames", func() {
			_, states := run(c, speaking.State{}, lo, lo, hi, lo, lo)

			Convey("Then the classification never flips", func() {
				So(states, ShouldResemble, []bool{false, false, false, false, false})
			})
		})

		Convey("When two active frames are interrupted before the third", func() {
			_, states := run(c, speaking.State{}, hi, hi, lo, hi, hi)
			So(states[len(states)-1], ShouldBeFalse)
		})

		Convey("When a speaker closes the mouth briefly inside a phrase", func() {
			start := speaking.State{Speaking: true}
			_, states := run(c, start, lo, lo, lo, lo, hi, lo)

			Convey("Then fewer than five quiet frames keep the speaking state", func() {
				for _, s := range states {
					So(s, ShouldBeTrue)
				}
			})
		})

		Convey("When a score equals the threshold exactly", func() {
			s, _ := run(c, speaking.State{}, threshold, threshold, threshold)

			Convey("Then it counts as quiet", func() {
				So(s.Speaking, ShouldBeFalse)
				So(s.SilentStreak, ShouldEqual, 3)
			})
		})
	})
}

func TestClassifierConvergence(t *testing.T) {
	Convey("Given any prior classification", t, func() {
		c, err := speaking.NewClassifier(speaking.WithThreshold(threshold))
		So(err, ShouldBeNil)

		priors := []speaking.State{
			{},
			{Speaking: true},
			{Speaking: true, SpeakingStreak: 9},
			{Speaking: false, SilentStreak: 40},
			{Speaking: false, SpeakingStreak: 2},
		}

		Convey("Then five quiet frames always converge to silent", func() {
			for _, p := range priors {
				s, _ := run(c, p, 0, 0, 0, 0, 0)
				So(s.Speaking, ShouldBeFalse)
			}
		})

		Convey("Then three active frames always converge to speaking", func() {
			for _, p := range priors {
				s, _ := run(c, p, 1, 1, 1)
				So(s.Speaking, ShouldBeTrue)
			}
		})
	})
}

func TestClassifierIsPure(t *testing.T) {
	Convey("Given a state value", t, func() {
		c, _ := speaking.NewClassifier()
		before := speaking.State{SpeakingStreak: 1}
		after := c.Update(before, 1)

		Convey("Then the input is untouched", func() {
			So(before.SpeakingStreak, ShouldEqual, 1)
			So(after.SpeakingStreak, ShouldEqual, 2)
			So(speaking.Transitioned(before, after), ShouldBeFalse)
		})
	})
}

func TestNewClassifierValidation(t *testing.T) {
	Convey("Given invalid debounce settings", t, func() {
		cases := [][]speaking.Option{
			{speaking.WithSpeakOn(0)},
			{speaking.WithSpeakOff(-1)},
			{speaking.WithThreshold(-0.1)},
		}

		Convey("Then construction fails descriptively", func() {
			for _, opts := range cases {
				c, err := speaking.NewClassifier(opts...)
				So(c, ShouldBeNil)
				So(errors.Is(err, speaking.ErrInvalidClassifier), ShouldBeTrue)
			}
		})
	})
}
