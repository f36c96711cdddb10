// Package zoom animates the virtual camera toward the active speaker with an
// eased transition that never jumps, even when the target changes mid-flight.
package zoom

import (
	"fmt"
	"math"

	"github.com/okian/speakercam/internal/domain/model"
)

// Default transition configuration constants.
const (
	DefaultStep      = 0.05 // ~20 ticks per transition at one tick per frame
	DefaultMaxScale  = 2.5
	DefaultFillRatio = 0.4
	minScale         = 1.0
)

// State is the transition state. TargetRef identifies which face the target
// pose belongs to, so retargeting compares faces rather than poses.
type State struct {
	Progress  float64
	Start     model.CameraPose
	Target    model.CameraPose
	TargetRef model.Target
}

// InitialState is a converged, unzoomed camera.
func InitialState() State {
	return State{
		Progress: 1,
		Start:    model.NeutralPose,
		Target:   model.NeutralPose,
	}
}

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithStep sets the progress added per tick.
func WithStep(step float64) Option {
	return func(c *Controller) { c.step = step }
}

// WithMaxScale caps the zoom factor.
func WithMaxScale(scale float64) Option {
	return func(c *Controller) { c.maxScale = scale }
}

// WithFillRatio sets the fraction of the frame the target face should fill.
func WithFillRatio(ratio float64) Option {
	return func(c *Controller) { c.fillRatio = ratio }
}

// WithFixedScale replaces the adaptive zoom with a constant factor. Zero
// keeps the adaptive formula.
func WithFixedScale(scale float64) Option {
	return func(c *Controller) { c.fixedScale = scale }
}

// Controller holds the transition tunables. All methods are pure over State.
type Controller struct {
	step       float64
	maxScale   float64
	fillRatio  float64
	fixedScale float64
}

// NewController validates and builds a Controller.
func NewController(opts ...Option) (*Controller, error) {
	c := &Controller{
		step:      DefaultStep,
		maxScale:  DefaultMaxScale,
		fillRatio: DefaultFillRatio,
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case !(c.step > 0 && c.step <= 1):
		return nil, fmt.Errorf("%w: easing step must be in (0,1], got %v", ErrInvalidController, c.step)
	case !(c.maxScale >= minScale) || math.IsInf(c.maxScale, 0):
		return nil, fmt.Errorf("%w: max scale must be >= 1, got %v", ErrInvalidController, c.maxScale)
	case !(c.fillRatio > 0) || math.IsInf(c.fillRatio, 0):
		return nil, fmt.Errorf("%w: fill ratio must be positive, got %v", ErrInvalidController, c.fillRatio)
	case c.fixedScale != 0 && !(c.fixedScale >= minScale && c.fixedScale <= c.maxScale):
		return nil, fmt.Errorf("%w: fixed scale must be in [1,%v], got %v", ErrInvalidController, c.maxScale, c.fixedScale)
	}
	return c, nil
}

// PoseFor frames g: its center, zoomed so the larger side fills FillRatio of
// the frame, clamped to [1, MaxScale].
func (c *Controller) PoseFor(g model.FaceGeometry) model.CameraPose {
	cx, cy := g.Center()
	scale := c.fixedScale
	if scale == 0 {
		side := math.Max(g.Width, g.Height)
		scale = c.maxScale
		if side > 0 {
			scale = math.Min(c.maxScale, c.fillRatio/side)
		}
		scale = math.Max(minScale, scale)
	}
	return model.CameraPose{CenterX: cx, CenterY: cy, Scale: scale}
}

// Retarget points the camera at ref. Retargeting to the face already
// targeted is a no-op. Otherwise the transition restarts from the pose
// currently on screen. NoTarget goes back to the neutral pose and pose is
// ignored.
func (c *Controller) Retarget(s State, ref model.Target, pose model.CameraPose) State {
	if ref == s.TargetRef {
		return s
	}
	if !ref.Set {
		pose = model.NeutralPose
	}
	return State{
		Progress:  0,
		Start:     Current(s),
		Target:    pose,
		TargetRef: ref,
	}
}

// Tick advances the transition by one step and returns the pose to render.
func (c *Controller) Tick(s State) (model.CameraPose, State) {
	s.Progress = math.Min(1, s.Progress+c.step)
	return Current(s), s
}

// Current is the pose at the state's progress without advancing it.
func Current(s State) model.CameraPose {
	if s.Progress >= 1 {
		return s.Target
	}
	e := Ease(s.Progress)
	return model.CameraPose{
		CenterX: lerp(s.Start.CenterX, s.Target.CenterX, e),
		CenterY: lerp(s.Start.CenterY, s.Target.CenterY, e),
		Scale:   lerp(s.Start.Scale, s.Target.Scale, e),
	}
}

// Ease is quadratic ease-in-out over [0,1].
func Ease(p float64) float64 {
	p = math.Max(0, math.Min(1, p))
	if p < 0.5 {
		return 2 * p * p
	}
	q := 1 - p
	return 1 - 2*q*q
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
