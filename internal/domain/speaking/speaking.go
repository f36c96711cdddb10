// Package speaking debounces a noisy mouth activity score into a stable
// speaking/silent classification per face.
package speaking

import (
	"fmt"
	"math"

	"github.com/okian/speakercam/internal/domain/model"
)

// Default debounce configuration constants.
const (
	DefaultSpeakOn   = 3
	DefaultSpeakOff  = 5
	DefaultThreshold = 0.005
)

// State is the per-face track state carried between frames.
type State struct {
	PreviousLandmarks []model.Landmark
	Speaking          bool
	SpeakingStreak    uint
	SilentStreak      uint
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithThreshold sets the score above which a frame counts as active.
func WithThreshold(threshold float64) Option {
	return func(c *Classifier) { c.threshold = threshold }
}

// WithSpeakOn sets how many consecutive active frames start speaking.
func WithSpeakOn(frames int) Option {
	return func(c *Classifier) { c.speakOn = frames }
}

// WithSpeakOff sets how many consecutive quiet frames end speaking.
func WithSpeakOff(frames int) Option {
	return func(c *Classifier) { c.speakOff = frames }
}

// Classifier is a two-state hysteresis machine. Starting to speak takes
// SpeakOn active frames; stopping takes SpeakOff quiet frames, so short
// closures inside a phrase do not flicker the state.
type Classifier struct {
	threshold float64
	speakOn   int
	speakOff  int
}

// NewClassifier validates and builds a Classifier.
func NewClassifier(opts ...Option) (*Classifier, error) {
	c := &Classifier{
		threshold: DefaultThreshold,
		speakOn:   DefaultSpeakOn,
		speakOff:  DefaultSpeakOff,
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.speakOn <= 0:
		return nil, fmt.Errorf("%w: speak-on streak must be positive, got %d", ErrInvalidClassifier, c.speakOn)
	case c.speakOff <= 0:
		return nil, fmt.Errorf("%w: speak-off streak must be positive, got %d", ErrInvalidClassifier, c.speakOff)
	case math.IsNaN(c.threshold) || math.IsInf(c.threshold, 0) || c.threshold < 0:
		return nil, fmt.Errorf("%w: threshold must be a non-negative number, got %v", ErrInvalidClassifier, c.threshold)
	}
	return c, nil
}

// Threshold returns the configured activity threshold.
func (c *Classifier) Threshold() float64 { return c.threshold }

// Update advances s by one frame with score and returns the new state.
// It does not touch PreviousLandmarks; the caller owns that field.
func (c *Classifier) Update(s State, score float64) State {
	if score > c.threshold {
		s.SpeakingStreak++
		s.SilentStreak = 0
		if !s.Speaking && s.SpeakingStreak >= uint(c.speakOn) {
			s.Speaking = true
		}
		return s
	}

	s.SilentStreak++
	s.SpeakingStreak = 0
	if s.Speaking && s.SilentStreak >= uint(c.speakOff) {
		s.Speaking = false
	}
	return s
}

// Transitioned reports whether the classification flipped between prev and next.
func Transitioned(prev, next State) bool {
	return prev.Speaking != next.Speaking
}
