// Package signal turns a face's mouth landmarks into a scalar activity score.
package signal

import (
	"fmt"
	"math"

	"github.com/okian/speakercam/internal/domain/model"
)

// Mode selects how mouth activity is measured.
type Mode string

const (
	// ModeDelta scores frame-to-frame change of the mouth opening and corner drift.
	ModeDelta Mode = "delta"
	// ModeAbsolute scores the current mouth gap alone.
	ModeAbsolute Mode = "absolute"
)

// Default weights for the delta score.
const (
	defaultVerticalWeight   = 3.0
	defaultHorizontalWeight = 1.0
)

// Face-mesh indices used by the extractor.
var (
	UpperLip = []int{13, 14, 312}
	LowerLip = []int{17, 15, 16}
	Corners  = []int{61, 291}
)

// Extractor computes a non-negative mouth activity score.
type Extractor interface {
	// Score measures current against previous. previous may be nil.
	Score(current, previous []model.Landmark) (float64, error)
	// Mode reports which measurement the extractor uses.
	Mode() Mode
	// RequiresHistory is true when the score depends on the previous frame.
	RequiresHistory() bool
}

// Option applies a configuration option to the delta extractor.
type Option func(*DeltaExtractor)

// WithVerticalWeight scales the opening change term.
func WithVerticalWeight(w float64) Option {
	return func(e *DeltaExtractor) {
		if w >= 0 {
			e.verticalWeight = w
		}
	}
}

// WithHorizontalWeight scales the corner drift term.
func WithHorizontalWeight(w float64) Option {
	return func(e *DeltaExtractor) {
		if w >= 0 {
			e.horizontalWeight = w
		}
	}
}

// New returns the extractor for mode.
func New(mode Mode, opts ...Option) (Extractor, error) {
	switch mode {
	case ModeDelta, "":
		return NewDeltaExtractor(opts...), nil
	case ModeAbsolute:
		return AbsoluteExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// DeltaExtractor scores movement between consecutive frames.
type DeltaExtractor struct {
	verticalWeight   float64
	horizontalWeight float64
}

// NewDeltaExtractor creates a delta extractor with the default 3:1 weighting.
func NewDeltaExtractor(opts ...Option) *DeltaExtractor {
	e := &DeltaExtractor{
		verticalWeight:   defaultVerticalWeight,
		horizontalWeight: defaultHorizontalWeight,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode implements Extractor.
func (e *DeltaExtractor) Mode() Mode { return ModeDelta }

// RequiresHistory implements Extractor.
func (e *DeltaExtractor) RequiresHistory() bool { return true }

// Score implements Extractor. The first sighting of a face scores 0.
func (e *DeltaExtractor) Score(current, previous []model.Landmark) (float64, error) {
	cur, err := Opening(current)
	if err != nil {
		return 0, err
	}
	if len(previous) == 0 {
		return 0, nil
	}
	prev, err := Opening(previous)
	if err != nil {
		// A broken history frame is no history at all.
		return 0, nil //nolint:nilerr // previous frame is advisory
	}

	vertical := math.Abs(cur - prev)

	horizontal := 0.0
	for _, idx := range Corners {
		if idx < len(current) && idx < len(previous) {
			horizontal += math.Abs(current[idx].X - previous[idx].X)
		}
	}

	return e.verticalWeight*vertical + e.horizontalWeight*horizontal, nil
}

// AbsoluteExtractor scores the current mouth gap and keeps no history.
type AbsoluteExtractor struct{}

// Mode implements Extractor.
func (AbsoluteExtractor) Mode() Mode { return ModeAbsolute }

// RequiresHistory implements Extractor.
func (AbsoluteExtractor) RequiresHistory() bool { return false }

// Score implements Extractor.
func (AbsoluteExtractor) Score(current, _ []model.Landmark) (float64, error) {
	return Opening(current)
}

// Opening is the vertical gap between the mean lower-lip and mean upper-lip
// heights. Missing indices are skipped; a group with no index present yields
// ErrMalformedObservation.
func Opening(lm []model.Landmark) (float64, error) {
	upper, ok := meanY(lm, UpperLip)
	if !ok {
		return 0, fmt.Errorf("%w: upper lip missing (%d landmarks)", ErrMalformedObservation, len(lm))
	}
	lower, ok := meanY(lm, LowerLip)
	if !ok {
		return 0, fmt.Errorf("%w: lower lip missing (%d landmarks)", ErrMalformedObservation, len(lm))
	}
	return math.Abs(lower - upper), nil
}

func meanY(lm []model.Landmark, indices []int) (float64, bool) {
	sum, n := 0.0, 0
	for _, idx := range indices {
		if idx < len(lm) {
			sum += lm[idx].Y
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
