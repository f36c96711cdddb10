// Package frame runs the per-frame pipeline: landmarks to activity score to
// speaking state to active speaker to camera pose.
package frame

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/okian/speakercam/internal/domain/geometry"
	"github.com/okian/speakercam/internal/domain/identity"
	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/internal/domain/selector"
	"github.com/okian/speakercam/internal/domain/signal"
	"github.com/okian/speakercam/internal/domain/speaking"
	"github.com/okian/speakercam/internal/domain/zoom"
	"github.com/okian/speakercam/pkg/logger"
)

// Observer is notified of state changes while frames are processed.
type Observer interface {
	SpeakingChanged(key int, speaking bool)
	ActiveChanged(from, to model.Target)
	Malformed(slot int, err error)
}

type nopObserver struct{}

func (nopObserver) SpeakingChanged(int, bool)               {}
func (nopObserver) ActiveChanged(model.Target, model.Target) {}
func (nopObserver) Malformed(int, error)                     {}

// Option applies a configuration option to the Processor.
type Option func(*Processor)

// WithExtractor sets the mouth activity extractor.
func WithExtractor(e signal.Extractor) Option {
	return func(p *Processor) { p.extractor = e }
}

// WithClassifier sets the speaking classifier.
func WithClassifier(c *speaking.Classifier) Option {
	return func(p *Processor) { p.classifier = c }
}

// WithSelector sets the active speaker selector.
func WithSelector(s *selector.Selector) Option {
	return func(p *Processor) { p.selector = s }
}

// WithController sets the zoom transition controller.
func WithController(c *zoom.Controller) Option {
	return func(p *Processor) { p.controller = c }
}

// WithPadding sets the bounding box padding as a fraction of the larger side.
func WithPadding(padding float64) Option {
	return func(p *Processor) { p.padding = padding }
}

// WithIdentityTracking keys face state by tracked identity instead of slot.
// Non-positive maxDistance uses identity.DefaultMaxDistance.
func WithIdentityTracking(maxDistance float64) Option {
	return func(p *Processor) {
		p.trackIdentity = true
		p.maxDistance = maxDistance
	}
}

// WithZoomEnabled sets the zoom toggle for new sessions.
func WithZoomEnabled(enabled bool) Option {
	return func(p *Processor) { p.zoomEnabled = enabled }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Processor) { p.log = l }
}

// WithObserver sets the state change observer.
func WithObserver(o Observer) Option {
	return func(p *Processor) { p.observer = o }
}

// Processor is stateless; everything carried between frames lives in a Session.
type Processor struct {
	extractor     signal.Extractor
	classifier    *speaking.Classifier
	selector      *selector.Selector
	controller    *zoom.Controller
	padding       float64
	trackIdentity bool
	maxDistance   float64
	zoomEnabled   bool
	log           logger.Logger
	observer      Observer
}

// NewProcessor builds a Processor. Components not supplied use their defaults.
func NewProcessor(opts ...Option) (*Processor, error) {
	p := &Processor{
		padding:     geometry.DefaultPadding,
		zoomEnabled: true,
		log:         logger.Nop(),
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if math.IsNaN(p.padding) || math.IsInf(p.padding, 0) || p.padding < 0 {
		return nil, fmt.Errorf("%w: padding must be a non-negative number, got %v", ErrInvalidProcessor, p.padding)
	}
	if p.log == nil || p.observer == nil {
		return nil, fmt.Errorf("%w: nil logger or observer", ErrInvalidProcessor)
	}

	var err error
	if p.extractor == nil {
		p.extractor = signal.NewDeltaExtractor()
	}
	if p.classifier == nil {
		if p.classifier, err = speaking.NewClassifier(); err != nil {
			return nil, err
		}
	}
	if p.selector == nil {
		if p.selector, err = selector.New(selector.PolicyKeepCurrent); err != nil {
			return nil, err
		}
	}
	if p.controller == nil {
		if p.controller, err = zoom.NewController(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewSession creates an empty session with a neutral camera.
func (p *Processor) NewSession() *Session {
	var tracker *identity.Tracker
	if p.trackIdentity {
		tracker = identity.NewTracker(p.maxDistance)
	}
	return newSession(tracker, p.zoomEnabled)
}

// ProcessFrame processes f and stamps the result with its sequence number.
func (p *Processor) ProcessFrame(ctx context.Context, s *Session, f model.Frame) model.RenderParams {
	out := p.Process(ctx, s, f.Faces)
	out.Seq = f.Seq
	return out
}

// Process advances s by one frame of faces and returns what to render. A
// malformed face keeps its previous classification and stored landmarks and
// does not affect the other faces. State for faces missing from this frame
// is dropped.
func (p *Processor) Process(ctx context.Context, s *Session, faces []model.FaceObservation) model.RenderParams {
	s.frames++

	bySlot := make(map[int]model.FaceGeometry, len(faces))
	for _, face := range faces {
		if g, ok := geometry.BoundingBox(face.Landmarks, p.padding); ok {
			bySlot[face.Slot] = g
		}
	}

	keyOf := func(slot int) (int, bool) { return slot, true }
	if s.tracker != nil {
		ids := s.tracker.Assign(bySlot)
		keyOf = func(slot int) (int, bool) {
			id, ok := ids[slot]
			return id, ok
		}
	}

	out := model.RenderParams{
		Seq:             s.frames,
		PerFaceSpeaking: make(map[int]bool, len(faces)),
		Faces:           make([]model.FaceResult, 0, len(faces)),
	}
	tracks := make(map[int]speaking.State, len(faces))
	speakingByKey := make(map[int]bool, len(faces))
	geomByKey := make(map[int]model.FaceGeometry, len(faces))
	slotByKey := make(map[int]int, len(faces))

	for _, face := range faces {
		res := model.FaceResult{Slot: face.Slot, TrackID: -1, Geometry: bySlot[face.Slot]}
		key, tracked := keyOf(face.Slot)
		if !tracked {
			// no landmarks to place the face with
			res.Malformed = true
			p.malformed(ctx, face.Slot, signal.ErrMalformedObservation)
			out.PerFaceSpeaking[face.Slot] = false
			out.Faces = append(out.Faces, res)
			continue
		}
		if s.tracker != nil {
			res.TrackID = key
		}

		prev, seen := s.tracks[key]
		score, err := p.extractor.Score(face.Landmarks, prev.PreviousLandmarks)
		if err != nil {
			res.Malformed = true
			res.Speaking = prev.Speaking
			p.malformed(ctx, face.Slot, err)
			if seen {
				tracks[key] = prev
			}
		} else {
			next := p.classifier.Update(prev, score)
			next.PreviousLandmarks = slices.Clone(face.Landmarks)
			if speaking.Transitioned(prev, next) {
				p.log.Debug(ctx, "speaking state changed",
					logger.Int("key", key),
					logger.Int("slot", face.Slot),
					logger.Bool("speaking", next.Speaking),
				)
				p.observer.SpeakingChanged(key, next.Speaking)
			}
			tracks[key] = next
			res.Speaking = next.Speaking
			res.Score = score
		}

		out.PerFaceSpeaking[face.Slot] = res.Speaking
		out.Faces = append(out.Faces, res)
		speakingByKey[key] = res.Speaking
		slotByKey[key] = face.Slot
		if g, ok := bySlot[face.Slot]; ok {
			geomByKey[key] = g
		}
	}
	s.tracks = tracks
	sort.Slice(out.Faces, func(i, j int) bool { return out.Faces[i].Slot < out.Faces[j].Slot })

	active := p.selector.Select(s.active, speakingByKey, geomByKey)
	if active != s.active {
		p.log.Debug(ctx, "active speaker changed",
			logger.Any("from", s.active),
			logger.Any("to", active),
		)
		p.observer.ActiveChanged(s.active, active)
		s.active = active
	}

	ref, pose := model.NoTarget, model.NeutralPose
	if s.zoomEnabled && active.Set {
		ref, pose = active, p.controller.PoseFor(geomByKey[active.Slot])
	}
	s.zoom = p.controller.Retarget(s.zoom, ref, pose)
	out.CameraPose, s.zoom = p.controller.Tick(s.zoom)

	if active.Set {
		out.Active = model.TargetOf(slotByKey[active.Slot])
	}
	return out
}

func (p *Processor) malformed(ctx context.Context, slot int, err error) {
	p.log.Warn(ctx, "malformed face observation", logger.Int("slot", slot), logger.Error(err))
	p.observer.Malformed(slot, err)
}
