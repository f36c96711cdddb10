// Package synth fabricates face-mesh landmark frames for tests and the replay tool.
package synth

import (
	"math"

	"github.com/okian/speakercam/internal/domain/geometry"
	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/internal/domain/signal"
)

// MeshSize is the landmark count of a refined face mesh.
const MeshSize = 478

const (
	restingGap   = 0.004 // closed-mouth gap as a fraction of frame height
	mouthOffset  = 0.22  // mouth center below face center, in face sizes
	cornerOffset = 0.15  // corner distance from mouth center, in face sizes
)

// FaceSpec places one synthetic face.
type FaceSpec struct {
	CenterX float64
	CenterY float64
	Size    float64 // face height as a fraction of the frame
	// Talking lists half-open [start, end) frame ranges during which the mouth moves.
	Talking [][2]int
	// Amplitude is the peak extra mouth gap while talking. Zero uses 0.12*Size.
	Amplitude float64
}

// TalkingAt reports whether frame i falls into a talking window.
func (f FaceSpec) TalkingAt(i int) bool {
	for _, w := range f.Talking {
		if i >= w[0] && i < w[1] {
			return true
		}
	}
	return false
}

// Face renders a full mesh for a face at (cx, cy) with the given mouth gap.
// Points that are not part of the outline or the mouth sit at the face center.
func Face(cx, cy, size, gap float64) []model.Landmark {
	lm := make([]model.Landmark, MeshSize)
	for i := range lm {
		lm[i] = model.Landmark{X: cx, Y: cy}
	}

	n := len(geometry.FaceOutline)
	for k, idx := range geometry.FaceOutline {
		a := 2 * math.Pi * float64(k) / float64(n)
		lm[idx] = model.Landmark{
			X: cx + 0.4*size*math.Sin(a),
			Y: cy - 0.5*size*math.Cos(a),
		}
	}

	my := cy + mouthOffset*size
	for _, idx := range signal.UpperLip {
		lm[idx] = model.Landmark{X: cx, Y: my - gap/2}
	}
	for _, idx := range signal.LowerLip {
		lm[idx] = model.Landmark{X: cx, Y: my + gap/2}
	}
	lm[signal.Corners[0]] = model.Landmark{X: cx - cornerOffset*size, Y: my}
	lm[signal.Corners[1]] = model.Landmark{X: cx + cornerOffset*size, Y: my}
	return lm
}

// Scene scripts a fixed set of faces over time.
type Scene struct {
	Faces []FaceSpec
}

// Frame renders frame i of the scene. Talking faces follow a four-frame
// open/close cycle so that consecutive frames always differ.
func (s Scene) Frame(i int) model.Frame {
	raw := make([][]model.Landmark, len(s.Faces))
	for k, f := range s.Faces {
		raw[k] = Face(f.CenterX, f.CenterY, f.Size, f.gapAt(i))
	}
	return model.Frame{Seq: uint64(i), Faces: model.Observations(raw)}
}

// Speaker returns the lowest face index talking at frame i, or -1.
func (s Scene) Speaker(i int) int {
	for k, f := range s.Faces {
		if f.TalkingAt(i) {
			return k
		}
	}
	return -1
}

func (f FaceSpec) gapAt(i int) float64 {
	if !f.TalkingAt(i) {
		return restingGap
	}
	amp := f.Amplitude
	if amp == 0 {
		amp = 0.12 * f.Size
	}
	cycle := [...]float64{0, 0.5, 1, 0.5}
	return restingGap + amp*cycle[i%len(cycle)]
}
