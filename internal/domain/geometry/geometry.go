// Package geometry derives face bounding boxes from face-mesh landmarks.
package geometry

import (
	"math"

	"github.com/okian/speakercam/internal/domain/model"
)

// DefaultPadding grows the box by this fraction of its larger side on every edge.
const DefaultPadding = 0.15

// FaceOutline lists the face-mesh indices on the face perimeter.
var FaceOutline = []int{
	10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288,
	397, 365, 379, 378, 400, 377, 152, 148, 176, 149, 150, 136,
	172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
}

// BoundingBox returns the padded box around the face outline, clamped to the
// frame. When none of the outline indices exist (truncated meshes) every
// landmark is used instead. ok is false for an empty landmark list.
func BoundingBox(landmarks []model.Landmark, padding float64) (model.FaceGeometry, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	n := 0

	visit := func(l model.Landmark) {
		minX = math.Min(minX, l.X)
		minY = math.Min(minY, l.Y)
		maxX = math.Max(maxX, l.X)
		maxY = math.Max(maxY, l.Y)
		n++
	}

	for _, idx := range FaceOutline {
		if idx < len(landmarks) {
			visit(landmarks[idx])
		}
	}
	if n == 0 {
		for _, l := range landmarks {
			visit(l)
		}
	}
	if n == 0 {
		return model.FaceGeometry{}, false
	}

	pad := math.Max(maxX-minX, maxY-minY) * padding
	x0 := clamp01(minX - pad)
	y0 := clamp01(minY - pad)
	x1 := clamp01(maxX + pad)
	y1 := clamp01(maxY + pad)

	return model.FaceGeometry{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
