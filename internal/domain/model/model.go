// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"math"
)

// Landmark is one normalized facial keypoint. X and Y are fractions of the
// frame width and height.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are real numbers.
func (l Landmark) Finite() bool {
	return !math.IsNaN(l.X) && !math.IsInf(l.X, 0) && !math.IsNaN(l.Y) && !math.IsInf(l.Y, 0)
}

// FaceObservation is one detected face in one frame. Slot is the face's
// position in the detector output and is not a persistent identity.
type FaceObservation struct {
	Slot      int
	Landmarks []Landmark
}

// Observations wraps raw detector output, assigning slots by list position.
func Observations(faces [][]Landmark) []FaceObservation {
	out := make([]FaceObservation, len(faces))
	for i, lm := range faces {
		out[i] = FaceObservation{Slot: i, Landmarks: lm}
	}
	return out
}

// FaceGeometry is an axis-aligned bounding box in normalized coordinates.
type FaceGeometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the box center.
func (g FaceGeometry) Center() (float64, float64) {
	return g.X + g.Width/2, g.Y + g.Height/2
}

// CameraPose is the virtual camera: a normalized center and a zoom factor (1 = unzoomed).
type CameraPose struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Scale   float64 `json:"scale"`
}

// NeutralPose frames the whole picture.
var NeutralPose = CameraPose{CenterX: 0.5, CenterY: 0.5, Scale: 1}

// Target is an optional face key. The zero value is NoTarget.
type Target struct {
	Slot int
	Set  bool
}

// NoTarget means no face is selected.
var NoTarget = Target{}

// TargetOf selects slot.
func TargetOf(slot int) Target { return Target{Slot: slot, Set: true} }

// MarshalJSON encodes NoTarget as null and a set target as its slot.
func (t Target) MarshalJSON() ([]byte, error) {
	if !t.Set {
		return []byte("null"), nil
	}
	return json.Marshal(t.Slot)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (t *Target) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = NoTarget
		return nil
	}
	var slot int
	if err := json.Unmarshal(b, &slot); err != nil {
		return err
	}
	*t = TargetOf(slot)
	return nil
}

// Frame is one detector callback worth of faces.
type Frame struct {
	Seq   uint64
	Faces []FaceObservation
}

// FaceResult is the per-face outcome of processing a frame.
type FaceResult struct {
	Slot      int          `json:"slot"`
	TrackID   int          `json:"track_id"`
	Speaking  bool         `json:"speaking"`
	Score     float64      `json:"score"`
	Geometry  FaceGeometry `json:"geometry"`
	Malformed bool         `json:"malformed,omitempty"`
}

// RenderParams is everything a renderer needs to draw one frame.
type RenderParams struct {
	Seq             uint64       `json:"seq"`
	PerFaceSpeaking map[int]bool `json:"per_face_speaking"`
	Faces           []FaceResult `json:"faces"`
	Active          Target       `json:"active_slot"`
	CameraPose      CameraPose   `json:"camera_pose"`
}
