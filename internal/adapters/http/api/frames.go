package api

import (
	"errors"
	"fmt"

	"github.com/okian/speakercam/internal/domain/model"
)

// limits bound a single frame.
type limits struct {
	maxFaces     int
	maxLandmarks int
}

// frameRequest is one frame of detector output. Faces are listed in detector
// order; a face's index is its slot.
type frameRequest struct {
	Seq   uint64             `json:"seq"`
	Faces [][]model.Landmark `json:"faces"`
}

func (f frameRequest) validate(l limits) error {
	if len(f.Faces) > l.maxFaces {
		return fmt.Errorf("%d faces exceeds the limit of %d", len(f.Faces), l.maxFaces)
	}
	for i, face := range f.Faces {
		if len(face) > l.maxLandmarks {
			return fmt.Errorf("face %d: %d landmarks exceeds the limit of %d", i, len(face), l.maxLandmarks)
		}
		for j, lm := range face {
			if !lm.Finite() {
				return fmt.Errorf("face %d landmark %d: %w", i, j, errNonFinite)
			}
		}
	}
	return nil
}

var errNonFinite = errors.New("coordinates must be finite")

func (f frameRequest) frame() model.Frame {
	return model.Frame{Seq: f.Seq, Faces: model.Observations(f.Faces)}
}
