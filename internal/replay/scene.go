package replay

import (
	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/internal/synth"
)

// faceSize is the height of every replayed face as a share of the frame.
const faceSize = 0.22

// BuildScene returns the scripted scene for session k: two or three faces
// side by side that take turns talking, with a short silence between turns.
func BuildScene(k, frames int) synth.Scene {
	n := 2 + k%2
	turn := frames / n
	gap := turn / 5
	faces := make([]synth.FaceSpec, n)
	for j := range faces {
		faces[j] = synth.FaceSpec{
			CenterX: float64(2*j+1) / float64(2*n),
			CenterY: 0.5,
			Size:    faceSize,
			Talking: [][2]int{{j*turn + gap, (j+1)*turn - gap}},
		}
	}
	// later sessions reverse the speaking order
	if k%4 >= 2 {
		for j := range faces {
			faces[j].Talking = [][2]int{{(n-1-j)*turn + gap, (n-j)*turn - gap}}
		}
	}
	return synth.Scene{Faces: faces}
}

// wireFrame is the JSON frame accepted by the service.
type wireFrame struct {
	Seq    uint64             `json:"seq"`
	Faces  [][]model.Landmark `json:"faces,omitempty"`
	Finish bool               `json:"finish,omitempty"`
}

func toWire(f model.Frame) wireFrame {
	raw := make([][]model.Landmark, len(f.Faces))
	for i, o := range f.Faces {
		raw[i] = o.Landmarks
	}
	return wireFrame{Seq: f.Seq, Faces: raw}
}
