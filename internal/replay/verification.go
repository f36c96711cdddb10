package replay

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/internal/synth"
)

// ErrVerification is returned when a session's output breaks an expectation.
var ErrVerification = errors.New("verification failed")

// Report summarizes one session's output against its script.
type Report struct {
	Session   int
	Frames    int
	Agreement float64 // share of frames framing an expected speaker
	MaxJump   float64 // largest per-frame camera move
	Switches  int     // active speaker changes
	Err       error
}

// Verify checks outs, the answers to scene frames 0..len(outs)-1, for
// ordering, smooth camera motion and speaker agreement.
func Verify(scene synth.Scene, outs []model.RenderParams, cfg *Config) Report {
	r := Report{Frames: len(outs)}
	if len(outs) == 0 {
		r.Err = fmt.Errorf("%w: no frames answered", ErrVerification)
		return r
	}

	agree := 0
	for i, out := range outs {
		if out.Seq != uint64(i) {
			r.Err = fmt.Errorf("%w: frame %d answered with seq %d", ErrVerification, i, out.Seq)
			return r
		}
		if expected(scene, i, cfg.SettleFrames, out.Active) {
			agree++
		}
		if i == 0 {
			continue
		}
		prev := outs[i-1]
		if prev.Active != out.Active {
			r.Switches++
		}
		jump := math.Max(
			math.Abs(out.CameraPose.CenterX-prev.CameraPose.CenterX),
			math.Abs(out.CameraPose.CenterY-prev.CameraPose.CenterY),
		)
		r.MaxJump = math.Max(r.MaxJump, jump)
	}
	r.Agreement = float64(agree) / float64(len(outs))

	switch {
	case r.MaxJump > cfg.MaxJump:
		r.Err = fmt.Errorf("%w: camera jumped %.3f in one frame", ErrVerification, r.MaxJump)
	case r.Agreement < cfg.MinAgreement:
		r.Err = fmt.Errorf("%w: speaker agreement %.2f below %.2f", ErrVerification, r.Agreement, cfg.MinAgreement)
	}
	return r
}

// expected reports whether active matches who the script had talking at some
// frame in [i-settle, i].
func expected(scene synth.Scene, i, settle int, active model.Target) bool {
	for j := max(0, i-settle); j <= i; j++ {
		speaker := scene.Speaker(j)
		if speaker < 0 && !active.Set {
			return true
		}
		if speaker >= 0 && active == model.TargetOf(speaker) {
			return true
		}
	}
	return false
}
