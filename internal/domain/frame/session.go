package frame

import (
	"github.com/okian/speakercam/internal/domain/identity"
	"github.com/okian/speakercam/internal/domain/model"
	"github.com/okian/speakercam/internal/domain/speaking"
	"github.com/okian/speakercam/internal/domain/zoom"
)

// Session is the state one video session carries between frames. It is not
// safe for concurrent use; callers serialize frames per session.
type Session struct {
	tracks      map[int]speaking.State
	zoom        zoom.State
	active      model.Target
	tracker     *identity.Tracker
	zoomEnabled bool
	frames      uint64
}

func newSession(tracker *identity.Tracker, zoomEnabled bool) *Session {
	s := &Session{tracker: tracker, zoomEnabled: zoomEnabled}
	s.Reset()
	return s
}

// Reset drops every face track and returns the camera to the neutral pose
// without animating. The zoom toggle is kept.
func (s *Session) Reset() {
	s.tracks = make(map[int]speaking.State)
	s.zoom = zoom.InitialState()
	s.active = model.NoTarget
	s.frames = 0
	if s.tracker != nil {
		s.tracker.Reset()
	}
}

// SetZoomEnabled turns speaker framing on or off. While off the camera eases
// back to the neutral pose; classification keeps running.
func (s *Session) SetZoomEnabled(enabled bool) { s.zoomEnabled = enabled }

// ZoomEnabled reports the zoom toggle.
func (s *Session) ZoomEnabled() bool { return s.zoomEnabled }

// Frames is the number of frames processed since creation or the last Reset.
func (s *Session) Frames() uint64 { return s.frames }

// Tracks is the number of faces currently carrying state.
func (s *Session) Tracks() int { return len(s.tracks) }

// Active is the current speaker key, a slot or a track id when identity
// tracking is on.
func (s *Session) Active() model.Target { return s.active }

// Pose is the pose currently on screen.
func (s *Session) Pose() model.CameraPose { return zoom.Current(s.zoom) }
