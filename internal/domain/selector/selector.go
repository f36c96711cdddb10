// Package selector picks at most one speaking face as the camera target.
package selector

import (
	"fmt"
	"sort"

	"github.com/okian/speakercam/internal/domain/model"
)

// Policy decides between simultaneous speakers.
type Policy string

const (
	// PolicyKeepCurrent keeps the current target while it still speaks and
	// otherwise falls back to the lowest speaking key.
	PolicyKeepCurrent Policy = "keep_current"
	// PolicyLowestSlot always picks the lowest speaking key.
	PolicyLowestSlot Policy = "lowest_slot"
)

// Selector arbitrates the active speaker.
type Selector struct {
	policy Policy
}

// New creates a Selector for policy. An empty policy means PolicyKeepCurrent.
func New(policy Policy) (*Selector, error) {
	switch policy {
	case "":
		policy = PolicyKeepCurrent
	case PolicyKeepCurrent, PolicyLowestSlot:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}
	return &Selector{policy: policy}, nil
}

// Policy returns the configured policy.
func (s *Selector) Policy() Policy { return s.policy }

// Select returns the face the camera should frame. Only keys that are
// speaking and have a geometry this frame qualify.
func (s *Selector) Select(current model.Target, speaking map[int]bool, geometries map[int]model.FaceGeometry) model.Target {
	qualifies := func(key int) bool {
		if !speaking[key] {
			return false
		}
		_, ok := geometries[key]
		return ok
	}

	if s.policy == PolicyKeepCurrent && current.Set && qualifies(current.Slot) {
		return current
	}

	keys := make([]int, 0, len(speaking))
	for key := range speaking {
		if qualifies(key) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return model.NoTarget
	}
	sort.Ints(keys)
	return model.TargetOf(keys[0])
}
