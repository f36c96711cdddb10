// Package identity assigns stable synthetic ids to faces across frames by
// matching each frame's face centers to the previous frame's.
package identity

import (
	"math"
	"sort"

	"github.com/okian/speakercam/internal/domain/model"
)

// DefaultMaxDistance is the largest center shift, in normalized units, that
// still counts as the same face between consecutive frames.
const DefaultMaxDistance = 0.15

// Tracker is a greedy nearest-centroid matcher. Tracks not matched in a
// frame are dropped.
type Tracker struct {
	maxDistance float64
	nextID      int
	centers     map[int][2]float64 // track id -> last center
}

// NewTracker creates a tracker. Non-positive maxDistance uses DefaultMaxDistance.
func NewTracker(maxDistance float64) *Tracker {
	if !(maxDistance > 0) {
		maxDistance = DefaultMaxDistance
	}
	return &Tracker{
		maxDistance: maxDistance,
		centers:     make(map[int][2]float64),
	}
}

type pair struct {
	slot  int
	track int
	dist  float64
}

// Assign maps each slot to a track id. Closest pairs are matched first; ties
// break on lower slot then lower track id so results are reproducible.
func (t *Tracker) Assign(geometries map[int]model.FaceGeometry) map[int]int {
	slots := make([]int, 0, len(geometries))
	for slot := range geometries {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	centers := make(map[int][2]float64, len(slots))
	var pairs []pair
	for _, slot := range slots {
		cx, cy := geometries[slot].Center()
		centers[slot] = [2]float64{cx, cy}
		for id, c := range t.centers {
			d := math.Hypot(cx-c[0], cy-c[1])
			if d <= t.maxDistance {
				pairs = append(pairs, pair{slot: slot, track: id, dist: d})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.slot != b.slot {
			return a.slot < b.slot
		}
		return a.track < b.track
	})

	out := make(map[int]int, len(slots))
	used := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		if _, done := out[p.slot]; done || used[p.track] {
			continue
		}
		out[p.slot] = p.track
		used[p.track] = true
	}
	for _, slot := range slots {
		if _, done := out[slot]; !done {
			out[slot] = t.nextID
			t.nextID++
		}
	}

	next := make(map[int][2]float64, len(out))
	for slot, id := range out {
		next[id] = centers[slot]
	}
	t.centers = next
	return out
}

// Len is the number of live tracks.
func (t *Tracker) Len() int { return len(t.centers) }

// Reset forgets every track and restarts ids at zero.
func (t *Tracker) Reset() {
	t.nextID = 0
	t.centers = make(map[int][2]float64)
}
