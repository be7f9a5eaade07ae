// Package timeline derives playback time ranges from an ordered scene
// list. It holds no state: every function takes the scenes as input and
// computes ranges by a running sum of durations in order.
package timeline

import (
	"sort"

	"github.com/storyreel/storyreel-agent/internal/studio"
)

// Range is one scene's half-open slot [StartSec, EndSec) on the timeline.
type Range struct {
	Scene    studio.Scene `json:"scene"`
	StartSec float64      `json:"start_sec"`
	EndSec   float64      `json:"end_sec"`
}

// Ranges computes the cumulative time slots for the scenes, sorted by
// their order field. The input slice is not modified.
func Ranges(scenes []studio.Scene) []Range {
	ordered := sortByOrder(scenes)

	ranges := make([]Range, 0, len(ordered))
	cursor := 0.0
	for _, s := range ordered {
		ranges = append(ranges, Range{
			Scene:    s,
			StartSec: cursor,
			EndSec:   cursor + s.DurationSec,
		})
		cursor += s.DurationSec
	}
	return ranges
}

// TotalDuration is the sum of all scene durations.
func TotalDuration(scenes []studio.Scene) float64 {
	total := 0.0
	for _, s := range scenes {
		total += s.DurationSec
	}
	return total
}

// SceneAt returns the scene whose slot contains t, using half-open
// intervals so each instant maps to exactly one scene. Times at or past
// the end return the last scene, matching "scrubbing past the end stays
// on the last frame". Returns nil for an empty list.
func SceneAt(scenes []studio.Scene, t float64) *studio.Scene {
	idx := IndexAt(scenes, t)
	if idx < 0 {
		return nil
	}
	ordered := sortByOrder(scenes)
	s := ordered[idx]
	return &s
}

// IndexAt returns the order-sorted index of the scene containing t, the
// last index for t at or past the total duration, or -1 for an empty list.
func IndexAt(scenes []studio.Scene, t float64) int {
	return IndexIn(Ranges(scenes), t)
}

// IndexIn is IndexAt over precomputed ranges, for callers that need
// several lookups against the same timeline without re-sorting it.
func IndexIn(ranges []Range, t float64) int {
	if len(ranges) == 0 {
		return -1
	}
	if t < 0 {
		t = 0
	}

	for i, r := range ranges {
		if t >= r.StartSec && t < r.EndSec {
			return i
		}
	}
	return len(ranges) - 1
}

// ProgressAt locates the scene containing t together with the elapsed
// fraction of that scene's duration, clamped to [0,1]. A second return
// of false means the scene list was empty.
func ProgressAt(scenes []studio.Scene, t float64) (Range, float64, bool) {
	return ProgressIn(Ranges(scenes), t)
}

// ProgressIn is ProgressAt over precomputed ranges.
func ProgressIn(ranges []Range, t float64) (Range, float64, bool) {
	idx := IndexIn(ranges, t)
	if idx < 0 {
		return Range{}, 0, false
	}

	r := ranges[idx]
	if r.Scene.DurationSec <= 0 {
		return r, 0, true
	}

	progress := (t - r.StartSec) / r.Scene.DurationSec
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return r, progress, true
}

func sortByOrder(scenes []studio.Scene) []studio.Scene {
	ordered := make([]studio.Scene, len(scenes))
	copy(ordered, scenes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})
	return ordered
}
