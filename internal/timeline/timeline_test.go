package timeline

import (
	"math"
	"testing"

	"github.com/storyreel/storyreel-agent/internal/studio"
)

func scene(id string, order int, duration float64) studio.Scene {
	return studio.Scene{ID: id, Order: order, DurationSec: duration}
}

func TestRanges_RunningSum(t *testing.T) {
	scenes := []studio.Scene{
		scene("a", 0, 5),
		scene("b", 1, 3),
		scene("c", 2, 2.5),
	}

	ranges := Ranges(scenes)
	if len(ranges) != 3 {
		t.Fatalf("len(ranges) = %d, want 3", len(ranges))
	}

	want := []struct{ start, end float64 }{{0, 5}, {5, 8}, {8, 10.5}}
	for i, w := range want {
		if ranges[i].StartSec != w.start || ranges[i].EndSec != w.end {
			t.Errorf("range[%d] = [%v, %v), want [%v, %v)", i, ranges[i].StartSec, ranges[i].EndSec, w.start, w.end)
		}
	}
}

func TestRanges_SortsByOrderField(t *testing.T) {
	// Array position must never be trusted; only the order field counts.
	scenes := []studio.Scene{
		scene("c", 2, 2),
		scene("a", 0, 5),
		scene("b", 1, 3),
	}

	ranges := Ranges(scenes)
	ids := []string{ranges[0].Scene.ID, ranges[1].Scene.ID, ranges[2].Scene.ID}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("ranges ordered %v, want [a b c]", ids)
	}
}

func TestRanges_ContiguousAndCoverTotal(t *testing.T) {
	scenes := []studio.Scene{
		scene("a", 0, 1.25),
		scene("b", 1, 0.75),
		scene("c", 2, 4),
		scene("d", 3, 2),
	}

	ranges := Ranges(scenes)
	sum := 0.0
	for i, r := range ranges {
		sum += r.EndSec - r.StartSec
		if i > 0 && ranges[i-1].EndSec != r.StartSec {
			t.Errorf("gap between range %d and %d: %v != %v", i-1, i, ranges[i-1].EndSec, r.StartSec)
		}
	}

	if math.Abs(sum-TotalDuration(scenes)) > 1e-9 {
		t.Errorf("sum of range widths = %v, want total %v", sum, TotalDuration(scenes))
	}
}

func TestTotalDuration_Empty(t *testing.T) {
	if got := TotalDuration(nil); got != 0 {
		t.Errorf("TotalDuration(nil) = %v, want 0", got)
	}
}

func TestSceneAt(t *testing.T) {
	scenes := []studio.Scene{
		scene("a", 0, 5),
		scene("b", 1, 3),
	}

	tests := []struct {
		name string
		t    float64
		want string
	}{
		{"start", 0, "a"},
		{"inside first", 4.99, "a"},
		{"boundary belongs to next", 5, "b"},
		{"inside second", 7.5, "b"},
		{"exactly total clamps to last", 8, "b"},
		{"past total clamps to last", 100, "b"},
		{"negative clamps to first", -3, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SceneAt(scenes, tt.t)
			if got == nil {
				t.Fatalf("SceneAt(%v) = nil, want %s", tt.t, tt.want)
			}
			if got.ID != tt.want {
				t.Errorf("SceneAt(%v) = %s, want %s", tt.t, got.ID, tt.want)
			}
		})
	}
}

func TestSceneAt_Empty(t *testing.T) {
	if got := SceneAt(nil, 0); got != nil {
		t.Errorf("SceneAt(nil, 0) = %v, want nil", got)
	}
	if got := SceneAt([]studio.Scene{}, 3); got != nil {
		t.Errorf("SceneAt(empty, 3) = %v, want nil", got)
	}
}

func TestSceneAt_EveryInstantMapsToOneScene(t *testing.T) {
	scenes := []studio.Scene{
		scene("a", 0, 1),
		scene("b", 1, 2),
		scene("c", 2, 0.5),
	}
	total := TotalDuration(scenes)

	for ts := 0.0; ts < total; ts += 0.05 {
		if got := SceneAt(scenes, ts); got == nil {
			t.Fatalf("SceneAt(%v) = nil inside [0, total)", ts)
		}
	}
}

func TestProgressAt(t *testing.T) {
	scenes := []studio.Scene{
		scene("a", 0, 5),
		scene("b", 1, 3),
	}

	r, progress, ok := ProgressAt(scenes, 7.5)
	if !ok {
		t.Fatal("ProgressAt() ok = false, want true")
	}
	if r.Scene.ID != "b" {
		t.Errorf("scene = %s, want b", r.Scene.ID)
	}
	if math.Abs(progress-(2.5/3.0)) > 1e-9 {
		t.Errorf("progress = %v, want %v", progress, 2.5/3.0)
	}
}

func TestProgressIn_MatchesProgressAt(t *testing.T) {
	scenes := []studio.Scene{
		scene("a", 0, 5),
		scene("b", 1, 3),
	}
	ranges := Ranges(scenes)

	for _, tt := range []float64{-1, 0, 2.5, 5, 7.5, 8, 20} {
		wantRange, wantProgress, wantOK := ProgressAt(scenes, tt)
		gotRange, gotProgress, gotOK := ProgressIn(ranges, tt)
		if gotOK != wantOK || gotRange.Scene.ID != wantRange.Scene.ID || math.Abs(gotProgress-wantProgress) > 1e-9 {
			t.Errorf("ProgressIn(ranges, %v) = (%s, %v, %v), want (%s, %v, %v)",
				tt, gotRange.Scene.ID, gotProgress, gotOK, wantRange.Scene.ID, wantProgress, wantOK)
		}
		if got, want := IndexIn(ranges, tt), IndexAt(scenes, tt); got != want {
			t.Errorf("IndexIn(ranges, %v) = %d, want %d", tt, got, want)
		}
	}
}

func TestProgressIn_Empty(t *testing.T) {
	if _, _, ok := ProgressIn(nil, 1); ok {
		t.Error("ProgressIn(nil) ok = true, want false")
	}
	if got := IndexIn(nil, 1); got != -1 {
		t.Errorf("IndexIn(nil) = %d, want -1", got)
	}
}

func TestProgressAt_PastEndClampsToOne(t *testing.T) {
	scenes := []studio.Scene{scene("a", 0, 2)}

	r, progress, ok := ProgressAt(scenes, 10)
	if !ok || r.Scene.ID != "a" {
		t.Fatalf("ProgressAt past end: scene %v ok %v", r.Scene.ID, ok)
	}
	if progress != 1 {
		t.Errorf("progress = %v, want 1", progress)
	}
}

func TestProgressAt_Empty(t *testing.T) {
	if _, _, ok := ProgressAt(nil, 0); ok {
		t.Error("ProgressAt(nil) ok = true, want false")
	}
}
