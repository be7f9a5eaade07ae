package playback

import (
	"math"
	"testing"
)

func fixedTotal(sec float64) func() float64 {
	return func() float64 { return sec }
}

func TestClock_PlayRejectsEmptyTimeline(t *testing.T) {
	c := NewClock(fixedTotal(0), nil, nil)

	if c.Play() {
		t.Error("Play() on empty timeline = true, want false")
	}
	if c.IsPlaying() {
		t.Error("clock started despite empty timeline")
	}
}

func TestClock_TickAdvancesByScaledStep(t *testing.T) {
	c := NewClock(fixedTotal(10), nil, nil)
	if !c.Play() {
		t.Fatal("Play() = false")
	}

	pos, playing := c.Tick()
	if !playing {
		t.Fatal("clock paused after one tick")
	}
	if math.Abs(pos-1.0/30.0) > 1e-9 {
		t.Errorf("position after tick = %v, want 1/30", pos)
	}

	if !c.SetRate(2.0) {
		t.Fatal("SetRate(2.0) = false")
	}
	pos, _ = c.Tick()
	want := 1.0/30.0 + 2.0/30.0
	if math.Abs(pos-want) > 1e-9 {
		t.Errorf("position after 2x tick = %v, want %v", pos, want)
	}
}

func TestClock_TickIsNoOpWhilePaused(t *testing.T) {
	c := NewClock(fixedTotal(10), nil, nil)
	c.Seek(3)

	pos, playing := c.Tick()
	if playing {
		t.Error("paused Tick() reported playing")
	}
	if pos != 3 {
		t.Errorf("paused Tick() moved playhead to %v", pos)
	}
}

func TestClock_AutoPausesAtEnd(t *testing.T) {
	c := NewClock(fixedTotal(0.05), nil, nil)
	if !c.Play() {
		t.Fatal("Play() = false")
	}

	// 0.05s at 1/30 per tick ends inside two ticks.
	c.Tick()
	pos, playing := c.Tick()
	if playing {
		t.Error("clock still playing past the end")
	}
	if pos != 0.05 {
		t.Errorf("position = %v, want clamp to total 0.05", pos)
	}
	if c.IsPlaying() {
		t.Error("IsPlaying() = true after auto-pause")
	}
}

func TestClock_PlayFromEndRestartsAtZero(t *testing.T) {
	c := NewClock(fixedTotal(1), nil, nil)
	c.Seek(1)

	if !c.Play() {
		t.Fatal("Play() = false")
	}
	if pos := c.Position(); pos != 0 {
		t.Errorf("position after replay = %v, want 0", pos)
	}
}

func TestClock_SeekClamps(t *testing.T) {
	c := NewClock(fixedTotal(8), nil, nil)

	cases := []struct {
		in, want float64
	}{
		{-5, 0},
		{4, 4},
		{8, 8},
		{100, 8},
	}
	for _, tc := range cases {
		if got := c.Seek(tc.in); got != tc.want {
			t.Errorf("Seek(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestClock_SeekKeepsPlayingState(t *testing.T) {
	c := NewClock(fixedTotal(10), nil, nil)
	c.Play()

	c.Seek(2)
	if !c.IsPlaying() {
		t.Error("Seek() paused a playing clock")
	}

	c.Pause()
	c.Seek(4)
	if c.IsPlaying() {
		t.Error("Seek() resumed a paused clock")
	}
}

func TestClock_SetRateRejectsNonPositive(t *testing.T) {
	c := NewClock(fixedTotal(10), nil, nil)
	c.SetRate(1.5)

	for _, rate := range []float64{0, -1} {
		if c.SetRate(rate) {
			t.Errorf("SetRate(%v) = true, want false", rate)
		}
		if got := c.Rate(); got != 1.5 {
			t.Errorf("rate after rejected SetRate(%v) = %v, want 1.5", rate, got)
		}
	}
}

func TestClock_TogglePlay(t *testing.T) {
	c := NewClock(fixedTotal(5), nil, nil)

	if !c.TogglePlay() {
		t.Fatal("first toggle should start playback")
	}
	if c.TogglePlay() {
		t.Fatal("second toggle should pause")
	}
	if c.IsPlaying() {
		t.Error("clock playing after pause toggle")
	}
}

func TestClock_OnTickCallback(t *testing.T) {
	var gotPos float64
	var gotPlaying bool
	calls := 0
	c := NewClock(fixedTotal(10), func(pos float64, playing bool) {
		gotPos, gotPlaying = pos, playing
		calls++
	}, nil)

	c.Play()
	c.Tick()

	if calls != 2 {
		t.Fatalf("callback calls = %d, want 2 (play + tick)", calls)
	}
	if !gotPlaying {
		t.Error("callback reported paused during playback")
	}
	if math.Abs(gotPos-1.0/30.0) > 1e-9 {
		t.Errorf("callback position = %v, want 1/30", gotPos)
	}
}

func TestClock_TotalShrinksWhilePlaying(t *testing.T) {
	total := 10.0
	c := NewClock(func() float64 { return total }, nil, nil)
	c.Seek(9)
	c.Play()

	// A scene was deleted mid-playback; the playhead is now past the end.
	total = 5
	pos, playing := c.Tick()
	if playing {
		t.Error("clock kept playing past a shrunken total")
	}
	if pos != 5 {
		t.Errorf("position = %v, want clamp to new total 5", pos)
	}
}
