package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// Preview advances in fixed 30fps steps regardless of the project's
	// render fps; the preview canvas interpolates per wall-clock frame.
	tickStepSec  = 1.0 / 30.0
	tickInterval = time.Second / 30
)

// Clock drives preview playback. It owns the playhead position and the
// playing/paused flag; the timeline's total duration is read through a
// callback so edits made while playing take effect immediately.
type Clock struct {
	mu       sync.Mutex
	position float64
	rate     float64
	playing  bool

	total  func() float64
	onTick func(positionSec float64, playing bool)
	logger *slog.Logger
}

// NewClock builds a stopped clock at position zero with rate 1.0. total
// reports the current timeline duration in seconds; onTick, when
// non-nil, is invoked after every position change.
func NewClock(total func() float64, onTick func(positionSec float64, playing bool), logger *slog.Logger) *Clock {
	return &Clock{
		rate:   1.0,
		total:  total,
		onTick: onTick,
		logger: logger,
	}
}

// Play starts advancing the playhead. An empty timeline has nothing to
// play, so Play reports false and the clock stays stopped. Playing from
// the very end restarts at zero.
func (c *Clock) Play() bool {
	total := c.total()

	c.mu.Lock()
	if total <= 0 {
		c.mu.Unlock()
		return false
	}
	if c.position >= total {
		c.position = 0
	}
	c.playing = true
	pos := c.position
	c.mu.Unlock()

	c.emit(pos, true)
	return true
}

// Pause stops advancement without moving the playhead.
func (c *Clock) Pause() {
	c.mu.Lock()
	c.playing = false
	pos := c.position
	c.mu.Unlock()

	c.emit(pos, false)
}

// TogglePlay flips between playing and paused and reports the new
// playing state.
func (c *Clock) TogglePlay() bool {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()

	if playing {
		c.Pause()
		return false
	}
	return c.Play()
}

// Seek jumps the playhead, clamping to [0, total]. Seeking never
// changes the playing state.
func (c *Clock) Seek(sec float64) float64 {
	total := c.total()
	if sec < 0 {
		sec = 0
	}
	if sec > total {
		sec = total
	}

	c.mu.Lock()
	c.position = sec
	playing := c.playing
	c.mu.Unlock()

	c.emit(sec, playing)
	return sec
}

// SetRate changes the playback rate. Non-positive rates are rejected
// and the previous rate is kept.
func (c *Clock) SetRate(rate float64) bool {
	if rate <= 0 {
		if c.logger != nil {
			c.logger.Warn("rejected playback rate", "rate", rate)
		}
		return false
	}
	c.mu.Lock()
	c.rate = rate
	c.mu.Unlock()
	return true
}

// Tick advances the playhead by one frame step scaled by the rate. At
// the end of the timeline the position clamps to the total and the
// clock auto-pauses. Tick is a no-op while paused.
func (c *Clock) Tick() (positionSec float64, playing bool) {
	total := c.total()

	c.mu.Lock()
	if !c.playing {
		pos := c.position
		c.mu.Unlock()
		return pos, false
	}

	c.position += tickStepSec * c.rate
	if c.position >= total {
		c.position = total
		c.playing = false
	}
	pos, stillPlaying := c.position, c.playing
	c.mu.Unlock()

	c.emit(pos, stillPlaying)
	return pos, stillPlaying
}

// Position reports the current playhead in seconds.
func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Rate reports the current playback rate.
func (c *Clock) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// IsPlaying reports whether the clock is advancing.
func (c *Clock) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Run ticks the clock on a wall-clock 30fps interval until the context
// is cancelled. Paused intervals still fire the ticker; Tick ignores
// them.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

func (c *Clock) emit(positionSec float64, playing bool) {
	if c.onTick != nil {
		c.onTick(positionSec, playing)
	}
}
