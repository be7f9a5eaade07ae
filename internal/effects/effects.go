// Package effects maps a visual effect and a playback progress value to a
// 2D transform. The same transforms drive the live preview and the render
// specification sent to the media compiler, so the math here has to be
// deterministic: same kind + progress in, same transform out.
package effects

// Kind is a per-scene camera effect.
type Kind string

const (
	KindNone           Kind = "none"
	KindFade           Kind = "fade"
	KindKenBurnsSlow   Kind = "kenburns_slow"
	KindKenBurnsMedium Kind = "kenburns_medium"
	KindPanRight       Kind = "pan_right"
	KindPanLeft        Kind = "pan_left"
)

// Kinds lists every per-scene effect in display order.
var Kinds = []Kind{KindNone, KindFade, KindKenBurnsSlow, KindKenBurnsMedium, KindPanRight, KindPanLeft}

// Valid reports whether k is a known effect kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Transform describes how a scene image is drawn at one instant.
// The zero value is not useful; start from Identity.
type Transform struct {
	ScaleX     float64 `json:"scale_x"`
	ScaleY     float64 `json:"scale_y"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
	Opacity    float64 `json:"opacity"`
	BlurPx     float64 `json:"blur_px"`
}

// Identity returns the no-op transform.
func Identity() Transform {
	return Transform{ScaleX: 1, ScaleY: 1, TranslateX: 0, TranslateY: 0, Opacity: 1, BlurPx: 0}
}

const (
	// panDistancePx is the horizontal travel of the pan effects, in frame
	// units. The 1.1x overscan below keeps the image edges off screen for
	// the whole travel.
	panDistancePx = 80.0
	panScale      = 1.1

	kenBurnsSlowScale   = 1.03
	kenBurnsMediumScale = 1.06
	// kenBurnsDriftPx is the translate reached at full progress for the
	// medium Ken Burns move; the drift grows with the scale so the motion
	// reads as a push-in rather than a slide.
	kenBurnsDriftPx = 12.0
)

// Apply returns the transform for a per-scene effect at the given progress.
// Progress is the elapsed fraction of the scene's duration and is clamped
// to [0,1].
func Apply(kind Kind, progress float64) Transform {
	p := clamp01(progress)
	t := Identity()

	switch kind {
	case KindFade:
		t.Opacity = fadeOpacity(p)
	case KindKenBurnsSlow:
		s := lerp(1.0, kenBurnsSlowScale, p)
		t.ScaleX, t.ScaleY = s, s
	case KindKenBurnsMedium:
		s := lerp(1.0, kenBurnsMediumScale, p)
		t.ScaleX, t.ScaleY = s, s
		t.TranslateX = lerp(0, kenBurnsDriftPx, p)
		t.TranslateY = lerp(0, -kenBurnsDriftPx/2, p)
	case KindPanRight:
		t.ScaleX, t.ScaleY = panScale, panScale
		t.TranslateX = lerp(-panDistancePx/2, panDistancePx/2, p)
	case KindPanLeft:
		t.ScaleX, t.ScaleY = panScale, panScale
		t.TranslateX = lerp(panDistancePx/2, -panDistancePx/2, p)
	}

	return t
}

// fadeOpacity is a four-point piecewise ramp: transparent at the ends,
// fully visible through the middle 80% of the scene.
func fadeOpacity(p float64) float64 {
	switch {
	case p < 0.1:
		return p / 0.1
	case p > 0.9:
		return (1 - p) / 0.1
	default:
		return 1
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// easeInOutCubic applies smooth easing, used by the transition pairs so
// slides and zooms accelerate and settle instead of moving linearly.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	x := -2*t + 2
	return 1 - x*x*x/2
}
