package effects

// TransitionKind is an inter-scene blend applied during the trailing
// transition window of a non-final scene.
type TransitionKind string

const (
	TransitionNone       TransitionKind = "none"
	TransitionFade       TransitionKind = "fade"
	TransitionSlideLeft  TransitionKind = "slide_left"
	TransitionSlideRight TransitionKind = "slide_right"
	TransitionZoomIn     TransitionKind = "zoom_in"
	TransitionZoomOut    TransitionKind = "zoom_out"
	TransitionDissolve   TransitionKind = "dissolve"
)

// TransitionKinds lists every transition in display order.
var TransitionKinds = []TransitionKind{
	TransitionNone, TransitionFade, TransitionSlideLeft, TransitionSlideRight,
	TransitionZoomIn, TransitionZoomOut, TransitionDissolve,
}

// Valid reports whether k is a known transition kind.
func (k TransitionKind) Valid() bool {
	for _, known := range TransitionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// slideDistancePx is the horizontal travel of the slide transitions, in
// frame units. Matches the frame renderer's nominal frame width so the
// incoming scene enters from fully off screen.
const slideDistancePx = 1080.0

// TransitionPair returns the transforms for the outgoing and incoming
// scenes at the given transition progress. At progress 0 the outgoing
// scene is fully visible and untransformed and the incoming scene fully
// hidden; at progress 1 the roles are reversed. Progress is clamped to
// [0,1].
//
// "none" is a hard cut: the outgoing scene stays fully visible until the
// boundary, where the incoming scene takes over in a single step.
func TransitionPair(kind TransitionKind, progress float64) (out, in Transform) {
	p := clamp01(progress)
	out = Identity()
	in = Identity()

	switch kind {
	case TransitionFade:
		out.Opacity = 1 - p
		in.Opacity = p

	case TransitionSlideLeft:
		e := easeInOutCubic(p)
		out.TranslateX = -slideDistancePx * e
		in.TranslateX = slideDistancePx * (1 - e)
		in.Opacity = visibleWhenStarted(p)

	case TransitionSlideRight:
		e := easeInOutCubic(p)
		out.TranslateX = slideDistancePx * e
		in.TranslateX = -slideDistancePx * (1 - e)
		in.Opacity = visibleWhenStarted(p)

	case TransitionZoomIn:
		e := easeInOutCubic(p)
		out.ScaleX = lerp(1.0, 1.4, e)
		out.ScaleY = out.ScaleX
		out.Opacity = 1 - p
		in.ScaleX = lerp(0.8, 1.0, e)
		in.ScaleY = in.ScaleX
		in.Opacity = p

	case TransitionZoomOut:
		e := easeInOutCubic(p)
		out.ScaleX = lerp(1.0, 0.7, e)
		out.ScaleY = out.ScaleX
		out.Opacity = 1 - p
		in.ScaleX = lerp(1.2, 1.0, e)
		in.ScaleY = in.ScaleX
		in.Opacity = p

	case TransitionDissolve:
		out.Opacity = 1 - p
		out.BlurPx = 8 * p
		in.Opacity = p
		in.BlurPx = 8 * (1 - p)

	default: // none: hard switch at the boundary
		if p < 1 {
			in.Opacity = 0
		} else {
			out.Opacity = 0
		}
	}

	return out, in
}

// visibleWhenStarted keeps the incoming scene hidden at exactly progress 0
// (it is still fully off screen) and opaque for the rest of the slide.
func visibleWhenStarted(p float64) float64 {
	if p == 0 {
		return 0
	}
	return 1
}
