// Package frame turns a composition and a point in time into a
// declarative frame description. It never rasterizes anything; the
// description carries everything a canvas, GPU compositor or server-side
// encoder needs to draw the same pixels.
package frame

import (
	"github.com/storyreel/storyreel-agent/internal/composer"
	"github.com/storyreel/storyreel-agent/internal/effects"
	"github.com/storyreel/storyreel-agent/internal/studio"
	"github.com/storyreel/storyreel-agent/internal/timeline"
)

// SafeArea is the pixel region text should stay inside. The asymmetric
// vertical margins leave room for platform UI chrome at the bottom.
type SafeArea struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Transition describes the crossover into the next scene while inside a
// trailing transition window.
type Transition struct {
	Kind     effects.TransitionKind `json:"kind"`
	Progress float64                `json:"progress"`
	Out      effects.Transform      `json:"out"`
	In       effects.Transform      `json:"in"`
}

// Description is the full recipe for one frame.
type Description struct {
	TimeSec  float64       `json:"time_sec"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Scene    *studio.Scene `json:"scene,omitempty"`
	Progress float64       `json:"progress"`

	// Transform is the current scene's camera-effect transform at
	// Progress.
	Transform effects.Transform `json:"transform"`

	// Transition, NextScene and NextTransform are set only inside the
	// trailing transition window of a non-final scene.
	Transition    *Transition        `json:"transition,omitempty"`
	NextScene     *studio.Scene      `json:"next_scene,omitempty"`
	NextTransform *effects.Transform `json:"next_transform,omitempty"`

	Style    studio.TextStyle `json:"style"`
	SafeArea SafeArea         `json:"safe_area"`
}

// Render builds the frame description for time t. t is re-clamped to the
// current timeline bounds: an edit can shrink the timeline between the
// caller reading the total and calling Render, and that must not break
// frame production. An empty timeline yields a description with no scene
// and the fallback style.
func Render(state *composer.State, t float64) Description {
	project := state.Project()
	scenes := state.Scenes()
	styles := state.Styles()

	width, height := frameSize(project)
	desc := Description{
		TimeSec:   t,
		Width:     width,
		Height:    height,
		Transform: effects.Identity(),
		Style:     resolveStyle(nil, styles, project),
		SafeArea:  safeAreaFor(width, height),
	}

	if len(scenes) == 0 {
		desc.TimeSec = 0
		return desc
	}

	ordered := timeline.Ranges(scenes)
	total := timeline.TotalDuration(scenes)
	if t < 0 {
		t = 0
	}
	if t > total {
		t = total
	}
	desc.TimeSec = t

	r, progress, ok := timeline.ProgressIn(ordered, t)
	if !ok {
		return desc
	}
	scene := r.Scene

	desc.Scene = &scene
	desc.Progress = progress
	desc.Transform = effects.Apply(scene.FX, progress)
	desc.Style = resolveStyle(&scene, styles, project)

	idx := timeline.IndexIn(ordered, t)
	if idx < 0 || idx >= len(ordered)-1 {
		// Final scene never transitions out.
		return desc
	}

	transitionSec := scene.TransitionSec
	if transitionSec <= 0 || r.EndSec-t > transitionSec {
		return desc
	}

	tp := 1 - (r.EndSec-t)/transitionSec
	if tp < 0 {
		tp = 0
	}
	if tp > 1 {
		tp = 1
	}

	out, in := effects.TransitionPair(scene.Transition, tp)
	next := ordered[idx+1].Scene
	nextTransform := effects.Apply(next.FX, 0)

	desc.Transition = &Transition{
		Kind:     scene.Transition,
		Progress: tp,
		Out:      out,
		In:       in,
	}
	desc.NextScene = &next
	desc.NextTransform = &nextTransform
	return desc
}

// resolveStyle picks the effective text style: the scene's referenced
// style when it exists, else the project's first style, else a
// hard-coded fallback. A dangling style id falls through instead of
// failing the frame.
func resolveStyle(scene *studio.Scene, styles []studio.TextStyle, project *studio.Project) studio.TextStyle {
	if scene != nil && scene.TextStyleID != "" {
		for _, ts := range styles {
			if ts.ID == scene.TextStyleID {
				return ts
			}
		}
	}
	if len(styles) > 0 {
		return styles[0]
	}
	projectID := ""
	if project != nil {
		projectID = project.ID
	}
	return *studio.DefaultTextStyle(projectID)
}

func frameSize(project *studio.Project) (int, int) {
	if project == nil {
		return studio.AspectPortrait.Size()
	}
	return project.AspectRatio.Size()
}

// safeAreaFor insets 5% horizontally, 8% at the top and 12% at the
// bottom.
func safeAreaFor(width, height int) SafeArea {
	return SafeArea{
		Left:   width * 5 / 100,
		Top:    height * 8 / 100,
		Right:  width - width*5/100,
		Bottom: height - height*12/100,
	}
}
