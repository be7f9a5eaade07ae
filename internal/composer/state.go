// Package composer holds the in-memory composition state for one editing
// session: the project, its ordered scenes, text styles and music tracks.
// There is exactly one State per open project and every edit goes through
// its methods, which keep scene order contiguous and references consistent.
package composer

import (
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/storyreel/storyreel-agent/internal/effects"
	"github.com/storyreel/storyreel-agent/internal/studio"
)

const (
	defaultSceneDurationSec = 5.0
	defaultTransitionSec    = 0.8

	// Beat matching is a fixed policy: four beats per scene at the given
	// tempo, 120 BPM when none is supplied.
	beatsPerScene = 4
	defaultBPM    = 120.0
)

// State owns a project document during an editing session. All methods
// are safe for concurrent use, but the intended model is a single owner
// interleaving edits with playback ticks.
type State struct {
	mu       sync.Mutex
	project  *studio.Project
	scenes   []studio.Scene
	styles   []studio.TextStyle
	music    []studio.MusicTrack
	selected string

	subs   map[int]func()
	nextID int
}

// NewState builds a composition state from a stored snapshot.
func NewState(snap *studio.Snapshot) *State {
	st := &State{subs: make(map[int]func())}
	if snap != nil {
		st.project = snap.Project
		st.scenes = append(st.scenes, snap.Scenes...)
		st.styles = append(st.styles, snap.Styles...)
		st.music = append(st.music, snap.Music...)
	}
	st.normalizeLocked()
	return st
}

// Subscribe registers a callback invoked after every mutation. The
// returned function unsubscribes.
func (st *State) Subscribe(fn func()) func() {
	st.mu.Lock()
	id := st.nextID
	st.nextID++
	st.subs[id] = fn
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		delete(st.subs, id)
		st.mu.Unlock()
	}
}

func (st *State) notify() {
	st.mu.Lock()
	fns := make([]func(), 0, len(st.subs))
	for _, fn := range st.subs {
		fns = append(fns, fn)
	}
	st.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Project returns the project document, nil when no project is loaded.
func (st *State) Project() *studio.Project {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.project
}

// Scenes returns a copy of the scene list sorted by order.
func (st *State) Scenes() []studio.Scene {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]studio.Scene, len(st.scenes))
	copy(out, st.scenes)
	return out
}

// Styles returns a copy of the text style list.
func (st *State) Styles() []studio.TextStyle {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]studio.TextStyle, len(st.styles))
	copy(out, st.styles)
	return out
}

// Music returns a copy of the music track list.
func (st *State) Music() []studio.MusicTrack {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]studio.MusicTrack, len(st.music))
	copy(out, st.music)
	return out
}

// SelectedSceneID returns the current selection, empty when nothing is
// selected.
func (st *State) SelectedSceneID() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.selected
}

// SelectScene marks a scene as selected. Unknown ids clear the selection.
func (st *State) SelectScene(id string) {
	st.mu.Lock()
	st.selected = ""
	for _, s := range st.scenes {
		if s.ID == id {
			st.selected = id
			break
		}
	}
	st.mu.Unlock()
	st.notify()
}

// SceneInput carries the caller-settable fields for a new scene.
type SceneInput struct {
	DurationSec   float64
	ImageURL      string
	Title         string
	Body          string
	Credit        string
	FX            effects.Kind
	Placement     studio.Placement
	TextStyleID   string
	Transition    effects.TransitionKind
	TransitionSec float64
}

// AddScene appends a scene at the end of the timeline and returns it.
func (st *State) AddScene(in SceneInput) studio.Scene {
	st.mu.Lock()

	if in.DurationSec == 0 {
		in.DurationSec = defaultSceneDurationSec
	}
	if in.FX == "" {
		in.FX = effects.KindNone
	}
	if in.Placement == "" {
		in.Placement = studio.PlacementBottom
	}
	if in.Transition == "" {
		in.Transition = effects.TransitionFade
	}
	if in.TransitionSec <= 0 {
		in.TransitionSec = defaultTransitionSec
	}

	now := time.Now()
	scene := studio.Scene{
		ID:            studio.NewID(),
		Order:         len(st.scenes),
		DurationSec:   studio.ClampSceneDuration(in.DurationSec),
		ImageURL:      in.ImageURL,
		Title:         in.Title,
		Body:          in.Body,
		Credit:        in.Credit,
		FX:            in.FX,
		Placement:     in.Placement,
		TextStyleID:   in.TextStyleID,
		Transition:    in.Transition,
		TransitionSec: in.TransitionSec,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if st.project != nil {
		scene.ProjectID = st.project.ID
	}

	st.scenes = append(st.scenes, scene)
	st.normalizeLocked()
	st.mu.Unlock()

	st.notify()
	return scene
}

// SceneUpdate is the allow-list of mutable scene fields. Nil means
// "leave unchanged".
type SceneUpdate struct {
	DurationSec   *float64                `json:"duration_sec,omitempty"`
	ImageURL      *string                 `json:"image_url,omitempty"`
	Title         *string                 `json:"title,omitempty"`
	Body          *string                 `json:"body,omitempty"`
	Credit        *string                 `json:"credit,omitempty"`
	FX            *effects.Kind           `json:"fx,omitempty"`
	Placement     *studio.Placement       `json:"placement,omitempty"`
	TextStyleID   *string                 `json:"text_style_id,omitempty"`
	Transition    *effects.TransitionKind `json:"transition,omitempty"`
	TransitionSec *float64                `json:"transition_sec,omitempty"`
}

// UpdateScene merges the update into the scene with the given id. A
// missing id is a silent no-op: the scene may have been deleted by an
// interleaved edit, and that is not an error.
func (st *State) UpdateScene(id string, update SceneUpdate) bool {
	st.mu.Lock()

	idx := st.indexOfLocked(id)
	if idx < 0 {
		st.mu.Unlock()
		return false
	}

	s := &st.scenes[idx]
	if update.DurationSec != nil {
		s.DurationSec = studio.ClampSceneDuration(*update.DurationSec)
	}
	if update.ImageURL != nil {
		s.ImageURL = *update.ImageURL
	}
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.Body != nil {
		s.Body = *update.Body
	}
	if update.Credit != nil {
		s.Credit = *update.Credit
	}
	if update.FX != nil {
		s.FX = *update.FX
	}
	if update.Placement != nil {
		s.Placement = *update.Placement
	}
	if update.TextStyleID != nil {
		s.TextStyleID = *update.TextStyleID
	}
	if update.Transition != nil {
		s.Transition = *update.Transition
	}
	if update.TransitionSec != nil && *update.TransitionSec > 0 {
		s.TransitionSec = *update.TransitionSec
	}
	s.UpdatedAt = time.Now()

	st.mu.Unlock()
	st.notify()
	return true
}

// DeleteScene removes a scene and renumbers the survivors to 0..n-1,
// preserving their relative order. Deleting the selected scene clears
// the selection. Unknown ids are a no-op.
func (st *State) DeleteScene(id string) bool {
	st.mu.Lock()

	idx := st.indexOfLocked(id)
	if idx < 0 {
		st.mu.Unlock()
		return false
	}

	st.scenes = append(st.scenes[:idx], st.scenes[idx+1:]...)
	if st.selected == id {
		st.selected = ""
	}
	st.normalizeLocked()
	st.mu.Unlock()

	st.notify()
	return true
}

// DuplicateScene inserts a copy directly after the source scene, shifting
// every later scene up by one. The copy gets a fresh id and a " (Copy)"
// title suffix; the source title is truncated if the suffix would push it
// past the title length limit. Returns nil for unknown ids.
func (st *State) DuplicateScene(id string) *studio.Scene {
	st.mu.Lock()

	idx := st.indexOfLocked(id)
	if idx < 0 {
		st.mu.Unlock()
		return nil
	}

	src := st.scenes[idx]
	dup := src
	dup.ID = studio.NewID()
	dup.Order = src.Order + 1
	dup.Title = copyTitle(src.Title)
	now := time.Now()
	dup.CreatedAt = now
	dup.UpdatedAt = now

	for i := range st.scenes {
		if st.scenes[i].Order > src.Order {
			st.scenes[i].Order++
		}
	}
	st.scenes = append(st.scenes, dup)
	st.normalizeLocked()
	st.mu.Unlock()

	st.notify()
	return &dup
}

const copySuffix = " (Copy)"

// copyTitle appends the duplicate suffix, trimming the source title so
// the result stays within MaxTitleLen. Truncation backs up to a rune
// boundary so a multi-byte character is never split.
func copyTitle(title string) string {
	max := studio.MaxTitleLen - len(copySuffix)
	if len(title) > max {
		title = title[:max]
		for len(title) > 0 && !utf8.ValidString(title) {
			title = title[:len(title)-1]
		}
	}
	return title + copySuffix
}

// ReorderScenes moves the scene at oldIndex to newIndex (both positions
// in the order-sorted list) and renumbers everything in between. Equal or
// out-of-bounds indices are a no-op.
func (st *State) ReorderScenes(oldIndex, newIndex int) bool {
	st.mu.Lock()

	n := len(st.scenes)
	if oldIndex == newIndex || oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
		st.mu.Unlock()
		return false
	}

	moved := st.scenes[oldIndex]
	st.scenes = append(st.scenes[:oldIndex], st.scenes[oldIndex+1:]...)

	rest := make([]studio.Scene, 0, n)
	rest = append(rest, st.scenes[:newIndex]...)
	rest = append(rest, moved)
	rest = append(rest, st.scenes[newIndex:]...)
	st.scenes = rest

	for i := range st.scenes {
		st.scenes[i].Order = i
	}
	st.mu.Unlock()

	st.notify()
	return true
}

// DistributeDuration splits a total run time equally across all scenes.
// No-op on an empty timeline.
func (st *State) DistributeDuration(totalSec float64) {
	st.mu.Lock()
	if len(st.scenes) == 0 || totalSec <= 0 {
		st.mu.Unlock()
		return
	}

	each := studio.ClampSceneDuration(totalSec / float64(len(st.scenes)))
	now := time.Now()
	for i := range st.scenes {
		st.scenes[i].DurationSec = each
		st.scenes[i].UpdatedAt = now
	}
	st.mu.Unlock()
	st.notify()
}

// ApplyEffectToAll sets every scene's camera effect.
func (st *State) ApplyEffectToAll(kind effects.Kind) {
	st.mu.Lock()
	now := time.Now()
	for i := range st.scenes {
		st.scenes[i].FX = kind
		st.scenes[i].UpdatedAt = now
	}
	st.mu.Unlock()
	st.notify()
}

// MatchToBeatGrid sets every scene's duration to four beats at the given
// tempo. Non-positive tempos fall back to 120 BPM.
func (st *State) MatchToBeatGrid(bpm float64) {
	if bpm <= 0 {
		bpm = defaultBPM
	}
	each := studio.ClampSceneDuration(60.0 / bpm * beatsPerScene)

	st.mu.Lock()
	now := time.Now()
	for i := range st.scenes {
		st.scenes[i].DurationSec = each
		st.scenes[i].UpdatedAt = now
	}
	st.mu.Unlock()
	st.notify()
}

// AddTextStyle appends a style, assigning an id when missing.
func (st *State) AddTextStyle(ts studio.TextStyle) studio.TextStyle {
	if ts.ID == "" {
		ts.ID = studio.NewID()
	}
	if ts.CreatedAt.IsZero() {
		ts.CreatedAt = time.Now()
	}

	st.mu.Lock()
	if st.project != nil && ts.ProjectID == "" {
		ts.ProjectID = st.project.ID
	}
	st.styles = append(st.styles, ts)
	st.mu.Unlock()

	st.notify()
	return ts
}

// UpdateTextStyle replaces the style with the same id. Missing ids are a
// no-op.
func (st *State) UpdateTextStyle(ts studio.TextStyle) bool {
	st.mu.Lock()
	for i := range st.styles {
		if st.styles[i].ID == ts.ID {
			ts.ProjectID = st.styles[i].ProjectID
			ts.CreatedAt = st.styles[i].CreatedAt
			st.styles[i] = ts
			st.mu.Unlock()
			st.notify()
			return true
		}
	}
	st.mu.Unlock()
	return false
}

// RemoveTextStyle deletes a style and clears the reference from every
// scene that pointed at it.
func (st *State) RemoveTextStyle(id string) bool {
	st.mu.Lock()

	found := false
	for i := range st.styles {
		if st.styles[i].ID == id {
			st.styles = append(st.styles[:i], st.styles[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		st.mu.Unlock()
		return false
	}

	now := time.Now()
	for i := range st.scenes {
		if st.scenes[i].TextStyleID == id {
			st.scenes[i].TextStyleID = ""
			st.scenes[i].UpdatedAt = now
		}
	}
	st.mu.Unlock()

	st.notify()
	return true
}

// AddMusicTrack appends a track, assigning an id when missing.
func (st *State) AddMusicTrack(m studio.MusicTrack) studio.MusicTrack {
	if m.ID == "" {
		m.ID = studio.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	st.mu.Lock()
	if st.project != nil && m.ProjectID == "" {
		m.ProjectID = st.project.ID
	}
	st.music = append(st.music, m)
	st.mu.Unlock()

	st.notify()
	return m
}

// UpdateMusicTrack replaces the track with the same id. Missing ids are a
// no-op.
func (st *State) UpdateMusicTrack(m studio.MusicTrack) bool {
	st.mu.Lock()
	for i := range st.music {
		if st.music[i].ID == m.ID {
			m.ProjectID = st.music[i].ProjectID
			m.CreatedAt = st.music[i].CreatedAt
			st.music[i] = m
			st.mu.Unlock()
			st.notify()
			return true
		}
	}
	st.mu.Unlock()
	return false
}

// RemoveMusicTrack deletes a track. Missing ids are a no-op.
func (st *State) RemoveMusicTrack(id string) bool {
	st.mu.Lock()
	for i := range st.music {
		if st.music[i].ID == id {
			st.music = append(st.music[:i], st.music[i+1:]...)
			st.mu.Unlock()
			st.notify()
			return true
		}
	}
	st.mu.Unlock()
	return false
}

func (st *State) indexOfLocked(id string) int {
	for i := range st.scenes {
		if st.scenes[i].ID == id {
			return i
		}
	}
	return -1
}

// normalizeLocked sorts by the order field and renumbers to 0..n-1. The
// order field is the single source of truth; slice position is always
// derived from it here.
func (st *State) normalizeLocked() {
	sort.SliceStable(st.scenes, func(i, j int) bool {
		return st.scenes[i].Order < st.scenes[j].Order
	})
	for i := range st.scenes {
		st.scenes[i].Order = i
	}
}
