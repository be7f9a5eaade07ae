package studio

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storyreel/storyreel-agent/internal/effects"
)

// AspectRatio is a "WIDTHxHEIGHT" pair from a fixed set of output shapes.
type AspectRatio string

const (
	AspectPortrait  AspectRatio = "1080x1920"
	AspectLandscape AspectRatio = "1920x1080"
	AspectSquare    AspectRatio = "1080x1080"
	AspectVertical  AspectRatio = "1080x1350"
)

var AspectRatios = []AspectRatio{AspectPortrait, AspectLandscape, AspectSquare, AspectVertical}

// Valid reports whether a is one of the supported output shapes.
func (a AspectRatio) Valid() bool {
	for _, known := range AspectRatios {
		if a == known {
			return true
		}
	}
	return false
}

// Size splits the ratio into pixel width and height. Falls back to
// portrait for unknown values so callers always get a drawable frame.
func (a AspectRatio) Size() (width, height int) {
	parts := strings.SplitN(string(a), "x", 2)
	if len(parts) != 2 {
		return AspectPortrait.Size()
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 1080, 1920
	}
	return w, h
}

// Placement positions scene text inside the frame's safe area.
type Placement string

const (
	PlacementTop    Placement = "top"
	PlacementBottom Placement = "bottom"
	PlacementCustom Placement = "custom"
)

func (p Placement) Valid() bool {
	return p == PlacementTop || p == PlacementBottom || p == PlacementCustom
}

// Field limits enforced at the input-validation boundary.
const (
	MinFPS = 24
	MaxFPS = 60

	MinSceneDurationSec = 0.25
	MaxSceneDurationSec = 30.0

	MaxTitleLen  = 100
	MaxBodyLen   = 500
	MaxCreditLen = 200

	MinTitleSize = 28
	MaxTitleSize = 120
	MinBodySize  = 16
	MaxBodySize  = 80
	MinPadding   = 8
	MaxPadding   = 64
	MaxOutline   = 8.0
)

// Project is the root document. Scenes, text styles and music tracks are
// owned by exactly one project and refer to it by id only.
type Project struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	AspectRatio     AspectRatio `json:"aspect_ratio"`
	FPS             int         `json:"fps"`
	BackgroundColor string      `json:"background_color"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Scene is one timed slot on the timeline. Order is zero-based, unique and
// contiguous within a project; array position is always derived by sorting
// on it, never assumed.
type Scene struct {
	ID            string                 `json:"id"`
	ProjectID     string                 `json:"project_id"`
	Order         int                    `json:"order"`
	DurationSec   float64                `json:"duration_sec"`
	ImageURL      string                 `json:"image_url,omitempty"`
	Title         string                 `json:"title,omitempty"`
	Body          string                 `json:"body,omitempty"`
	Credit        string                 `json:"credit,omitempty"`
	FX            effects.Kind           `json:"fx"`
	Placement     Placement              `json:"placement"`
	TextStyleID   string                 `json:"text_style_id,omitempty"`
	Transition    effects.TransitionKind `json:"transition"`
	TransitionSec float64                `json:"transition_sec"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// TextStyle is a reusable text treatment. A scene references at most one
// by id; an unset reference falls back to the project's first style.
type TextStyle struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	TitleFont string    `json:"title_font"`
	BodyFont  string    `json:"body_font"`
	TitleSize int       `json:"title_size"`
	BodySize  int       `json:"body_size"`
	Weight    string    `json:"weight"`
	Align     string    `json:"align"`
	Shadow    float64   `json:"shadow"`
	Outline   float64   `json:"outline"`
	Color     string    `json:"color"`
	BgBlur    float64   `json:"bg_blur"`
	BgOpacity float64   `json:"bg_opacity"`
	Padding   int       `json:"padding"`
	CreatedAt time.Time `json:"created_at"`
}

// MusicTrack is a background audio reference with a trim window.
// DuckUnderText is a declared intent for the compiler, not a DSP setting.
type MusicTrack struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	URL           string    `json:"url"`
	InSec         float64   `json:"in_sec"`
	OutSec        *float64  `json:"out_sec,omitempty"`
	Volume        float64   `json:"volume"`
	DuckUnderText bool      `json:"duck_under_text"`
	CreatedAt     time.Time `json:"created_at"`
}

// Render job statuses. Queued and rendering are in flight; the rest are
// terminal.
const (
	RenderStatusQueued    = "queued"
	RenderStatusRendering = "rendering"
	RenderStatusDone      = "done"
	RenderStatusError     = "error"
	RenderStatusCancelled = "cancelled"
)

// IsTerminalRenderStatus reports whether a job in this status will never
// change again and polling can stop.
func IsTerminalRenderStatus(status string) bool {
	return status == RenderStatusDone || status == RenderStatusError || status == RenderStatusCancelled
}

// RenderJob mirrors the external media compiler's view of a render. The
// agent issues requests and reflects status; it never owns the encode.
type RenderJob struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	RemoteID  string    `json:"remote_id,omitempty"`
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
	OutputURL string    `json:"output_url,omitempty"`
	Log       string    `json:"log,omitempty"`
	Settings  string    `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IsHexColor reports whether s is a #rgb or #rrggbb color.
func IsHexColor(s string) bool {
	return hexColorRe.MatchString(s)
}

// ClampFPS forces fps into the supported range.
func ClampFPS(fps int) int {
	if fps < MinFPS {
		return MinFPS
	}
	if fps > MaxFPS {
		return MaxFPS
	}
	return fps
}

// ClampSceneDuration forces a scene duration into the supported range.
func ClampSceneDuration(sec float64) float64 {
	if sec < MinSceneDurationSec {
		return MinSceneDurationSec
	}
	if sec > MaxSceneDurationSec {
		return MaxSceneDurationSec
	}
	return sec
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ValidateScene rejects malformed field values before they reach the
// composition state. Range-bounded numerics are clamped rather than
// rejected; enumerations and text lengths are hard errors.
func ValidateScene(s *Scene) error {
	if s.FX != "" && !s.FX.Valid() {
		return fmt.Errorf("unknown effect %q", s.FX)
	}
	if s.Transition != "" && !s.Transition.Valid() {
		return fmt.Errorf("unknown transition %q", s.Transition)
	}
	if s.Placement != "" && !s.Placement.Valid() {
		return fmt.Errorf("unknown placement %q", s.Placement)
	}
	if len(s.Title) > MaxTitleLen {
		return fmt.Errorf("title exceeds %d characters", MaxTitleLen)
	}
	if len(s.Body) > MaxBodyLen {
		return fmt.Errorf("body exceeds %d characters", MaxBodyLen)
	}
	if len(s.Credit) > MaxCreditLen {
		return fmt.Errorf("credit exceeds %d characters", MaxCreditLen)
	}
	s.DurationSec = ClampSceneDuration(s.DurationSec)
	if s.TransitionSec <= 0 {
		s.TransitionSec = 0.8
	}
	return nil
}

// ValidateTextStyle clamps numeric ranges and rejects malformed colors.
func ValidateTextStyle(ts *TextStyle) error {
	if ts.Color != "" && !IsHexColor(ts.Color) {
		return fmt.Errorf("invalid text color %q", ts.Color)
	}
	switch ts.Weight {
	case "", "400", "600", "700", "800":
	default:
		return fmt.Errorf("unknown font weight %q", ts.Weight)
	}
	switch ts.Align {
	case "", "left", "center", "right":
	default:
		return fmt.Errorf("unknown alignment %q", ts.Align)
	}
	ts.TitleSize = clampInt(ts.TitleSize, MinTitleSize, MaxTitleSize)
	ts.BodySize = clampInt(ts.BodySize, MinBodySize, MaxBodySize)
	ts.Padding = clampInt(ts.Padding, MinPadding, MaxPadding)
	ts.Shadow = clampFloat(ts.Shadow, 0, 1)
	ts.Outline = clampFloat(ts.Outline, 0, MaxOutline)
	ts.BgBlur = clampFloat(ts.BgBlur, 0, 1)
	ts.BgOpacity = clampFloat(ts.BgOpacity, 0, 1)
	return nil
}

// ValidateMusicTrack checks the trim window and clamps volume.
func ValidateMusicTrack(m *MusicTrack) error {
	if m.URL == "" {
		return fmt.Errorf("track url is required")
	}
	if m.InSec < 0 {
		m.InSec = 0
	}
	if m.OutSec != nil && *m.OutSec < m.InSec {
		return fmt.Errorf("out point %.2f is before in point %.2f", *m.OutSec, m.InSec)
	}
	m.Volume = clampFloat(m.Volume, 0, 1)
	return nil
}

// DefaultTextStyle is the style every new project starts with.
func DefaultTextStyle(projectID string) *TextStyle {
	return &TextStyle{
		ID:        NewID(),
		ProjectID: projectID,
		Name:      "Default",
		TitleFont: "Inter",
		BodyFont:  "Inter",
		TitleSize: 64,
		BodySize:  44,
		Weight:    "600",
		Align:     "left",
		Shadow:    0.4,
		Outline:   2,
		Color:     "#ffffff",
		BgBlur:    0,
		BgOpacity: 0,
		Padding:   32,
		CreatedAt: time.Now(),
	}
}
