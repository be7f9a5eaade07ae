// Package compiler talks to the external media compiler that turns a
// composition into a finished video. The agent never encodes anything
// itself; it submits a render spec, polls for status and reflects the
// result.
package compiler

import (
	"fmt"

	"github.com/storyreel/storyreel-agent/internal/studio"
)

// Quality selects the bitrate tier for the encode.
type Quality string

const (
	QualityDraft    Quality = "draft"
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

// BitrateMultiplier maps the quality tier onto the compiler's
// duration-based bitrate estimate.
func (q Quality) BitrateMultiplier() float64 {
	switch q {
	case QualityDraft:
		return 2
	case QualityHigh:
		return 8
	default:
		return 5
	}
}

func (q Quality) Valid() bool {
	return q == QualityDraft || q == QualityStandard || q == QualityHigh
}

// Format is the output container.
type Format string

const (
	FormatMP4 Format = "mp4"
	FormatGIF Format = "gif"
)

func (f Format) Valid() bool {
	return f == FormatMP4 || f == FormatGIF
}

const (
	MinDimensionPx = 360
	MaxDimensionPx = 4096
)

var allowedFPS = map[int]bool{24: true, 25: true, 30: true, 60: true}

// Settings are the user-facing render knobs.
type Settings struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	FPS              int     `json:"fps"`
	Quality          Quality `json:"quality"`
	Format           Format  `json:"format"`
	IncludeSubtitles bool    `json:"include_subtitles"`
}

// Normalize fills defaults from the project and validates the rest.
// Dimensions outside 360-4096 and fps outside {24,25,30,60} are errors,
// not clamps: the caller chose them explicitly.
func (s *Settings) Normalize(project *studio.Project) error {
	if s.Width == 0 && s.Height == 0 && project != nil {
		s.Width, s.Height = project.AspectRatio.Size()
	}
	if s.FPS == 0 && project != nil {
		s.FPS = project.FPS
	}
	if s.Quality == "" {
		s.Quality = QualityStandard
	}
	if s.Format == "" {
		s.Format = FormatMP4
	}

	if s.Width < MinDimensionPx || s.Width > MaxDimensionPx {
		return fmt.Errorf("width %d out of range %d-%d", s.Width, MinDimensionPx, MaxDimensionPx)
	}
	if s.Height < MinDimensionPx || s.Height > MaxDimensionPx {
		return fmt.Errorf("height %d out of range %d-%d", s.Height, MinDimensionPx, MaxDimensionPx)
	}
	if !allowedFPS[s.FPS] {
		return fmt.Errorf("fps %d not one of 24, 25, 30, 60", s.FPS)
	}
	if !s.Quality.Valid() {
		return fmt.Errorf("unknown quality %q", s.Quality)
	}
	if !s.Format.Valid() {
		return fmt.Errorf("unknown format %q", s.Format)
	}
	return nil
}

// RenderSpec is the full payload handed to the compiler: resolved
// scenes, their text styles, the music bed and the target settings.
type RenderSpec struct {
	Project          *studio.Project     `json:"project"`
	Scenes           []studio.Scene      `json:"scenes"`
	Styles           []studio.TextStyle  `json:"styles"`
	Music            []studio.MusicTrack `json:"music,omitempty"`
	TotalDurationSec float64             `json:"total_duration_sec"`
	Settings         Settings            `json:"settings"`
}

// JobState is the compiler's view of a render, returned by Submit and
// Poll.
type JobState struct {
	RemoteID  string  `json:"id"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	OutputURL string  `json:"output_url,omitempty"`
	Log       string  `json:"log,omitempty"`
}
