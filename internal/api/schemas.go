package api

import (
	"time"

	"github.com/storyreel/storyreel-agent/internal/compiler"
	"github.com/storyreel/storyreel-agent/internal/effects"
	"github.com/storyreel/storyreel-agent/internal/studio"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State         string `json:"state"`
	ProjectsCount int    `json:"projects_count"`
	RendersActive int    `json:"renders_active"`
	Version       string `json:"version"`
}

type CreateProjectRequest struct {
	Title       string             `json:"title"`
	AspectRatio studio.AspectRatio `json:"aspect_ratio,omitempty"`
	FPS         int                `json:"fps,omitempty"`
}

type ProjectsResponse struct {
	Projects []*studio.Project `json:"projects"`
}

type AddSceneRequest struct {
	DurationSec   float64                `json:"duration_sec,omitempty"`
	ImageURL      string                 `json:"image_url,omitempty"`
	Title         string                 `json:"title,omitempty"`
	Body          string                 `json:"body,omitempty"`
	Credit        string                 `json:"credit,omitempty"`
	FX            effects.Kind           `json:"fx,omitempty"`
	Placement     studio.Placement       `json:"placement,omitempty"`
	TextStyleID   string                 `json:"text_style_id,omitempty"`
	Transition    effects.TransitionKind `json:"transition,omitempty"`
	TransitionSec float64                `json:"transition_sec,omitempty"`
}

type ReorderScenesRequest struct {
	OldIndex int `json:"old_index"`
	NewIndex int `json:"new_index"`
}

type DistributeDurationRequest struct {
	TotalSec float64 `json:"total_sec"`
}

type ApplyEffectRequest struct {
	FX effects.Kind `json:"fx"`
}

type BeatGridRequest struct {
	BPM float64 `json:"bpm"`
}

type PlaybackSeekRequest struct {
	T float64 `json:"t"`
}

type PlaybackRateRequest struct {
	Rate float64 `json:"rate"`
}

type PlaybackStatusResponse struct {
	PositionSec float64 `json:"position_sec"`
	Rate        float64 `json:"rate"`
	Playing     bool    `json:"playing"`
	TotalSec    float64 `json:"total_sec"`
}

type ScenesResponse struct {
	Scenes []studio.Scene `json:"scenes"`
}

type RenderSubmitRequest struct {
	Settings compiler.Settings `json:"settings"`
}

type RenderJobResponse struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"project_id"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	OutputURL string  `json:"output_url,omitempty"`
	Log       string  `json:"log,omitempty"`
	Settings  string  `json:"settings"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type RenderJobsResponse struct {
	Jobs []RenderJobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func RenderJobToResponse(j *studio.RenderJob) RenderJobResponse {
	return RenderJobResponse{
		ID:        j.ID,
		ProjectID: j.ProjectID,
		Status:    j.Status,
		Progress:  j.Progress,
		OutputURL: j.OutputURL,
		Log:       j.Log,
		Settings:  j.Settings,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}
