package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storyreel/storyreel-agent/internal/playback"
	"github.com/storyreel/storyreel-agent/internal/studio"
	"github.com/storyreel/storyreel-agent/internal/timeline"
)

// projectClock resolves the project and returns its preview clock, or
// nil after writing the error response.
func projectClock(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (*playback.Clock, *studio.Snapshot) {
	snap, err := cfg.StudioService.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return nil, nil
	}
	if snap == nil {
		WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
		return nil, nil
	}

	clock := cfg.Playback.Clock(snap.Project.ID)
	if clock == nil {
		WriteError(w, http.StatusServiceUnavailable, "playback is shut down", "UNAVAILABLE")
		return nil, nil
	}
	return clock, snap
}

func playbackStatus(clock *playback.Clock, snap *studio.Snapshot) PlaybackStatusResponse {
	return PlaybackStatusResponse{
		PositionSec: clock.Position(),
		Rate:        clock.Rate(),
		Playing:     clock.IsPlaying(),
		TotalSec:    timeline.TotalDuration(snap.Scenes),
	}
}

func playbackStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clock, snap := projectClock(cfg, w, r)
		if clock == nil {
			return
		}
		WriteJSON(w, http.StatusOK, playbackStatus(clock, snap))
	}
}

func playbackPlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clock, snap := projectClock(cfg, w, r)
		if clock == nil {
			return
		}
		if !clock.Play() {
			WriteError(w, http.StatusBadRequest, "project has no scenes to play", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, playbackStatus(clock, snap))
	}
}

func playbackPauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clock, snap := projectClock(cfg, w, r)
		if clock == nil {
			return
		}
		clock.Pause()
		WriteJSON(w, http.StatusOK, playbackStatus(clock, snap))
	}
}

func playbackSeekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaybackSeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		clock, snap := projectClock(cfg, w, r)
		if clock == nil {
			return
		}
		clock.Seek(req.T)
		WriteJSON(w, http.StatusOK, playbackStatus(clock, snap))
	}
}

func playbackRateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaybackRateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		clock, snap := projectClock(cfg, w, r)
		if clock == nil {
			return
		}
		if !clock.SetRate(req.Rate) {
			WriteError(w, http.StatusBadRequest, "rate must be greater than zero", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, playbackStatus(clock, snap))
	}
}
