package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storyreel/storyreel-agent/internal/composer"
	"github.com/storyreel/storyreel-agent/internal/studio"
)

// editScenes loads the project document, applies one composition edit
// and persists the resulting scene list. The edit callback returns false
// to signal a not-found id, which surfaces as 404 at this boundary.
func editScenes(cfg ServerConfig, w http.ResponseWriter, r *http.Request, edit func(st *composer.State) bool) {
	projectID := chi.URLParam(r, "id")

	snap, err := cfg.StudioService.Snapshot(r.Context(), projectID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if snap == nil {
		WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
		return
	}

	st := composer.NewState(snap)
	if !edit(st) {
		WriteError(w, http.StatusNotFound, "scene not found", "NOT_FOUND")
		return
	}

	scenes := st.Scenes()
	for i := range scenes {
		if err := studio.ValidateScene(&scenes[i]); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
	}

	if err := cfg.StudioService.SaveScenes(r.Context(), projectID, scenes); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	WriteJSON(w, http.StatusOK, ScenesResponse{Scenes: scenes})
}

func addSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddSceneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		probe := studio.Scene{
			Title: req.Title, Body: req.Body, Credit: req.Credit,
			FX: req.FX, Placement: req.Placement, Transition: req.Transition,
			DurationSec: req.DurationSec, TransitionSec: req.TransitionSec,
		}
		if err := studio.ValidateScene(&probe); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		editScenes(cfg, w, r, func(st *composer.State) bool {
			st.AddScene(composer.SceneInput{
				DurationSec:   req.DurationSec,
				ImageURL:      req.ImageURL,
				Title:         req.Title,
				Body:          req.Body,
				Credit:        req.Credit,
				FX:            req.FX,
				Placement:     req.Placement,
				TextStyleID:   req.TextStyleID,
				Transition:    req.Transition,
				TransitionSec: req.TransitionSec,
			})
			return true
		})
	}
}

func updateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update composer.SceneUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		sceneID := chi.URLParam(r, "sceneID")
		editScenes(cfg, w, r, func(st *composer.State) bool {
			return st.UpdateScene(sceneID, update)
		})
	}
}

func deleteSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sceneID := chi.URLParam(r, "sceneID")
		editScenes(cfg, w, r, func(st *composer.State) bool {
			return st.DeleteScene(sceneID)
		})
	}
}

func duplicateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sceneID := chi.URLParam(r, "sceneID")
		editScenes(cfg, w, r, func(st *composer.State) bool {
			return st.DuplicateScene(sceneID) != nil
		})
	}
}

func reorderScenesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderScenesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		editScenes(cfg, w, r, func(st *composer.State) bool {
			// An out-of-range reorder is a stale-index no-op, not an error.
			st.ReorderScenes(req.OldIndex, req.NewIndex)
			return true
		})
	}
}

func distributeDurationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DistributeDurationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.TotalSec <= 0 {
			WriteError(w, http.StatusBadRequest, "total_sec must be positive", "BAD_REQUEST")
			return
		}

		editScenes(cfg, w, r, func(st *composer.State) bool {
			st.DistributeDuration(req.TotalSec)
			return true
		})
	}
}

func applyEffectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ApplyEffectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if !req.FX.Valid() {
			WriteError(w, http.StatusBadRequest, "unknown effect", "BAD_REQUEST")
			return
		}

		editScenes(cfg, w, r, func(st *composer.State) bool {
			st.ApplyEffectToAll(req.FX)
			return true
		})
	}
}

func beatGridHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BeatGridRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		editScenes(cfg, w, r, func(st *composer.State) bool {
			st.MatchToBeatGrid(req.BPM)
			return true
		})
	}
}
