package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storyreel/storyreel-agent/internal/studio"
)

func createTextStyleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ts studio.TextStyle
		if err := json.NewDecoder(r.Body).Decode(&ts); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		ts.ProjectID = chi.URLParam(r, "id")

		if err := cfg.StudioService.CreateTextStyle(r.Context(), &ts); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusCreated, ts)
	}
}

func updateTextStyleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ts studio.TextStyle
		if err := json.NewDecoder(r.Body).Decode(&ts); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		ts.ID = chi.URLParam(r, "styleID")
		ts.ProjectID = chi.URLParam(r, "id")

		if err := cfg.StudioService.UpdateTextStyle(r.Context(), &ts); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, ts)
	}
}

func deleteTextStyleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		styleID := chi.URLParam(r, "styleID")

		if err := cfg.StudioService.DeleteTextStyle(r.Context(), projectID, styleID); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createMusicTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m studio.MusicTrack
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		m.ProjectID = chi.URLParam(r, "id")

		if err := cfg.StudioService.CreateMusicTrack(r.Context(), &m); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusCreated, m)
	}
}

func updateMusicTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m studio.MusicTrack
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		m.ID = chi.URLParam(r, "trackID")
		m.ProjectID = chi.URLParam(r, "id")

		if err := cfg.StudioService.UpdateMusicTrack(r.Context(), &m); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, m)
	}
}

func deleteMusicTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.StudioService.DeleteMusicTrack(r.Context(), chi.URLParam(r, "trackID")); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
