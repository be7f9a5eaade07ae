package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/storyreel/storyreel-agent/internal/composer"
	"github.com/storyreel/storyreel-agent/internal/export"
	"github.com/storyreel/storyreel-agent/internal/frame"
)

// previewFrameHandler returns the declarative frame description the
// editor's canvas draws. ?t=<seconds> scrubs to an explicit time;
// without it the project's preview clock supplies the playhead.
func previewFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := cfg.StudioService.Snapshot(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if snap == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		t := 0.0
		if raw := r.URL.Query().Get("t"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "t must be a number of seconds", "BAD_REQUEST")
				return
			}
			t = parsed
		} else if clock := cfg.Playback.Clock(snap.Project.ID); clock != nil {
			t = clock.Position()
		}

		WriteJSON(w, http.StatusOK, frame.Render(composer.NewState(snap), t))
	}
}

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := cfg.StudioService.Snapshot(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if snap == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		if len(snap.Scenes) == 0 {
			WriteError(w, http.StatusBadRequest, "project has no scenes", "BAD_REQUEST")
			return
		}

		name := export.SanitizeName(snap.Project.Title, 60)
		if name == "" {
			name = "timeline"
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.edl"`)
		w.Write([]byte(export.GenerateEDL(snap.Project, snap.Scenes)))
	}
}

func uploadImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "multipart field 'file' is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		result, err := cfg.Uploads.SaveImage(file, header.Filename)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusCreated, result)
	}
}

func uploadAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "multipart field 'file' is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		result, err := cfg.Uploads.SaveAudio(file, header.Filename)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusCreated, result)
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		if name == "" {
			WriteError(w, http.StatusBadRequest, "media name required", "BAD_REQUEST")
			return
		}
		if err := cfg.Media.ServeMedia(w, r, name); err != nil {
			cfg.Logger.Error("media serve error", "error", err, "name", name)
		}
	}
}
