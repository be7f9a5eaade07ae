package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", createProjectHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Patch("/projects/{id}", updateProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))

		r.Post("/projects/{id}/scenes", addSceneHandler(cfg))
		r.Patch("/projects/{id}/scenes/{sceneID}", updateSceneHandler(cfg))
		r.Delete("/projects/{id}/scenes/{sceneID}", deleteSceneHandler(cfg))
		r.Post("/projects/{id}/scenes/{sceneID}/duplicate", duplicateSceneHandler(cfg))
		r.Post("/projects/{id}/scenes/reorder", reorderScenesHandler(cfg))
		r.Post("/projects/{id}/scenes/distribute", distributeDurationHandler(cfg))
		r.Post("/projects/{id}/scenes/apply-effect", applyEffectHandler(cfg))
		r.Post("/projects/{id}/scenes/beat-grid", beatGridHandler(cfg))

		r.Post("/projects/{id}/styles", createTextStyleHandler(cfg))
		r.Put("/projects/{id}/styles/{styleID}", updateTextStyleHandler(cfg))
		r.Delete("/projects/{id}/styles/{styleID}", deleteTextStyleHandler(cfg))

		r.Post("/projects/{id}/music", createMusicTrackHandler(cfg))
		r.Put("/projects/{id}/music/{trackID}", updateMusicTrackHandler(cfg))
		r.Delete("/projects/{id}/music/{trackID}", deleteMusicTrackHandler(cfg))

		r.Get("/projects/{id}/frame", previewFrameHandler(cfg))
		r.Get("/projects/{id}/playback", playbackStatusHandler(cfg))
		r.Post("/projects/{id}/playback/play", playbackPlayHandler(cfg))
		r.Post("/projects/{id}/playback/pause", playbackPauseHandler(cfg))
		r.Post("/projects/{id}/playback/seek", playbackSeekHandler(cfg))
		r.Post("/projects/{id}/playback/rate", playbackRateHandler(cfg))
		r.Get("/projects/{id}/export/edl", exportEDLHandler(cfg))

		r.Post("/projects/{id}/render", submitRenderHandler(cfg))
		r.Get("/projects/{id}/render", listRenderJobsHandler(cfg))
		r.Get("/render/{jobID}", getRenderJobHandler(cfg))
		r.Post("/render/{jobID}/cancel", cancelRenderJobHandler(cfg))

		r.Post("/upload/image", uploadImageHandler(cfg))
		r.Post("/upload/audio", uploadAudioHandler(cfg))
		r.Get("/media/*", mediaHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		projects, _ := cfg.StudioService.ListProjects(ctx)

		state := "idle"
		active := 0
		if cfg.Orchestrator != nil {
			active = cfg.Orchestrator.ActiveCount(ctx)
			switch {
			case cfg.Orchestrator.IsPaused():
				state = "paused"
			case active > 0:
				state = "rendering"
			}
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:         state,
			ProjectsCount: len(projects),
			RendersActive: active,
			Version:       cfg.Version,
		})
	}
}
