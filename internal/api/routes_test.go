package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storyreel/storyreel-agent/internal/compiler"
	"github.com/storyreel/storyreel-agent/internal/db"
	"github.com/storyreel/storyreel-agent/internal/playback"
	"github.com/storyreel/storyreel-agent/internal/render"
	"github.com/storyreel/storyreel-agent/internal/studio"
	"github.com/storyreel/storyreel-agent/internal/timeline"
	"github.com/storyreel/storyreel-agent/internal/upload"
)

const testToken = "test-token"

type testEnv struct {
	server *httptest.Server
	svc    *studio.Service
	repo   studio.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	repo := studio.NewRepository(database.Conn())
	require.NoError(t, repo.SetConfig(context.Background(), "auth_token", testToken))

	svc := studio.NewService(repo, logger)

	mediaDir := filepath.Join(t.TempDir(), "media")
	uploads, err := upload.NewStore(mediaDir, logger)
	require.NoError(t, err)

	// Long enough that jobs stay in flight for the duration of a test.
	stub := compiler.NewStubCompiler(logger)
	stub.EncodeDuration = time.Hour
	orch := render.NewOrchestrator(repo, stub, time.Hour, logger)

	sessions := playback.NewSessions(func(projectID string) func() float64 {
		return func() float64 {
			scenes, err := repo.ListScenes(context.Background(), projectID)
			if err != nil {
				return 0
			}
			return timeline.TotalDuration(scenes)
		}
	}, logger)
	t.Cleanup(sessions.Close)

	router := NewRouter(ServerConfig{
		Port:          0,
		StudioService: svc,
		Repository:    repo,
		Orchestrator:  orch,
		Uploads:       uploads,
		Media:         playback.NewMediaServer(mediaDir, logger),
		Playback:      sessions,
		Logger:        logger,
		StartTime:     time.Now(),
		Version:       "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, svc: svc, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func (e *testEnv) createProject(t *testing.T) *studio.Project {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/projects", CreateProjectRequest{Title: "API Test"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var project studio.Project
	decodeInto(t, resp, &project)
	return &project
}

func (e *testEnv) addScene(t *testing.T, projectID string, req AddSceneRequest) ScenesResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/projects/"+projectID+"/scenes", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var scenes ScenesResponse
	decodeInto(t, resp, &scenes)
	return scenes
}

func TestHealthNeedsNoAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "ok", health.Status)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/projects")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	resp := env.do(t, http.MethodGet, "/projects", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list ProjectsResponse
	decodeInto(t, resp, &list)
	require.Len(t, list.Projects, 1)

	resp = env.do(t, http.MethodGet, "/projects/"+project.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap studio.Snapshot
	decodeInto(t, resp, &snap)
	require.Equal(t, project.ID, snap.Project.ID)
	require.Len(t, snap.Styles, 1, "new project carries the default text style")

	title := "Renamed"
	resp = env.do(t, http.MethodPatch, "/projects/"+project.ID, studio.ProjectUpdate{Title: &title})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated studio.Project
	decodeInto(t, resp, &updated)
	require.Equal(t, "Renamed", updated.Title)

	resp = env.do(t, http.MethodDelete, "/projects/"+project.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/projects/"+project.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSceneOperations(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	scenes := env.addScene(t, project.ID, AddSceneRequest{Title: "First", DurationSec: 5})
	require.Len(t, scenes.Scenes, 1)
	require.Equal(t, 0, scenes.Scenes[0].Order)

	scenes = env.addScene(t, project.ID, AddSceneRequest{Title: "Second", DurationSec: 3})
	require.Len(t, scenes.Scenes, 2)
	first, second := scenes.Scenes[0], scenes.Scenes[1]

	// Update one field, leave the rest.
	resp := env.do(t, http.MethodPatch, "/projects/"+project.ID+"/scenes/"+first.ID,
		map[string]any{"title": "First Edited"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &scenes)
	require.Equal(t, "First Edited", scenes.Scenes[0].Title)
	require.Equal(t, 5.0, scenes.Scenes[0].DurationSec)

	// Unknown scene id is a 404 at the HTTP boundary.
	resp = env.do(t, http.MethodPatch, "/projects/"+project.ID+"/scenes/missing",
		map[string]any{"title": "x"})
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Duplicate sits right after its source.
	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/scenes/"+first.ID+"/duplicate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &scenes)
	require.Len(t, scenes.Scenes, 3)
	require.Equal(t, "First Edited (Copy)", scenes.Scenes[1].Title)
	require.Equal(t, []int{0, 1, 2}, []int{scenes.Scenes[0].Order, scenes.Scenes[1].Order, scenes.Scenes[2].Order})

	// Delete renumbers.
	resp = env.do(t, http.MethodDelete, "/projects/"+project.ID+"/scenes/"+scenes.Scenes[1].ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &scenes)
	require.Len(t, scenes.Scenes, 2)
	require.Equal(t, 0, scenes.Scenes[0].Order)
	require.Equal(t, 1, scenes.Scenes[1].Order)

	// Reorder swaps.
	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/scenes/reorder",
		ReorderScenesRequest{OldIndex: 0, NewIndex: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &scenes)
	require.Equal(t, second.ID, scenes.Scenes[0].ID)

	// Distribute.
	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/scenes/distribute",
		DistributeDurationRequest{TotalSec: 8})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &scenes)
	for _, sc := range scenes.Scenes {
		require.Equal(t, 4.0, sc.DurationSec)
	}

	// Apply effect to all.
	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/scenes/apply-effect",
		ApplyEffectRequest{FX: "kenburns_slow"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &scenes)
	for _, sc := range scenes.Scenes {
		require.Equal(t, "kenburns_slow", string(sc.FX))
	}

	// Beat grid at 120 BPM sets two-second scenes.
	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/scenes/beat-grid",
		BeatGridRequest{BPM: 120})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &scenes)
	for _, sc := range scenes.Scenes {
		require.Equal(t, 2.0, sc.DurationSec)
	}
}

func TestSceneValidationRejected(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	resp := env.do(t, http.MethodPost, "/projects/"+project.ID+"/scenes",
		AddSceneRequest{FX: "spin"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/scenes/apply-effect",
		ApplyEffectRequest{FX: "spin"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDuplicateSceneWithMaxLengthTitle(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	longTitle := strings.Repeat("x", studio.MaxTitleLen)
	scenes := env.addScene(t, project.ID, AddSceneRequest{Title: longTitle, DurationSec: 5})
	require.Len(t, scenes.Scenes, 1)

	resp := env.do(t, http.MethodPost,
		"/projects/"+project.ID+"/scenes/"+scenes.Scenes[0].ID+"/duplicate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var after ScenesResponse
	decodeInto(t, resp, &after)
	require.Len(t, after.Scenes, 2)
	require.LessOrEqual(t, len(after.Scenes[1].Title), studio.MaxTitleLen)
	require.True(t, strings.HasSuffix(after.Scenes[1].Title, " (Copy)"))
}

func TestTextStyleRoutes(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	resp := env.do(t, http.MethodPost, "/projects/"+project.ID+"/styles",
		studio.TextStyle{Name: "Loud", Color: "#ff0000", TitleSize: 80})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var style studio.TextStyle
	decodeInto(t, resp, &style)
	require.NotEmpty(t, style.ID)
	require.Equal(t, project.ID, style.ProjectID)

	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/styles",
		studio.TextStyle{Name: "Bad", Color: "chartreuse"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A scene referencing the style loses the reference on delete.
	scenes := env.addScene(t, project.ID, AddSceneRequest{Title: "Styled", TextStyleID: style.ID})
	require.Equal(t, style.ID, scenes.Scenes[0].TextStyleID)

	resp = env.do(t, http.MethodDelete, "/projects/"+project.ID+"/styles/"+style.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/projects/"+project.ID, nil)
	var snap studio.Snapshot
	decodeInto(t, resp, &snap)
	require.Empty(t, snap.Scenes[0].TextStyleID)
}

func TestMusicTrackRoutes(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	resp := env.do(t, http.MethodPost, "/projects/"+project.ID+"/music",
		studio.MusicTrack{URL: "/media/song.mp3", Volume: 0.8, DuckUnderText: true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var track studio.MusicTrack
	decodeInto(t, resp, &track)
	require.NotEmpty(t, track.ID)

	resp = env.do(t, http.MethodPut, "/projects/"+project.ID+"/music/"+track.ID,
		studio.MusicTrack{URL: "/media/song.mp3", Volume: 0.4})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated studio.MusicTrack
	decodeInto(t, resp, &updated)
	require.Equal(t, 0.4, updated.Volume)

	resp = env.do(t, http.MethodDelete, "/projects/"+project.ID+"/music/"+track.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestPreviewFrame(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)
	env.addScene(t, project.ID, AddSceneRequest{Title: "A", DurationSec: 5, FX: "kenburns_slow"})
	env.addScene(t, project.ID, AddSceneRequest{Title: "B", DurationSec: 3})

	resp := env.do(t, http.MethodGet, "/projects/"+project.ID+"/frame?t=7.5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var desc map[string]any
	decodeInto(t, resp, &desc)
	scene, ok := desc["scene"].(map[string]any)
	require.True(t, ok, "frame description missing scene")
	require.Equal(t, "B", scene["title"])
	require.InDelta(t, 2.5/3.0, desc["progress"].(float64), 1e-6)

	resp = env.do(t, http.MethodGet, "/projects/"+project.ID+"/frame?t=nope", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaybackRoutes(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	// Nothing to play before scenes exist.
	resp := env.do(t, http.MethodPost, "/projects/"+project.ID+"/playback/play", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.addScene(t, project.ID, AddSceneRequest{Title: "A", DurationSec: 5})
	env.addScene(t, project.ID, AddSceneRequest{Title: "B", DurationSec: 3})

	var status PlaybackStatusResponse
	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/playback/play", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &status)
	require.True(t, status.Playing)
	require.InDelta(t, 8.0, status.TotalSec, 1e-9)

	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/playback/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &status)
	require.False(t, status.Playing)

	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/playback/seek", PlaybackSeekRequest{T: 7.5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &status)
	require.InDelta(t, 7.5, status.PositionSec, 1e-9)

	// With no ?t= the frame endpoint reads the clock's playhead.
	resp = env.do(t, http.MethodGet, "/projects/"+project.ID+"/frame", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var desc map[string]any
	decodeInto(t, resp, &desc)
	scene, ok := desc["scene"].(map[string]any)
	require.True(t, ok, "frame description missing scene")
	require.Equal(t, "B", scene["title"])

	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/playback/rate", PlaybackRateRequest{Rate: 0})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/projects/"+project.ID+"/playback/rate", PlaybackRateRequest{Rate: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &status)
	require.InDelta(t, 2.0, status.Rate, 1e-9)

	resp = env.do(t, http.MethodGet, "/projects/"+project.ID+"/playback", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &status)
	require.InDelta(t, 7.5, status.PositionSec, 1e-9)

	resp = env.do(t, http.MethodPost, "/projects/missing/playback/play", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportEDL(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	resp := env.do(t, http.MethodGet, "/projects/"+project.ID+"/export/edl", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "empty project exports nothing")

	env.addScene(t, project.ID, AddSceneRequest{Title: "Clip", DurationSec: 2})
	resp = env.do(t, http.MethodGet, "/projects/"+project.ID+"/export/edl", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(body), "TITLE: API Test")
	require.Contains(t, string(body), "FROM CLIP NAME:  Clip")
}

func TestRenderRoutes(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)
	env.addScene(t, project.ID, AddSceneRequest{Title: "Only", DurationSec: 2})

	resp := env.do(t, http.MethodPost, "/projects/"+project.ID+"/render", RenderSubmitRequest{})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var job RenderJobResponse
	decodeInto(t, resp, &job)
	require.Equal(t, studio.RenderStatusQueued, job.Status)

	resp = env.do(t, http.MethodGet, "/render/"+job.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/projects/"+project.ID+"/render", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jobs RenderJobsResponse
	decodeInto(t, resp, &jobs)
	require.Len(t, jobs.Jobs, 1)

	resp = env.do(t, http.MethodPost, "/render/"+job.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cancelled RenderJobResponse
	decodeInto(t, resp, &cancelled)
	require.Equal(t, studio.RenderStatusCancelled, cancelled.Status)

	resp = env.do(t, http.MethodGet, "/render/missing", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRenderRejectsEmptyProject(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	resp := env.do(t, http.MethodPost, "/projects/"+project.ID+"/render", RenderSubmitRequest{})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadAndServeImage(t *testing.T) {
	env := newTestEnv(t)

	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	img.Set(10, 10, color.RGBA{R: 255, A: 255})
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/upload/image", &body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result upload.Result
	decodeInto(t, resp, &result)
	require.Equal(t, "image/jpeg", result.Mime)

	// The stored file streams back through the media route.
	resp = env.do(t, http.MethodGet, result.URL, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
}

func TestStatusReflectsActivity(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t)

	resp := env.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status StatusResponse
	decodeInto(t, resp, &status)
	require.Equal(t, "idle", status.State)
	require.Equal(t, 1, status.ProjectsCount)
	require.Equal(t, 0, status.RendersActive)
}
