package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/storyreel/storyreel-agent/internal/studio"
)

// StubCompiler fakes a remote encode for development and tests. Each
// submitted job advances toward done on every poll, proportional to the
// elapsed wall time against a nominal encode duration.
type StubCompiler struct {
	mu     sync.Mutex
	jobs   map[string]*stubJob
	logger *slog.Logger

	// EncodeDuration is how long a fake encode takes end to end.
	EncodeDuration time.Duration
}

type stubJob struct {
	state     JobState
	startedAt time.Time
	cancelled bool
}

func NewStubCompiler(logger *slog.Logger) *StubCompiler {
	return &StubCompiler{
		jobs:           make(map[string]*stubJob),
		logger:         logger,
		EncodeDuration: 3 * time.Second,
	}
}

func (s *StubCompiler) Submit(ctx context.Context, spec RenderSpec) (JobState, error) {
	if len(spec.Scenes) == 0 {
		return JobState{}, fmt.Errorf("render spec has no scenes")
	}

	id := studio.NewID()
	state := JobState{
		RemoteID: id,
		Status:   studio.RenderStatusQueued,
		Log:      fmt.Sprintf("stub: accepted %d scenes, %.1fs total", len(spec.Scenes), spec.TotalDurationSec),
	}

	s.mu.Lock()
	s.jobs[id] = &stubJob{state: state, startedAt: time.Now()}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("stub compiler accepted render", "remote_id", id, "scene_count", len(spec.Scenes))
	}
	return state, nil
}

func (s *StubCompiler) Poll(ctx context.Context, remoteID string) (JobState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[remoteID]
	if !ok {
		return JobState{}, &CompileError{StatusCode: 404, Body: "unknown job " + remoteID}
	}
	if job.cancelled || studio.IsTerminalRenderStatus(job.state.Status) {
		return job.state, nil
	}

	elapsed := time.Since(job.startedAt)
	progress := float64(elapsed) / float64(s.EncodeDuration)
	if progress >= 1 {
		job.state.Status = studio.RenderStatusDone
		job.state.Progress = 1
		job.state.OutputURL = "/media/renders/" + remoteID + ".mp4"
		job.state.Log += "\nstub: encode complete"
	} else {
		job.state.Status = studio.RenderStatusRendering
		if progress > job.state.Progress {
			job.state.Progress = progress
		}
	}
	return job.state, nil
}

func (s *StubCompiler) Cancel(ctx context.Context, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[remoteID]
	if !ok {
		return &CompileError{StatusCode: 404, Body: "unknown job " + remoteID}
	}
	if studio.IsTerminalRenderStatus(job.state.Status) {
		return nil
	}
	job.cancelled = true
	job.state.Status = studio.RenderStatusCancelled
	job.state.Log += "\nstub: cancelled"
	return nil
}

// Complete forces a job to done immediately. Test helper.
func (s *StubCompiler) Complete(remoteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[remoteID]; ok && !studio.IsTerminalRenderStatus(job.state.Status) {
		job.state.Status = studio.RenderStatusDone
		job.state.Progress = 1
		job.state.OutputURL = "/media/renders/" + remoteID + ".mp4"
	}
}

// Fail forces a job to error with the given log line. Test helper.
func (s *StubCompiler) Fail(remoteID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[remoteID]; ok && !studio.IsTerminalRenderStatus(job.state.Status) {
		job.state.Status = studio.RenderStatusError
		job.state.Log += "\n" + reason
	}
}
