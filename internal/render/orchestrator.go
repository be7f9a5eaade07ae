// Package render owns the lifecycle of render jobs: submission to the
// external media compiler, bounded status polling, and cancellation.
// Rendering never blocks editing; each job is watched by its own
// goroutine until it reaches a terminal state.
package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/storyreel/storyreel-agent/internal/compiler"
	"github.com/storyreel/storyreel-agent/internal/studio"
	"github.com/storyreel/storyreel-agent/internal/timeline"
)

// maxConcurrentWatches bounds how many jobs are polled at once. Extra
// submissions queue until a watcher slot frees up.
const maxConcurrentWatches = 4

type Orchestrator struct {
	repo         studio.Repository
	compiler     compiler.Compiler
	logger       *slog.Logger
	pollInterval time.Duration

	running atomic.Bool
	paused  atomic.Bool

	group *errgroup.Group

	mu      sync.Mutex
	baseCtx context.Context
}

func NewOrchestrator(repo studio.Repository, comp compiler.Compiler, pollInterval time.Duration, logger *slog.Logger) *Orchestrator {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentWatches)
	return &Orchestrator{
		repo:         repo,
		compiler:     comp,
		logger:       logger,
		pollInterval: pollInterval,
		group:        g,
		baseCtx:      context.Background(),
	}
}

// Run parks until the context is cancelled, then waits for all watchers
// to drain. Watchers started before Run use a background context.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.running.Swap(true) {
		return nil
	}
	o.mu.Lock()
	o.baseCtx = ctx
	o.mu.Unlock()

	o.logger.Info("render orchestrator started", "poll_interval", o.pollInterval)
	<-ctx.Done()
	o.logger.Info("render orchestrator stopping")
	o.running.Store(false)
	return o.group.Wait()
}

// Pause suspends status polling without cancelling remote jobs. Used by
// the tray menu.
func (o *Orchestrator) Pause() {
	o.paused.Store(true)
	o.logger.Info("render polling paused")
}

func (o *Orchestrator) Resume() {
	o.paused.Store(false)
	o.logger.Info("render polling resumed")
}

func (o *Orchestrator) IsPaused() bool {
	return o.paused.Load()
}

// Submit sends the composition to the compiler and starts a watcher.
// The job row exists before the remote call so a crash mid-submit still
// leaves a visible (and restart-recoverable) record.
func (o *Orchestrator) Submit(ctx context.Context, snap *studio.Snapshot, settings compiler.Settings) (*studio.RenderJob, error) {
	if snap == nil || snap.Project == nil {
		return nil, fmt.Errorf("no project to render")
	}
	if len(snap.Scenes) == 0 {
		return nil, fmt.Errorf("project has no scenes")
	}
	if err := settings.Normalize(snap.Project); err != nil {
		return nil, err
	}

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	now := time.Now()
	job := &studio.RenderJob{
		ID:        studio.NewID(),
		ProjectID: snap.Project.ID,
		Status:    studio.RenderStatusQueued,
		Settings:  string(settingsJSON),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.repo.CreateRenderJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create render job: %w", err)
	}

	spec := compiler.RenderSpec{
		Project:          snap.Project,
		Scenes:           snap.Scenes,
		Styles:           snap.Styles,
		Music:            snap.Music,
		TotalDurationSec: timeline.TotalDuration(snap.Scenes),
		Settings:         settings,
	}

	state, err := o.compiler.Submit(ctx, spec)
	if err != nil {
		job.Status = studio.RenderStatusError
		job.Log = appendLog(job.Log, fmt.Sprintf("submit failed: %v", err))
		job.UpdatedAt = time.Now()
		if uerr := o.repo.UpdateRenderJob(ctx, job); uerr != nil {
			o.logger.Error("failed to record submit failure", "job_id", job.ID, "error", uerr)
		}
		return nil, fmt.Errorf("submit render: %w", err)
	}

	job.RemoteID = state.RemoteID
	job.Status = state.Status
	job.Progress = state.Progress
	job.Log = appendLog(job.Log, state.Log)
	job.UpdatedAt = time.Now()
	if err := o.repo.UpdateRenderJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update render job: %w", err)
	}

	o.logger.Info("render submitted",
		"job_id", job.ID,
		"remote_id", job.RemoteID,
		"project_id", job.ProjectID,
		"scene_count", len(snap.Scenes),
	)

	o.watchAsync(job.ID)
	return job, nil
}

// Get is an idempotent read of the stored job state.
func (o *Orchestrator) Get(ctx context.Context, jobID string) (*studio.RenderJob, error) {
	return o.repo.GetRenderJob(ctx, jobID)
}

// List returns recent jobs for a project, newest first.
func (o *Orchestrator) List(ctx context.Context, projectID string, limit int) ([]*studio.RenderJob, error) {
	return o.repo.ListRenderJobs(ctx, projectID, limit)
}

// Cancel stops a queued or rendering job. Terminal jobs are a no-op.
// Remote cancellation is best-effort: a failure there still marks the
// local job cancelled so the UI stops showing it as active.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) (*studio.RenderJob, error) {
	job, err := o.repo.GetRenderJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	if studio.IsTerminalRenderStatus(job.Status) {
		return job, nil
	}

	if job.RemoteID != "" {
		if err := o.compiler.Cancel(ctx, job.RemoteID); err != nil {
			o.logger.Warn("remote cancel failed", "job_id", job.ID, "remote_id", job.RemoteID, "error", err)
			job.Log = appendLog(job.Log, fmt.Sprintf("remote cancel failed: %v", err))
		}
	}

	job.Status = studio.RenderStatusCancelled
	job.Log = appendLog(job.Log, "cancelled by user")
	job.UpdatedAt = time.Now()
	if err := o.repo.UpdateRenderJob(ctx, job); err != nil {
		return nil, err
	}
	o.logger.Info("render cancelled", "job_id", job.ID)
	return job, nil
}

// ActiveCount reports how many jobs are queued or rendering. Used by
// the tray.
func (o *Orchestrator) ActiveCount(ctx context.Context) int {
	jobs, err := o.repo.ListActiveRenderJobs(ctx)
	if err != nil {
		return 0
	}
	return len(jobs)
}

func (o *Orchestrator) watchAsync(jobID string) {
	o.mu.Lock()
	ctx := o.baseCtx
	o.mu.Unlock()

	o.group.Go(func() error {
		o.watch(ctx, jobID)
		return nil
	})
}

// watch polls the compiler until the job reaches a terminal state or the
// context ends. Pausing skips polls but keeps the watcher alive.
func (o *Orchestrator) watch(ctx context.Context, jobID string) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if o.paused.Load() {
				continue
			}
			done := o.pollOnce(ctx, jobID)
			if done {
				return
			}
		}
	}
}

// pollOnce reports true when polling should stop.
func (o *Orchestrator) pollOnce(ctx context.Context, jobID string) bool {
	job, err := o.repo.GetRenderJob(ctx, jobID)
	if err != nil || job == nil {
		o.logger.Error("watcher lost its job row", "job_id", jobID, "error", err)
		return true
	}
	if studio.IsTerminalRenderStatus(job.Status) {
		// Cancelled locally while we were between polls.
		return true
	}

	state, err := o.compiler.Poll(ctx, job.RemoteID)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) && !ce.IsRetryable() {
			job.Status = studio.RenderStatusError
			job.Log = appendLog(job.Log, fmt.Sprintf("poll failed permanently: %v", err))
			job.UpdatedAt = time.Now()
			if uerr := o.repo.UpdateRenderJob(ctx, job); uerr != nil {
				o.logger.Error("failed to record poll failure", "job_id", job.ID, "error", uerr)
			}
			return true
		}
		o.logger.Warn("render poll failed, will retry", "job_id", job.ID, "error", err)
		return false
	}

	// Progress from the compiler is monotonically non-decreasing while
	// rendering. A regression is a data-quality warning from the external
	// system, not an error: hold the high-water mark.
	progress := state.Progress
	if progress < job.Progress {
		o.logger.Warn("render progress regressed, holding previous value",
			"job_id", job.ID, "stored", job.Progress, "reported", progress)
		progress = job.Progress
	}

	job.Status = state.Status
	job.Progress = progress
	if state.OutputURL != "" {
		job.OutputURL = state.OutputURL
	}
	if state.Log != "" && state.Log != job.Log {
		job.Log = state.Log
	}
	job.UpdatedAt = time.Now()

	if err := o.repo.UpdateRenderJob(ctx, job); err != nil {
		o.logger.Error("failed to persist render status", "job_id", job.ID, "error", err)
		return false
	}

	if studio.IsTerminalRenderStatus(job.Status) {
		o.logger.Info("render finished",
			"job_id", job.ID,
			"status", job.Status,
			"output_url", job.OutputURL,
		)
		return true
	}
	return false
}

func appendLog(existing, line string) string {
	if line == "" {
		return existing
	}
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
