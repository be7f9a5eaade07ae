package playback

import (
	"context"
	"log/slog"
	"sync"
)

// Sessions hands out one preview clock per project and owns the 30fps
// tick loop behind each of them. A clock is created on first use and
// keeps running until its project is dropped or the agent shuts down.
type Sessions struct {
	totalFor func(projectID string) func() float64
	logger   *slog.Logger

	mu      sync.Mutex
	clocks  map[string]*Clock
	cancels map[string]context.CancelFunc
	closed  bool
}

// NewSessions builds an empty registry. totalFor supplies, per project,
// the duration callback its clock reads on every tick.
func NewSessions(totalFor func(projectID string) func() float64, logger *slog.Logger) *Sessions {
	return &Sessions{
		totalFor: totalFor,
		logger:   logger,
		clocks:   make(map[string]*Clock),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Clock returns the project's preview clock, starting its tick loop the
// first time the project is seen. Returns nil after Close.
func (s *Sessions) Clock(projectID string) *Clock {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if c, ok := s.clocks[projectID]; ok {
		return c
	}

	c := NewClock(s.totalFor(projectID), nil, s.logger)
	ctx, cancel := context.WithCancel(context.Background())
	s.clocks[projectID] = c
	s.cancels[projectID] = cancel
	go c.Run(ctx)

	s.logger.Debug("preview clock started", "project_id", projectID)
	return c
}

// Drop stops and forgets the project's clock. Dropping an unknown
// project is a no-op.
func (s *Sessions) Drop(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.cancels[projectID]; ok {
		cancel()
		delete(s.cancels, projectID)
		delete(s.clocks, projectID)
	}
}

// Close stops every clock. The registry hands out no clocks afterwards.
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
		delete(s.clocks, id)
	}
	s.closed = true
}
