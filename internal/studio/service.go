package studio

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StudioService is the persistence boundary for project documents. Edits
// to the scene list itself go through the composition state; this service
// stores and retrieves the results.
type StudioService interface {
	CreateProject(ctx context.Context, title string, aspect AspectRatio, fps int) (*Project, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProject(ctx context.Context, id string, update ProjectUpdate) (*Project, error)
	DeleteProject(ctx context.Context, id string) error

	Snapshot(ctx context.Context, projectID string) (*Snapshot, error)
	SaveScenes(ctx context.Context, projectID string, scenes []Scene) error

	CreateTextStyle(ctx context.Context, ts *TextStyle) error
	UpdateTextStyle(ctx context.Context, ts *TextStyle) error
	DeleteTextStyle(ctx context.Context, projectID, styleID string) error

	CreateMusicTrack(ctx context.Context, m *MusicTrack) error
	UpdateMusicTrack(ctx context.Context, m *MusicTrack) error
	DeleteMusicTrack(ctx context.Context, id string) error
}

// Snapshot is a consistent read of everything a project owns. The frame
// renderer and the render orchestrator both start from one of these.
type Snapshot struct {
	Project *Project     `json:"project"`
	Scenes  []Scene      `json:"scenes"`
	Styles  []TextStyle  `json:"styles"`
	Music   []MusicTrack `json:"music"`
}

// ProjectUpdate is the allow-list of mutable project fields. Nil means
// "leave unchanged".
type ProjectUpdate struct {
	Title           *string      `json:"title,omitempty"`
	AspectRatio     *AspectRatio `json:"aspect_ratio,omitempty"`
	FPS             *int         `json:"fps,omitempty"`
	BackgroundColor *string      `json:"background_color,omitempty"`
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateProject creates a project together with its default text style.
func (s *Service) CreateProject(ctx context.Context, title string, aspect AspectRatio, fps int) (*Project, error) {
	if title == "" {
		title = "Untitled"
	}
	if aspect == "" {
		aspect = AspectPortrait
	}
	if !aspect.Valid() {
		return nil, fmt.Errorf("unsupported aspect ratio %q", aspect)
	}

	now := time.Now()
	project := &Project{
		ID:              NewID(),
		Title:           title,
		AspectRatio:     aspect,
		FPS:             ClampFPS(fps),
		BackgroundColor: "#000000",
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	if err := s.repo.CreateTextStyle(ctx, DefaultTextStyle(project.ID)); err != nil {
		return nil, fmt.Errorf("failed to create default text style: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("project created", "project_id", project.ID, "aspect", aspect)
	}
	return project, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	return s.repo.GetProject(ctx, id)
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) UpdateProject(ctx context.Context, id string, update ProjectUpdate) (*Project, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, nil
	}

	if update.Title != nil {
		project.Title = *update.Title
	}
	if update.AspectRatio != nil {
		if !update.AspectRatio.Valid() {
			return nil, fmt.Errorf("unsupported aspect ratio %q", *update.AspectRatio)
		}
		project.AspectRatio = *update.AspectRatio
	}
	if update.FPS != nil {
		project.FPS = ClampFPS(*update.FPS)
	}
	if update.BackgroundColor != nil {
		if !IsHexColor(*update.BackgroundColor) {
			return nil, fmt.Errorf("invalid background color %q", *update.BackgroundColor)
		}
		project.BackgroundColor = *update.BackgroundColor
	}

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("project deleted", "project_id", id)
	}
	return nil
}

func (s *Service) Snapshot(ctx context.Context, projectID string) (*Snapshot, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, nil
	}

	scenes, err := s.repo.ListScenes(ctx, projectID)
	if err != nil {
		return nil, err
	}
	styles, err := s.repo.ListTextStyles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	music, err := s.repo.ListMusicTracks(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Project: project, Scenes: scenes, Styles: styles, Music: music}, nil
}

func (s *Service) SaveScenes(ctx context.Context, projectID string, scenes []Scene) error {
	if err := s.repo.ReplaceScenes(ctx, projectID, scenes); err != nil {
		return err
	}
	return s.repo.TouchProject(ctx, projectID)
}

func (s *Service) CreateTextStyle(ctx context.Context, ts *TextStyle) error {
	if err := ValidateTextStyle(ts); err != nil {
		return err
	}
	if ts.ID == "" {
		ts.ID = NewID()
	}
	if ts.CreatedAt.IsZero() {
		ts.CreatedAt = time.Now()
	}
	if err := s.repo.CreateTextStyle(ctx, ts); err != nil {
		return err
	}
	return s.repo.TouchProject(ctx, ts.ProjectID)
}

func (s *Service) UpdateTextStyle(ctx context.Context, ts *TextStyle) error {
	if err := ValidateTextStyle(ts); err != nil {
		return err
	}
	if err := s.repo.UpdateTextStyle(ctx, ts); err != nil {
		return err
	}
	return s.repo.TouchProject(ctx, ts.ProjectID)
}

// DeleteTextStyle removes a style and clears it from any scene that
// referenced it, so no scene is left pointing at a missing style.
func (s *Service) DeleteTextStyle(ctx context.Context, projectID, styleID string) error {
	if err := s.repo.DeleteTextStyle(ctx, styleID); err != nil {
		return err
	}

	scenes, err := s.repo.ListScenes(ctx, projectID)
	if err != nil {
		return err
	}

	cleared := false
	for i := range scenes {
		if scenes[i].TextStyleID == styleID {
			scenes[i].TextStyleID = ""
			scenes[i].UpdatedAt = time.Now()
			cleared = true
		}
	}
	if cleared {
		if err := s.repo.ReplaceScenes(ctx, projectID, scenes); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("text style deleted", "project_id", projectID, "style_id", styleID, "references_cleared", cleared)
	}
	return s.repo.TouchProject(ctx, projectID)
}

func (s *Service) CreateMusicTrack(ctx context.Context, m *MusicTrack) error {
	if err := ValidateMusicTrack(m); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if err := s.repo.CreateMusicTrack(ctx, m); err != nil {
		return err
	}
	return s.repo.TouchProject(ctx, m.ProjectID)
}

func (s *Service) UpdateMusicTrack(ctx context.Context, m *MusicTrack) error {
	if err := ValidateMusicTrack(m); err != nil {
		return err
	}
	if err := s.repo.UpdateMusicTrack(ctx, m); err != nil {
		return err
	}
	return s.repo.TouchProject(ctx, m.ProjectID)
}

func (s *Service) DeleteMusicTrack(ctx context.Context, id string) error {
	track, err := s.repo.GetMusicTrack(ctx, id)
	if err != nil {
		return err
	}
	if track == nil {
		return nil
	}
	if err := s.repo.DeleteMusicTrack(ctx, id); err != nil {
		return err
	}
	return s.repo.TouchProject(ctx, track.ProjectID)
}
