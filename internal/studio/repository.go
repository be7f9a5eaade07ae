package studio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/storyreel/storyreel-agent/internal/effects"
)

type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id string) error
	TouchProject(ctx context.Context, id string) error

	ListScenes(ctx context.Context, projectID string) ([]Scene, error)
	GetScene(ctx context.Context, id string) (*Scene, error)
	ReplaceScenes(ctx context.Context, projectID string, scenes []Scene) error

	CreateTextStyle(ctx context.Context, ts *TextStyle) error
	GetTextStyle(ctx context.Context, id string) (*TextStyle, error)
	ListTextStyles(ctx context.Context, projectID string) ([]TextStyle, error)
	UpdateTextStyle(ctx context.Context, ts *TextStyle) error
	DeleteTextStyle(ctx context.Context, id string) error

	CreateMusicTrack(ctx context.Context, m *MusicTrack) error
	GetMusicTrack(ctx context.Context, id string) (*MusicTrack, error)
	ListMusicTracks(ctx context.Context, projectID string) ([]MusicTrack, error)
	UpdateMusicTrack(ctx context.Context, m *MusicTrack) error
	DeleteMusicTrack(ctx context.Context, id string) error

	CreateRenderJob(ctx context.Context, j *RenderJob) error
	GetRenderJob(ctx context.Context, id string) (*RenderJob, error)
	ListRenderJobs(ctx context.Context, projectID string, limit int) ([]*RenderJob, error)
	ListActiveRenderJobs(ctx context.Context) ([]*RenderJob, error)
	UpdateRenderJob(ctx context.Context, j *RenderJob) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, title, aspect_ratio, fps, background_color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, string(p.AspectRatio), p.FPS, p.BackgroundColor,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, aspect_ratio, fps, background_color, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)
	return scanProject(row)
}

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var aspect, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Title, &aspect, &p.FPS, &p.BackgroundColor, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.AspectRatio = AspectRatio(aspect)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, aspect_ratio, fps, background_color, created_at, updated_at
		FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var aspect, createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Title, &aspect, &p.FPS, &p.BackgroundColor, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.AspectRatio = AspectRatio(aspect)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, p *Project) error {
	p.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET title = ?, aspect_ratio = ?, fps = ?, background_color = ?, updated_at = ?
		WHERE id = ?
	`, p.Title, string(p.AspectRatio), p.FPS, p.BackgroundColor, p.UpdatedAt.Format(time.RFC3339), p.ID)
	return err
}

// DeleteProject removes a project. Scenes, text styles, music tracks and
// render jobs go with it via foreign key cascade.
func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) TouchProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE projects SET updated_at = ? WHERE id = ?", time.Now().Format(time.RFC3339), id)
	return err
}

const sceneColumns = `id, project_id, scene_order, duration_sec, image_url, title, body, credit,
		fx, placement, text_style_id, transition, transition_sec, created_at, updated_at`

func (r *SQLiteRepository) ListScenes(ctx context.Context, projectID string) ([]Scene, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sceneColumns+`
		FROM scenes WHERE project_id = ? ORDER BY scene_order
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		s, err := scanSceneRow(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, s)
	}
	return scenes, rows.Err()
}

func (r *SQLiteRepository) GetScene(ctx context.Context, id string) (*Scene, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sceneColumns+`
		FROM scenes WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	s, err := scanSceneRow(rows)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSceneRow(rows *sql.Rows) (Scene, error) {
	var s Scene
	var imageURL, title, body, credit, textStyleID sql.NullString
	var fx, placement, transition, createdAt, updatedAt string

	err := rows.Scan(&s.ID, &s.ProjectID, &s.Order, &s.DurationSec, &imageURL, &title, &body, &credit,
		&fx, &placement, &textStyleID, &transition, &s.TransitionSec, &createdAt, &updatedAt)
	if err != nil {
		return Scene{}, err
	}

	s.ImageURL = imageURL.String
	s.Title = title.String
	s.Body = body.String
	s.Credit = credit.String
	s.TextStyleID = textStyleID.String
	s.FX = effects.Kind(fx)
	s.Placement = Placement(placement)
	s.Transition = effects.TransitionKind(transition)
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return s, nil
}

// ReplaceScenes swaps a project's full scene list in one transaction.
// Edits always go through the composition state, which hands back the
// complete renumbered list, so a wholesale replace keeps the stored order
// contiguous without row-level diffing.
func (r *SQLiteRepository) ReplaceScenes(ctx context.Context, projectID string, scenes []Scene) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM scenes WHERE project_id = ?", projectID); err != nil {
		return err
	}

	for _, s := range scenes {
		if s.ProjectID != projectID {
			return fmt.Errorf("scene %s belongs to project %s, not %s", s.ID, s.ProjectID, projectID)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scenes (`+sceneColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, s.ID, s.ProjectID, s.Order, s.DurationSec,
			nullString(s.ImageURL), nullString(s.Title), nullString(s.Body), nullString(s.Credit),
			string(s.FX), string(s.Placement), nullString(s.TextStyleID),
			string(s.Transition), s.TransitionSec,
			s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) CreateTextStyle(ctx context.Context, ts *TextStyle) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO text_styles (id, project_id, name, title_font, body_font, title_size, body_size,
			weight, align, shadow, outline, color, bg_blur, bg_opacity, padding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ts.ID, ts.ProjectID, ts.Name, ts.TitleFont, ts.BodyFont, ts.TitleSize, ts.BodySize,
		ts.Weight, ts.Align, ts.Shadow, ts.Outline, ts.Color, ts.BgBlur, ts.BgOpacity, ts.Padding,
		ts.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetTextStyle(ctx context.Context, id string) (*TextStyle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, name, title_font, body_font, title_size, body_size,
			weight, align, shadow, outline, color, bg_blur, bg_opacity, padding, created_at
		FROM text_styles WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	ts, err := scanTextStyleRow(rows)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// ListTextStyles returns a project's styles oldest first, so the first
// element is the project's default style.
func (r *SQLiteRepository) ListTextStyles(ctx context.Context, projectID string) ([]TextStyle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, name, title_font, body_font, title_size, body_size,
			weight, align, shadow, outline, color, bg_blur, bg_opacity, padding, created_at
		FROM text_styles WHERE project_id = ? ORDER BY created_at ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var styles []TextStyle
	for rows.Next() {
		ts, err := scanTextStyleRow(rows)
		if err != nil {
			return nil, err
		}
		styles = append(styles, ts)
	}
	return styles, rows.Err()
}

func scanTextStyleRow(rows *sql.Rows) (TextStyle, error) {
	var ts TextStyle
	var createdAt string
	err := rows.Scan(&ts.ID, &ts.ProjectID, &ts.Name, &ts.TitleFont, &ts.BodyFont,
		&ts.TitleSize, &ts.BodySize, &ts.Weight, &ts.Align, &ts.Shadow, &ts.Outline,
		&ts.Color, &ts.BgBlur, &ts.BgOpacity, &ts.Padding, &createdAt)
	if err != nil {
		return TextStyle{}, err
	}
	ts.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return ts, nil
}

func (r *SQLiteRepository) UpdateTextStyle(ctx context.Context, ts *TextStyle) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE text_styles SET name = ?, title_font = ?, body_font = ?, title_size = ?, body_size = ?,
			weight = ?, align = ?, shadow = ?, outline = ?, color = ?, bg_blur = ?, bg_opacity = ?, padding = ?
		WHERE id = ?
	`, ts.Name, ts.TitleFont, ts.BodyFont, ts.TitleSize, ts.BodySize,
		ts.Weight, ts.Align, ts.Shadow, ts.Outline, ts.Color, ts.BgBlur, ts.BgOpacity, ts.Padding, ts.ID)
	return err
}

func (r *SQLiteRepository) DeleteTextStyle(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM text_styles WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CreateMusicTrack(ctx context.Context, m *MusicTrack) error {
	var outSec sql.NullFloat64
	if m.OutSec != nil {
		outSec = sql.NullFloat64{Float64: *m.OutSec, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO music_tracks (id, project_id, url, in_sec, out_sec, volume, duck_under_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ProjectID, m.URL, m.InSec, outSec, m.Volume, boolToInt(m.DuckUnderText),
		m.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetMusicTrack(ctx context.Context, id string) (*MusicTrack, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, url, in_sec, out_sec, volume, duck_under_text, created_at
		FROM music_tracks WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	m, err := scanMusicTrackRow(rows)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *SQLiteRepository) ListMusicTracks(ctx context.Context, projectID string) ([]MusicTrack, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, url, in_sec, out_sec, volume, duck_under_text, created_at
		FROM music_tracks WHERE project_id = ? ORDER BY created_at ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []MusicTrack
	for rows.Next() {
		m, err := scanMusicTrackRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, m)
	}
	return tracks, rows.Err()
}

func scanMusicTrackRow(rows *sql.Rows) (MusicTrack, error) {
	var m MusicTrack
	var outSec sql.NullFloat64
	var duck int
	var createdAt string

	err := rows.Scan(&m.ID, &m.ProjectID, &m.URL, &m.InSec, &outSec, &m.Volume, &duck, &createdAt)
	if err != nil {
		return MusicTrack{}, err
	}

	if outSec.Valid {
		v := outSec.Float64
		m.OutSec = &v
	}
	m.DuckUnderText = duck == 1
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return m, nil
}

func (r *SQLiteRepository) UpdateMusicTrack(ctx context.Context, m *MusicTrack) error {
	var outSec sql.NullFloat64
	if m.OutSec != nil {
		outSec = sql.NullFloat64{Float64: *m.OutSec, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE music_tracks SET url = ?, in_sec = ?, out_sec = ?, volume = ?, duck_under_text = ?
		WHERE id = ?
	`, m.URL, m.InSec, outSec, m.Volume, boolToInt(m.DuckUnderText), m.ID)
	return err
}

func (r *SQLiteRepository) DeleteMusicTrack(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM music_tracks WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CreateRenderJob(ctx context.Context, j *RenderJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO render_jobs (id, project_id, remote_id, status, progress, output_url, log, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.ProjectID, nullString(j.RemoteID), j.Status, j.Progress,
		nullString(j.OutputURL), j.Log, j.Settings,
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRenderJob(ctx context.Context, id string) (*RenderJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, remote_id, status, progress, output_url, log, settings, created_at, updated_at
		FROM render_jobs WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	j, err := scanRenderJobRow(rows)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *SQLiteRepository) ListRenderJobs(ctx context.Context, projectID string, limit int) ([]*RenderJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, remote_id, status, progress, output_url, log, settings, created_at, updated_at
		FROM render_jobs WHERE project_id = ? ORDER BY created_at DESC LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRenderJobs(rows)
}

func (r *SQLiteRepository) ListActiveRenderJobs(ctx context.Context) ([]*RenderJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, remote_id, status, progress, output_url, log, settings, created_at, updated_at
		FROM render_jobs WHERE status IN ('queued', 'rendering') ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRenderJobs(rows)
}

func scanRenderJobs(rows *sql.Rows) ([]*RenderJob, error) {
	var jobs []*RenderJob
	for rows.Next() {
		j, err := scanRenderJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func scanRenderJobRow(rows *sql.Rows) (RenderJob, error) {
	var j RenderJob
	var remoteID, outputURL sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(&j.ID, &j.ProjectID, &remoteID, &j.Status, &j.Progress,
		&outputURL, &j.Log, &j.Settings, &createdAt, &updatedAt)
	if err != nil {
		return RenderJob{}, err
	}

	j.RemoteID = remoteID.String
	j.OutputURL = outputURL.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return j, nil
}

func (r *SQLiteRepository) UpdateRenderJob(ctx context.Context, j *RenderJob) error {
	j.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE render_jobs SET remote_id = ?, status = ?, progress = ?, output_url = ?, log = ?, updated_at = ?
		WHERE id = ?
	`, nullString(j.RemoteID), j.Status, j.Progress, nullString(j.OutputURL), j.Log,
		j.UpdatedAt.Format(time.RFC3339), j.ID)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
