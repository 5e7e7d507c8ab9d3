package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

const sourceColumns = `id, name, type, config_json, schedule, status,
	last_run, last_error, created_at, updated_at`

// InsertSource registers a new connector configuration.
func (s *Store) InsertSource(ctx context.Context, src models.Source) error {
	cfg, err := marshalJSON(src.Config)
	if err != nil {
		return err
	}
	if cfg == "" {
		cfg = "{}"
	}
	if src.Schedule == "" {
		src.Schedule = "manual"
	}
	if src.Status == "" {
		src.Status = models.SourceStatusInactive
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sources (id, name, type, config_json, schedule, status,
		last_run, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, src.Type, cfg, src.Schedule, src.Status,
		toNullMilli(src.LastRun), src.LastError,
		toMilli(src.CreatedAt), toMilli(src.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

// GetSource retrieves a source by id.
func (s *Store) GetSource(ctx context.Context, id string) (models.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	return scanSource(row.Scan)
}

// ListSources returns all registered sources, newest first.
func (s *Store) ListSources(ctx context.Context) ([]models.Source, error) {
	return s.querySources(ctx,
		`SELECT `+sourceColumns+` FROM sources ORDER BY created_at DESC`)
}

// ActiveSources returns the sources an ingestion run should visit.
func (s *Store) ActiveSources(ctx context.Context) ([]models.Source, error) {
	return s.querySources(ctx,
		`SELECT `+sourceColumns+` FROM sources
		WHERE status = ? ORDER BY created_at`, models.SourceStatusActive)
}

// RecordRunSuccess stamps a source after a successful ingestion run.
func (s *Store) RecordRunSuccess(ctx context.Context, id string) error {
	now := toMilli(time.Now())
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_run = ?, last_error = '', updated_at = ?
		WHERE id = ?`, now, now, id)
	return err
}

// RecordRunError stamps a source after a failed ingestion run.
func (s *Store) RecordRunError(ctx context.Context, id, errMsg string) error {
	now := toMilli(time.Now())
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_run = ?, last_error = ?, updated_at = ?
		WHERE id = ?`, now, errMsg, now, id)
	return err
}

func (s *Store) querySources(ctx context.Context, query string, args ...any) ([]models.Source, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		src, err := scanSource(rows.Scan)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func scanSource(scan func(...any) error) (models.Source, error) {
	var (
		src       models.Source
		cfg       string
		lastRun   sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	err := scan(
		&src.ID, &src.Name, &src.Type, &cfg, &src.Schedule, &src.Status,
		&lastRun, &src.LastError, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Source{}, ErrNotFound
		}
		return models.Source{}, fmt.Errorf("scan source: %w", err)
	}

	src.LastRun = fromNullMilli(lastRun)
	src.CreatedAt = fromMilli(createdAt)
	src.UpdatedAt = fromMilli(updatedAt)
	if src.Config, err = unmarshalJSON[map[string]string](cfg); err != nil {
		return models.Source{}, err
	}
	return src, nil
}
