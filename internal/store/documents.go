package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

const documentColumns = `id, source_type, source_id, source_metadata,
	ingested_at, published_at, language, title, body, labels`

// InsertDocumentIfAbsent stores the document unless another document already
// holds its source_id. Returns false when the insert was suppressed.
func (s *Store) InsertDocumentIfAbsent(ctx context.Context, doc models.Document) (bool, error) {
	metadata, err := marshalJSON(doc.SourceMetadata)
	if err != nil {
		return false, err
	}
	if metadata == "" {
		metadata = "{}"
	}
	labels, err := marshalJSON(doc.Labels)
	if err != nil {
		return false, err
	}
	if labels == "" || labels == "null" {
		labels = "[]"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents (id, source_type, source_id, source_metadata,
		ingested_at, published_at, language, title, body, labels)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.SourceType, doc.SourceID, metadata,
		toMilli(doc.IngestedAt), toNullMilli(doc.PublishedAt),
		doc.Language, doc.Title, doc.Body, labels,
	)
	if err != nil {
		return false, fmt.Errorf("insert document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert document: rows affected: %w", err)
	}
	return n > 0, nil
}

// GetDocument retrieves a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row.Scan)
}

// DeleteDocument removes a document; its sentiment results cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// UpdateDocumentLabels replaces the curation labels on a document.
func (s *Store) UpdateDocumentLabels(ctx context.Context, id string, labels []string) error {
	raw, err := marshalJSON(labels)
	if err != nil {
		return err
	}
	if raw == "" || raw == "null" {
		raw = "[]"
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET labels = ? WHERE id = ?`, raw, id)
	if err != nil {
		return fmt.Errorf("update labels: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DocumentFilter narrows ListDocuments. Zero values mean no filter.
type DocumentFilter struct {
	SourceType string
	Language   string
	Offset     int
	Limit      int
}

// ListDocuments returns documents newest-ingested first.
func (s *Store) ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, error) {
	builder := sq.Select(documentColumns).
		From("documents").
		OrderBy("ingested_at DESC")

	if filter.SourceType != "" {
		builder = builder.Where(sq.Eq{"source_type": filter.SourceType})
	}
	if filter.Language != "" {
		builder = builder.Where(sq.Eq{"language": filter.Language})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	return s.queryDocuments(ctx, query, args...)
}

// SearchDocuments returns up to limit documents whose title or body contains
// the keyword (case-insensitive), newest-ingested first.
func (s *Store) SearchDocuments(ctx context.Context, keyword string, limit int) ([]models.Document, error) {
	like := "%" + strings.ToLower(keyword) + "%"

	query, args, err := sq.Select(documentColumns).
		From("documents").
		Where(sq.Or{
			sq.Like{"lower(title)": like},
			sq.Like{"lower(body)": like},
		}).
		OrderBy("ingested_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}
	return s.queryDocuments(ctx, query, args...)
}

// PendingDocuments selects documents that have no sentiment result for the
// given scorer name/version, oldest-ingested first, capped at limit.
func (s *Store) PendingDocuments(ctx context.Context, scorerName, scorerVersion string, limit int) ([]models.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents d
		WHERE NOT EXISTS (
			SELECT 1 FROM sentiment_results r
			WHERE r.document_id = d.id
			  AND r.scorer_name = ?
			  AND r.scorer_version = ?
		)
		ORDER BY d.ingested_at ASC
		LIMIT ?`,
		scorerName, scorerVersion, limit,
	)
}

// CountDocuments returns the total number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(scan func(...any) error) (models.Document, error) {
	var (
		doc       models.Document
		metadata  string
		labels    string
		ingested  int64
		published sql.NullInt64
	)
	err := scan(
		&doc.ID, &doc.SourceType, &doc.SourceID, &metadata,
		&ingested, &published, &doc.Language, &doc.Title, &doc.Body, &labels,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Document{}, ErrNotFound
		}
		return models.Document{}, fmt.Errorf("scan document: %w", err)
	}

	doc.IngestedAt = fromMilli(ingested)
	doc.PublishedAt = fromNullMilli(published)
	if doc.SourceMetadata, err = unmarshalJSON[map[string]string](metadata); err != nil {
		return models.Document{}, err
	}
	if doc.Labels, err = unmarshalJSON[[]string](labels); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}
