package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

// UpsertKeywordAggregate overwrites the aggregate row for a keyword. The
// counters are replaced wholesale, never incremented.
func (s *Store) UpsertKeywordAggregate(ctx context.Context, agg models.KeywordAggregate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO keyword_aggregates (keyword, positive_count, neutral_count,
		negative_count, total_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(keyword) DO UPDATE SET
			positive_count = excluded.positive_count,
			neutral_count  = excluded.neutral_count,
			negative_count = excluded.negative_count,
			total_count    = excluded.total_count,
			updated_at     = excluded.updated_at`,
		agg.Keyword, agg.Positive, agg.Neutral, agg.Negative, agg.Total,
		toMilli(agg.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert aggregate: %w", err)
	}
	return nil
}

// GetKeywordAggregate retrieves the stored aggregate for a keyword.
func (s *Store) GetKeywordAggregate(ctx context.Context, keyword string) (models.KeywordAggregate, error) {
	var (
		agg       models.KeywordAggregate
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT keyword, positive_count, neutral_count, negative_count,
		total_count, updated_at
		FROM keyword_aggregates WHERE keyword = ?`, keyword,
	).Scan(&agg.Keyword, &agg.Positive, &agg.Neutral, &agg.Negative, &agg.Total, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.KeywordAggregate{}, ErrNotFound
		}
		return models.KeywordAggregate{}, fmt.Errorf("get aggregate: %w", err)
	}
	agg.UpdatedAt = fromMilli(updatedAt)
	return agg, nil
}
