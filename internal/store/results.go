package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

const resultColumns = `id, document_id, scorer_name, scorer_version,
	pipeline_stage, scored_at, label, score, scores_by_label`

// InsertResultIfAbsent stores a sentiment result unless one already exists
// for the same (document, scorer name, scorer version). Returns false when
// the insert lost to an existing row, which callers treat as
// already-processed rather than an error.
func (s *Store) InsertResultIfAbsent(ctx context.Context, res models.SentimentResult) (bool, error) {
	scores, err := marshalJSON(res.ScoresByLabel)
	if err != nil {
		return false, err
	}

	var scoresArg any
	if res.ScoresByLabel != nil {
		scoresArg = scores
	}

	out, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sentiment_results (id, document_id, scorer_name,
		scorer_version, pipeline_stage, scored_at, label, score, scores_by_label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.DocumentID, res.ScorerName, res.ScorerVersion,
		res.PipelineStage, toMilli(res.ScoredAt), res.Label, res.Score, scoresArg,
	)
	if err != nil {
		return false, fmt.Errorf("insert result: %w", err)
	}

	n, err := out.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert result: rows affected: %w", err)
	}
	return n > 0, nil
}

// HasResult reports whether a result exists for the document under the given
// scorer name/version.
func (s *Store) HasResult(ctx context.Context, documentID, scorerName, scorerVersion string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sentiment_results
		WHERE document_id = ? AND scorer_name = ? AND scorer_version = ?
		LIMIT 1`,
		documentID, scorerName, scorerVersion,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return true, nil
}

// ResultsForDocument returns the full scoring history of a document, newest
// scoring event first.
func (s *Store) ResultsForDocument(ctx context.Context, documentID string) ([]models.SentimentResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM sentiment_results
		WHERE document_id = ?
		ORDER BY scored_at DESC, id`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	return collectResults(rows)
}

// LatestResults resolves the most recent result per document, regardless of
// which scorer produced it. Documents without results are absent from the
// returned map.
func (s *Store) LatestResults(ctx context.Context, documentIDs []string) (map[string]models.SentimentResult, error) {
	if len(documentIDs) == 0 {
		return map[string]models.SentimentResult{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(documentIDs)), ",")
	args := make([]any, len(documentIDs))
	for i, id := range documentIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM sentiment_results
		WHERE document_id IN (`+placeholders+`)
		ORDER BY document_id, scored_at DESC, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest results: %w", err)
	}
	defer rows.Close()

	results, err := collectResults(rows)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]models.SentimentResult, len(documentIDs))
	for _, res := range results {
		if _, ok := latest[res.DocumentID]; !ok {
			latest[res.DocumentID] = res
		}
	}
	return latest, nil
}

// LabelCounts tallies stored results by label across all documents.
func (s *Store) LabelCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, COUNT(*) FROM sentiment_results GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("query label counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("scan label count: %w", err)
		}
		counts[label] = count
	}
	return counts, rows.Err()
}

func collectResults(rows *sql.Rows) ([]models.SentimentResult, error) {
	var results []models.SentimentResult
	for rows.Next() {
		var (
			res      models.SentimentResult
			scoredAt int64
			scores   sql.NullString
		)
		err := rows.Scan(
			&res.ID, &res.DocumentID, &res.ScorerName, &res.ScorerVersion,
			&res.PipelineStage, &scoredAt, &res.Label, &res.Score, &scores,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.ScoredAt = fromMilli(scoredAt)
		if scores.Valid {
			if res.ScoresByLabel, err = unmarshalJSON[map[string]float64](scores.String); err != nil {
				return nil, err
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
