// Package aggregate rolls up sentiment counts per keyword. Every refresh is
// a full recomputation from current documents and results, so the stored
// row can never drift from its sources.
package aggregate

import (
	"context"
	"log/slog"
	"time"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

// Store is the slice of persistence the aggregator needs.
type Store interface {
	SearchDocuments(ctx context.Context, keyword string, limit int) ([]models.Document, error)
	LatestResults(ctx context.Context, documentIDs []string) (map[string]models.SentimentResult, error)
	UpsertKeywordAggregate(ctx context.Context, agg models.KeywordAggregate) error
	GetKeywordAggregate(ctx context.Context, keyword string) (models.KeywordAggregate, error)
}

// Aggregator recomputes keyword aggregates on demand.
type Aggregator struct {
	store Store
	limit int
	log   *slog.Logger
	now   func() time.Time
}

// New constructs an Aggregator. limit caps how many matching documents one
// refresh considers, newest-ingested first.
func New(store Store, limit int, log *slog.Logger) *Aggregator {
	if limit <= 0 {
		limit = 500
	}
	return &Aggregator{
		store: store,
		limit: limit,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Refresh recomputes and overwrites the aggregate for one keyword. Each
// matched document contributes its latest result; labels outside the
// canonical three count toward the total only.
func (a *Aggregator) Refresh(ctx context.Context, keyword string) (models.KeywordAggregate, error) {
	docs, err := a.store.SearchDocuments(ctx, keyword, a.limit)
	if err != nil {
		return models.KeywordAggregate{}, err
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}

	latest, err := a.store.LatestResults(ctx, ids)
	if err != nil {
		return models.KeywordAggregate{}, err
	}

	agg := models.KeywordAggregate{Keyword: keyword, UpdatedAt: a.now()}
	for _, res := range latest {
		switch res.Label {
		case models.LabelPositive:
			agg.Positive++
		case models.LabelNeutral:
			agg.Neutral++
		case models.LabelNegative:
			agg.Negative++
		}
		agg.Total++
	}

	if err := a.store.UpsertKeywordAggregate(ctx, agg); err != nil {
		return models.KeywordAggregate{}, err
	}

	a.log.Debug("keyword aggregate refreshed",
		slog.String("keyword", keyword),
		slog.Int("total", agg.Total),
	)
	return agg, nil
}

// KeywordReport is the per-keyword outcome of a batch refresh.
type KeywordReport struct {
	Aggregate models.KeywordAggregate `json:"aggregate"`
	Error     string                  `json:"error,omitempty"`
}

// RefreshAll refreshes each keyword independently; one keyword's failure
// does not affect the others.
func (a *Aggregator) RefreshAll(ctx context.Context, keywords []string) []KeywordReport {
	reports := make([]KeywordReport, 0, len(keywords))
	for _, keyword := range keywords {
		agg, err := a.Refresh(ctx, keyword)
		report := KeywordReport{Aggregate: agg}
		if err != nil {
			report.Aggregate = models.KeywordAggregate{Keyword: keyword}
			report.Error = err.Error()
			a.log.Warn("keyword refresh failed", slog.String("keyword", keyword), slog.Any("err", err))
		}
		reports = append(reports, report)
	}
	return reports
}
