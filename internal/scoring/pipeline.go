// Package scoring selects unscored documents, invokes the classification
// model, and persists versioned sentiment results.
package scoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

// Store is the slice of persistence the pipeline needs.
type Store interface {
	PendingDocuments(ctx context.Context, scorerName, scorerVersion string, limit int) ([]models.Document, error)
	GetDocument(ctx context.Context, id string) (models.Document, error)
	HasResult(ctx context.Context, documentID, scorerName, scorerVersion string) (bool, error)
	InsertResultIfAbsent(ctx context.Context, res models.SentimentResult) (bool, error)
}

// Config identifies the active scorer and bounds each model invocation.
type Config struct {
	ScorerName     string
	ScorerVersion  string
	Stage          string
	PredictTimeout time.Duration
}

// Pipeline runs batch and single-document scoring.
type Pipeline struct {
	store  Store
	scorer Scorer
	norm   *Normalizer
	cfg    Config
	log    *slog.Logger
	now    func() time.Time
}

// NewPipeline constructs a Pipeline.
func NewPipeline(store Store, scorer Scorer, norm *Normalizer, cfg Config, log *slog.Logger) *Pipeline {
	if cfg.Stage == "" {
		cfg.Stage = "batch"
	}
	if cfg.PredictTimeout <= 0 {
		cfg.PredictTimeout = 30 * time.Second
	}
	return &Pipeline{
		store:  store,
		scorer: scorer,
		norm:   norm,
		cfg:    cfg,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ItemFailure records why one document in a batch produced no result.
type ItemFailure struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

// BatchReport summarizes one ScorePending call. A partial batch is a
// success: failed documents are recorded and the rest proceed.
type BatchReport struct {
	Results  []models.SentimentResult `json:"results"`
	Scored   int                      `json:"scored"`
	Skipped  int                      `json:"skipped"`
	Failed   int                      `json:"failed"`
	Failures []ItemFailure            `json:"failures,omitempty"`
}

// ScorePending scores up to batchLimit documents that have no result for the
// active scorer name/version, oldest-ingested first. Each document's predict
// and store step commits independently; a crash mid-batch loses only the
// in-flight document.
func (p *Pipeline) ScorePending(ctx context.Context, batchLimit int) (BatchReport, error) {
	var report BatchReport

	pending, err := p.store.PendingDocuments(ctx, p.cfg.ScorerName, p.cfg.ScorerVersion, batchLimit)
	if err != nil {
		return report, err
	}
	if len(pending) == 0 {
		p.log.Info("no pending documents",
			slog.String("scorer", p.cfg.ScorerName),
			slog.String("version", p.cfg.ScorerVersion),
		)
		return report, nil
	}

	p.log.Info("scoring documents",
		slog.Int("count", len(pending)),
		slog.String("scorer", p.cfg.ScorerName),
		slog.String("version", p.cfg.ScorerVersion),
	)

	for _, doc := range pending {
		result, err := p.scoreOne(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			report.Failures = append(report.Failures, ItemFailure{DocumentID: doc.ID, Reason: err.Error()})
			p.log.Warn("skipping document", slog.String("id", doc.ID), slog.Any("err", err))
			continue
		}

		inserted, err := p.store.InsertResultIfAbsent(ctx, result)
		if err != nil {
			return report, err
		}
		if !inserted {
			// A concurrent run stored a result first; not an error.
			report.Skipped++
			p.log.Debug("result already present", slog.String("id", doc.ID))
			continue
		}

		report.Scored++
		report.Results = append(report.Results, result)
		p.log.Debug("stored result",
			slog.String("document_id", doc.ID),
			slog.String("label", result.Label),
		)
	}

	p.log.Info("scoring complete",
		slog.Int("scored", report.Scored),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// Outcome statuses for single-document scoring.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)

// Outcome is the result of scoring one named document.
type Outcome struct {
	Status string                  `json:"status"`
	Reason string                  `json:"reason,omitempty"`
	Result *models.SentimentResult `json:"result,omitempty"`
}

// ScoreDocument scores one document. When a result already exists for the
// active scorer name/version the scorer is not invoked and the outcome is
// skipped/already_processed.
func (p *Pipeline) ScoreDocument(ctx context.Context, documentID string) (Outcome, error) {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return Outcome{}, err
	}

	exists, err := p.store.HasResult(ctx, doc.ID, p.cfg.ScorerName, p.cfg.ScorerVersion)
	if err != nil {
		return Outcome{}, err
	}
	if exists {
		return Outcome{Status: StatusSkipped, Reason: "already_processed"}, nil
	}

	result, err := p.scoreOne(ctx, doc)
	if err != nil {
		return Outcome{}, err
	}

	inserted, err := p.store.InsertResultIfAbsent(ctx, result)
	if err != nil {
		return Outcome{}, err
	}
	if !inserted {
		return Outcome{Status: StatusSkipped, Reason: "already_processed"}, nil
	}

	return Outcome{Status: StatusCompleted, Result: &result}, nil
}

func (p *Pipeline) scoreOne(ctx context.Context, doc models.Document) (models.SentimentResult, error) {
	predictCtx, cancel := context.WithTimeout(ctx, p.cfg.PredictTimeout)
	defer cancel()

	raw, err := p.scorer.Predict(predictCtx, doc.Body)
	if err != nil {
		return models.SentimentResult{}, err
	}

	scores := p.norm.Normalize(raw)
	if len(scores) == 0 {
		return models.SentimentResult{}, ErrEmptyDistribution
	}
	label, score := TopLabel(scores)

	return models.SentimentResult{
		ID:            uuid.NewString(),
		DocumentID:    doc.ID,
		ScorerName:    p.cfg.ScorerName,
		ScorerVersion: p.cfg.ScorerVersion,
		PipelineStage: p.cfg.Stage,
		ScoredAt:      p.now(),
		Label:         label,
		Score:         score,
		ScoresByLabel: scores,
	}, nil
}
