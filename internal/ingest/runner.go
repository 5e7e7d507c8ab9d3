package ingest

import (
	"context"
	"log/slog"

	"github.com/Moonlight-Technology/sentiment/internal/models"
	"github.com/Moonlight-Technology/sentiment/internal/source"
)

// SourceStore is the slice of the store the runner needs.
type SourceStore interface {
	ActiveSources(ctx context.Context) ([]models.Source, error)
	GetSource(ctx context.Context, id string) (models.Source, error)
	RecordRunSuccess(ctx context.Context, id string) error
	RecordRunError(ctx context.Context, id, errMsg string) error
}

// AdapterFactory builds the adapter for a source. Swapped for stubs in tests.
type AdapterFactory func(src models.Source) (source.Adapter, error)

// Runner executes ingestion across registered sources, isolating each
// source's failures so one bad config or dead feed cannot abort its
// siblings.
type Runner struct {
	sources    SourceStore
	ingestor   *Ingestor
	newAdapter AdapterFactory
	log        *slog.Logger
}

// NewRunner constructs a Runner.
func NewRunner(sources SourceStore, ingestor *Ingestor, newAdapter AdapterFactory, log *slog.Logger) *Runner {
	return &Runner{sources: sources, ingestor: ingestor, newAdapter: newAdapter, log: log}
}

// SourceReport is the per-source outcome of a run.
type SourceReport struct {
	SourceID   string        `json:"source_id"`
	SourceName string        `json:"source_name"`
	Inserted   int           `json:"inserted"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Failures   []ItemFailure `json:"failures,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// RunAll ingests every active source and returns one report per source.
// The returned error covers only the source listing itself.
func (r *Runner) RunAll(ctx context.Context) ([]SourceReport, error) {
	sources, err := r.sources.ActiveSources(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]SourceReport, 0, len(sources))
	for _, src := range sources {
		reports = append(reports, r.runSource(ctx, src))
	}
	return reports, nil
}

// RunOne ingests a single source by id.
func (r *Runner) RunOne(ctx context.Context, id string) (SourceReport, error) {
	src, err := r.sources.GetSource(ctx, id)
	if err != nil {
		return SourceReport{}, err
	}
	return r.runSource(ctx, src), nil
}

func (r *Runner) runSource(ctx context.Context, src models.Source) SourceReport {
	report := SourceReport{SourceID: src.ID, SourceName: src.Name}

	// Config problems are caught before any fetch is attempted.
	if err := source.Validate(src); err != nil {
		report.Error = err.Error()
		r.recordError(ctx, src.ID, err.Error())
		return report
	}

	adapter, err := r.newAdapter(src)
	if err != nil {
		report.Error = err.Error()
		r.recordError(ctx, src.ID, err.Error())
		return report
	}

	cands, err := adapter.Fetch(ctx)
	if err != nil {
		report.Error = err.Error()
		r.recordError(ctx, src.ID, err.Error())
		return report
	}

	lang := src.Config["language"]
	if lang == "" {
		lang = "en"
	}

	result, err := r.ingestor.Ingest(ctx, src.Type, lang, cands)
	report.Inserted = result.Inserted
	report.Duplicates = result.Duplicates
	report.Failed = result.Failed
	report.Failures = result.Failures
	if err != nil {
		report.Error = err.Error()
		r.recordError(ctx, src.ID, err.Error())
		return report
	}

	if err := r.sources.RecordRunSuccess(ctx, src.ID); err != nil {
		r.log.Error("record run success", slog.String("source", src.ID), slog.Any("err", err))
	}
	r.log.Info("source ingested",
		slog.String("source", src.ID),
		slog.Int("inserted", result.Inserted),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("failed", result.Failed),
	)
	return report
}

func (r *Runner) recordError(ctx context.Context, id, msg string) {
	if err := r.sources.RecordRunError(ctx, id, msg); err != nil {
		r.log.Error("record run error", slog.String("source", id), slog.Any("err", err))
	}
}
