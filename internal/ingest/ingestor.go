// Package ingest turns adapter candidates into stored documents, enforcing
// the identity-marker uniqueness invariant at two levels: a first-wins set
// within each batch and the source_id constraint in the document store.
package ingest

import (
	"context"
	"log/slog"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

// DocumentWriter is the slice of the store the ingestor needs.
type DocumentWriter interface {
	InsertDocumentIfAbsent(ctx context.Context, doc models.Document) (bool, error)
}

// Ingestor persists surviving candidates from one adapter invocation.
type Ingestor struct {
	store DocumentWriter
	log   *slog.Logger
}

// New constructs an Ingestor.
func New(store DocumentWriter, log *slog.Logger) *Ingestor {
	return &Ingestor{store: store, log: log}
}

// ItemFailure records why one candidate was not stored.
type ItemFailure struct {
	Marker string `json:"marker"`
	Reason string `json:"reason"`
}

// Result summarizes one ingestion call.
type Result struct {
	Stored     []models.Document `json:"-"`
	Inserted   int               `json:"inserted"`
	Duplicates int               `json:"duplicates"`
	Failed     int               `json:"failed"`
	Failures   []ItemFailure     `json:"failures,omitempty"`
}

// Ingest deduplicates the batch (first occurrence of a marker wins), then
// stores each surviving candidate unless its marker is already present in
// the store. A pre-existing marker is a duplicate, not an error; a
// malformed candidate is skipped with a recorded reason. Only store-level
// failures abort the call.
func (i *Ingestor) Ingest(ctx context.Context, sourceType, defaultLanguage string, cands []models.CandidateDocument) (Result, error) {
	var result Result

	seen := make(map[string]struct{}, len(cands))
	for _, cand := range cands {
		marker := cand.Marker()
		if marker == "" {
			result.Failed++
			result.Failures = append(result.Failures, ItemFailure{Reason: "missing identity marker"})
			continue
		}
		if _, dup := seen[marker]; dup {
			result.Duplicates++
			i.log.Debug("duplicate candidate within batch", slog.String("marker", marker))
			continue
		}
		seen[marker] = struct{}{}

		doc, err := models.NewDocument(sourceType, defaultLanguage, cand)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ItemFailure{Marker: marker, Reason: err.Error()})
			i.log.Warn("skipping candidate", slog.String("marker", marker), slog.Any("err", err))
			continue
		}

		inserted, err := i.store.InsertDocumentIfAbsent(ctx, doc)
		if err != nil {
			return result, err
		}
		if !inserted {
			result.Duplicates++
			i.log.Debug("duplicate candidate in store", slog.String("marker", marker))
			continue
		}

		result.Inserted++
		result.Stored = append(result.Stored, doc)
		i.log.Info("stored document",
			slog.String("id", doc.ID),
			slog.String("marker", marker),
			slog.String("source_type", sourceType),
		)
	}

	return result, nil
}
