package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Moonlight-Technology/sentiment/internal/models"
	"github.com/Moonlight-Technology/sentiment/internal/store"
)

func newDocument(sourceID string, ingestedAt time.Time) models.Document {
	return models.Document{
		ID:         uuid.NewString(),
		SourceType: "feed",
		SourceID:   sourceID,
		IngestedAt: ingestedAt,
		Language:   "en",
		Title:      "Title for " + sourceID,
		Body:       "Body for " + sourceID,
	}
}

func newResult(docID, name, version string, scoredAt time.Time, label string) models.SentimentResult {
	return models.SentimentResult{
		ID:            uuid.NewString(),
		DocumentID:    docID,
		ScorerName:    name,
		ScorerVersion: version,
		PipelineStage: "batch",
		ScoredAt:      scoredAt,
		Label:         label,
		Score:         0.9,
		ScoresByLabel: map[string]float64{label: 0.9},
	}
}

func TestInsertDocumentIfAbsent(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	now := time.Now().UTC()

	doc := newDocument("marker-1", now)
	inserted, err := s.InsertDocumentIfAbsent(ctx, doc)
	require.NoError(t, err)
	require.True(t, inserted)

	// A different document with the same identity marker is suppressed.
	dup := newDocument("marker-1", now.Add(time.Minute))
	inserted, err = s.InsertDocumentIfAbsent(ctx, dup)
	require.NoError(t, err)
	require.False(t, inserted)

	count, err := s.CountDocuments(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.SourceID, got.SourceID)
	require.Equal(t, doc.Body, got.Body)
	require.Equal(t, doc.IngestedAt.Truncate(time.Millisecond), got.IngestedAt)
}

func TestGetDocumentNotFound(t *testing.T) {
	s := store.OpenMemory(t)
	_, err := s.GetDocument(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateDocumentLabels(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()

	doc := newDocument("marker-1", time.Now().UTC())
	_, err := s.InsertDocumentIfAbsent(ctx, doc)
	require.NoError(t, err)

	require.NoError(t, s.UpdateDocumentLabels(ctx, doc.ID, []string{"curated", "spam"}))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"curated", "spam"}, got.Labels)

	require.ErrorIs(t, s.UpdateDocumentLabels(ctx, "missing", nil), store.ErrNotFound)
}

func TestPendingDocumentsOrderAndExclusion(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	oldest := newDocument("m-1", base)
	middle := newDocument("m-2", base.Add(time.Minute))
	newest := newDocument("m-3", base.Add(2*time.Minute))
	for _, doc := range []models.Document{newest, oldest, middle} {
		_, err := s.InsertDocumentIfAbsent(ctx, doc)
		require.NoError(t, err)
	}

	// Oldest backlog first, capped by limit.
	pending, err := s.PendingDocuments(ctx, "model-a", "v1", 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, oldest.ID, pending[0].ID)

	// A result for the exact scorer pair removes the document from the set.
	_, err = s.InsertResultIfAbsent(ctx, newResult(oldest.ID, "model-a", "v1", time.Now().UTC(), "positive"))
	require.NoError(t, err)

	pending, err = s.PendingDocuments(ctx, "model-a", "v1", 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, middle.ID, pending[0].ID)
	require.Equal(t, newest.ID, pending[1].ID)

	// A result under a different version does not satisfy the pair.
	pending, err = s.PendingDocuments(ctx, "model-a", "v2", 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
}

func TestInsertResultIfAbsentConflictSkips(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()

	doc := newDocument("m-1", time.Now().UTC())
	_, err := s.InsertDocumentIfAbsent(ctx, doc)
	require.NoError(t, err)

	now := time.Now().UTC()
	inserted, err := s.InsertResultIfAbsent(ctx, newResult(doc.ID, "model-a", "v1", now, "positive"))
	require.NoError(t, err)
	require.True(t, inserted)

	// Same (document, scorer, version): the loser of the race is ignored.
	inserted, err = s.InsertResultIfAbsent(ctx, newResult(doc.ID, "model-a", "v1", now.Add(time.Second), "negative"))
	require.NoError(t, err)
	require.False(t, inserted)

	// A new version appends history instead.
	inserted, err = s.InsertResultIfAbsent(ctx, newResult(doc.ID, "model-a", "v2", now.Add(2*time.Second), "neutral"))
	require.NoError(t, err)
	require.True(t, inserted)

	history, err := s.ResultsForDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "v2", history[0].ScorerVersion)
}

func TestHasResult(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()

	doc := newDocument("m-1", time.Now().UTC())
	_, err := s.InsertDocumentIfAbsent(ctx, doc)
	require.NoError(t, err)

	ok, err := s.HasResult(ctx, doc.ID, "model-a", "v1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.InsertResultIfAbsent(ctx, newResult(doc.ID, "model-a", "v1", time.Now().UTC(), "positive"))
	require.NoError(t, err)

	ok, err = s.HasResult(ctx, doc.ID, "model-a", "v1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDeleteDocumentCascadesResults(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()

	doc := newDocument("m-1", time.Now().UTC())
	_, err := s.InsertDocumentIfAbsent(ctx, doc)
	require.NoError(t, err)
	_, err = s.InsertResultIfAbsent(ctx, newResult(doc.ID, "model-a", "v1", time.Now().UTC(), "positive"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	history, err := s.ResultsForDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestLatestResultsPicksNewestPerDocument(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	doc := newDocument("m-1", base)
	_, err := s.InsertDocumentIfAbsent(ctx, doc)
	require.NoError(t, err)

	_, err = s.InsertResultIfAbsent(ctx, newResult(doc.ID, "model-a", "v1", base.Add(time.Minute), "negative"))
	require.NoError(t, err)
	// Newer scoring event from an upgraded model wins, regardless of scorer.
	_, err = s.InsertResultIfAbsent(ctx, newResult(doc.ID, "model-b", "v9", base.Add(2*time.Minute), "positive"))
	require.NoError(t, err)

	latest, err := s.LatestResults(ctx, []string{doc.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	require.Equal(t, "positive", latest[doc.ID].Label)
	require.Equal(t, "v9", latest[doc.ID].ScorerVersion)
}

func TestSearchDocumentsCaseInsensitive(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	match1 := newDocument("m-1", base)
	match1.Title = "Bitcoin rallies"
	match2 := newDocument("m-2", base.Add(time.Minute))
	match2.Body = "the BITCOIN market dipped"
	other := newDocument("m-3", base.Add(2*time.Minute))
	other.Title = "Weather report"
	other.Body = "sunny all week"
	for _, doc := range []models.Document{match1, match2, other} {
		_, err := s.InsertDocumentIfAbsent(ctx, doc)
		require.NoError(t, err)
	}

	docs, err := s.SearchDocuments(ctx, "bitcoin", 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	// Newest-ingested first.
	require.Equal(t, match2.ID, docs[0].ID)
	require.Equal(t, match1.ID, docs[1].ID)

	docs, err = s.SearchDocuments(ctx, "bitcoin", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestListDocumentsFilters(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	feedDoc := newDocument("m-1", base)
	csvDoc := newDocument("m-2", base.Add(time.Minute))
	csvDoc.SourceType = "csv"
	csvDoc.Language = "id"
	for _, doc := range []models.Document{feedDoc, csvDoc} {
		_, err := s.InsertDocumentIfAbsent(ctx, doc)
		require.NoError(t, err)
	}

	docs, err := s.ListDocuments(ctx, store.DocumentFilter{SourceType: "csv"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, csvDoc.ID, docs[0].ID)

	docs, err = s.ListDocuments(ctx, store.DocumentFilter{Language: "en"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, feedDoc.ID, docs[0].ID)

	docs, err = s.ListDocuments(ctx, store.DocumentFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, csvDoc.ID, docs[0].ID)
}

func TestLabelCounts(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	now := time.Now().UTC()

	docA := newDocument("m-1", now)
	docB := newDocument("m-2", now)
	for _, doc := range []models.Document{docA, docB} {
		_, err := s.InsertDocumentIfAbsent(ctx, doc)
		require.NoError(t, err)
	}
	_, err := s.InsertResultIfAbsent(ctx, newResult(docA.ID, "model-a", "v1", now, "positive"))
	require.NoError(t, err)
	_, err = s.InsertResultIfAbsent(ctx, newResult(docB.ID, "model-a", "v1", now, "positive"))
	require.NoError(t, err)
	_, err = s.InsertResultIfAbsent(ctx, newResult(docA.ID, "model-a", "v2", now, "negative"))
	require.NoError(t, err)

	counts, err := s.LabelCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"positive": 2, "negative": 1}, counts)
}

func TestKeywordAggregateUpsertOverwrites(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()

	first := models.KeywordAggregate{
		Keyword: "bitcoin", Positive: 2, Neutral: 1, Negative: 0, Total: 3,
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.UpsertKeywordAggregate(ctx, first))

	second := first
	second.Positive = 1
	second.Negative = 4
	second.Total = 6
	second.UpdatedAt = first.UpdatedAt.Add(time.Minute)
	require.NoError(t, s.UpsertKeywordAggregate(ctx, second))

	got, err := s.GetKeywordAggregate(ctx, "bitcoin")
	require.NoError(t, err)
	require.Equal(t, 1, got.Positive)
	require.Equal(t, 4, got.Negative)
	require.Equal(t, 6, got.Total)

	_, err = s.GetKeywordAggregate(ctx, "unknown")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSourceRoundTrip(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	now := time.Now().UTC()

	src := models.Source{
		ID:        uuid.NewString(),
		Name:      "daily feed",
		Type:      "feed",
		Config:    map[string]string{"url": "https://example.com/rss"},
		Status:    models.SourceStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.InsertSource(ctx, src))

	inactive := src
	inactive.ID = uuid.NewString()
	inactive.Name = "paused feed"
	inactive.Status = models.SourceStatusInactive
	require.NoError(t, s.InsertSource(ctx, inactive))

	got, err := s.GetSource(ctx, src.ID)
	require.NoError(t, err)
	require.Equal(t, "daily feed", got.Name)
	require.Equal(t, "https://example.com/rss", got.Config["url"])
	require.Nil(t, got.LastRun)

	active, err := s.ActiveSources(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, src.ID, active[0].ID)

	require.NoError(t, s.RecordRunError(ctx, src.ID, "boom"))
	got, err = s.GetSource(ctx, src.ID)
	require.NoError(t, err)
	require.Equal(t, "boom", got.LastError)
	require.NotNil(t, got.LastRun)

	require.NoError(t, s.RecordRunSuccess(ctx, src.ID))
	got, err = s.GetSource(ctx, src.ID)
	require.NoError(t, err)
	require.Empty(t, got.LastError)
}
