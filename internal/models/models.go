package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Canonical sentiment labels tracked by the keyword aggregates. Results may
// carry other labels; those count toward the aggregate total only.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// CandidateDocument is what a source adapter emits: one raw record that may
// or may not become a stored document.
type CandidateDocument struct {
	SourceID    string            `json:"source_id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Link        string            `json:"link"`
	Language    string            `json:"language"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	SeedLabels  []string          `json:"seed_labels,omitempty"`
}

// Marker returns the deduplication key: the source id, or the link when the
// adapter could not produce one.
func (c CandidateDocument) Marker() string {
	if c.SourceID != "" {
		return c.SourceID
	}
	return c.Link
}

// Document is a stored unit of text awaiting (or carrying) sentiment scores.
type Document struct {
	ID             string            `json:"id"`
	SourceType     string            `json:"source_type"`
	SourceID       string            `json:"source_id"`
	SourceMetadata map[string]string `json:"source_metadata,omitempty"`
	IngestedAt     time.Time         `json:"ingested_at"`
	PublishedAt    *time.Time        `json:"published_at,omitempty"`
	Language       string            `json:"language"`
	Title          string            `json:"title,omitempty"`
	Body           string            `json:"body"`
	Labels         []string          `json:"labels,omitempty"`
}

var (
	// ErrEmptyBody marks a candidate without body text.
	ErrEmptyBody = errors.New("document body is required")
	// ErrInvalidLanguage marks a language code outside 2-5 alphabetic chars.
	ErrInvalidLanguage = errors.New("language must be a 2-5 letter code")
)

// NewDocument validates a candidate and converts it into a Document ready
// for insertion. defaultLanguage applies when the candidate carries none.
func NewDocument(sourceType, defaultLanguage string, cand CandidateDocument) (Document, error) {
	if strings.TrimSpace(cand.Body) == "" {
		return Document{}, ErrEmptyBody
	}

	lang := cand.Language
	if lang == "" {
		lang = defaultLanguage
	}
	lang, err := NormalizeLanguage(lang)
	if err != nil {
		return Document{}, err
	}

	return Document{
		ID:             uuid.NewString(),
		SourceType:     sourceType,
		SourceID:       cand.Marker(),
		SourceMetadata: cand.Metadata,
		IngestedAt:     time.Now().UTC(),
		PublishedAt:    cand.PublishedAt,
		Language:       lang,
		Title:          cand.Title,
		Body:           cand.Body,
		Labels:         cand.SeedLabels,
	}, nil
}

// NormalizeLanguage lower-cases and validates a language code.
func NormalizeLanguage(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) < 2 || len(code) > 5 {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, code)
	}
	for _, r := range code {
		if !unicode.IsLetter(r) {
			return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, code)
		}
	}
	return code, nil
}

// SentimentResult records one scoring event for one document. Results are
// append-only; history accumulates as scorer versions change.
type SentimentResult struct {
	ID            string             `json:"id"`
	DocumentID    string             `json:"document_id"`
	ScorerName    string             `json:"scorer_name"`
	ScorerVersion string             `json:"scorer_version"`
	PipelineStage string             `json:"pipeline_stage"`
	ScoredAt      time.Time          `json:"scored_at"`
	Label         string             `json:"label"`
	Score         float64            `json:"score"`
	ScoresByLabel map[string]float64 `json:"scores_by_label,omitempty"`
}

// KeywordAggregate is the rolled-up sentiment tally for one keyword,
// recomputed in full on every refresh.
type KeywordAggregate struct {
	Keyword   string    `json:"keyword"`
	Positive  int       `json:"positive"`
	Neutral   int       `json:"neutral"`
	Negative  int       `json:"negative"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Source statuses.
const (
	SourceStatusActive   = "active"
	SourceStatusInactive = "inactive"
)

// Source is a registered connector configuration.
type Source struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Config    map[string]string `json:"config,omitempty"`
	Schedule  string            `json:"schedule"`
	Status    string            `json:"status"`
	LastRun   *time.Time        `json:"last_run,omitempty"`
	LastError string            `json:"last_error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
