package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

// StreamConfig describes a bounded drain of a Kafka topic.
type StreamConfig struct {
	Brokers     []string
	Topic       string
	Group       string
	MaxMessages int
	Wait        time.Duration
}

// StreamAdapter consumes candidate documents published as JSON messages on
// a Kafka topic. Each Fetch drains at most MaxMessages, or whatever arrives
// within the Wait window, and commits the offsets it consumed.
type StreamAdapter struct {
	cfg StreamConfig
}

type streamMessage struct {
	SourceID    string `json:"source_id"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Text        string `json:"text"`
	Link        string `json:"link"`
	Language    string `json:"language"`
	PublishedAt string `json:"published_at"`
}

// NewStreamAdapter builds a Kafka stream adapter.
func NewStreamAdapter(cfg StreamConfig) *StreamAdapter {
	if cfg.Group == "" {
		cfg.Group = "sentiment-ingester"
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 500
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 5 * time.Second
	}
	return &StreamAdapter{cfg: cfg}
}

// Fetch drains the topic. Malformed messages are skipped but still
// committed so they are not redelivered forever.
func (a *StreamAdapter) Fetch(ctx context.Context) ([]models.CandidateDocument, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  a.cfg.Brokers,
		Topic:    a.cfg.Topic,
		GroupID:  a.cfg.Group,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	drainCtx, cancel := context.WithTimeout(ctx, a.cfg.Wait)
	defer cancel()

	var cands []models.CandidateDocument
	for len(cands) < a.cfg.MaxMessages {
		msg, err := reader.FetchMessage(drainCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			return cands, fmt.Errorf("stream %s: fetch: %w", a.cfg.Topic, err)
		}

		if cand, ok := decodeStreamMessage(msg.Value); ok {
			cands = append(cands, cand)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			return cands, fmt.Errorf("stream %s: commit: %w", a.cfg.Topic, err)
		}
	}
	return cands, nil
}

func decodeStreamMessage(value []byte) (models.CandidateDocument, bool) {
	var payload streamMessage
	if err := json.Unmarshal(value, &payload); err != nil {
		return models.CandidateDocument{}, false
	}

	body := payload.Body
	if body == "" {
		body = payload.Text
	}
	if strings.TrimSpace(body) == "" {
		return models.CandidateDocument{}, false
	}

	sourceID := payload.SourceID
	if sourceID == "" {
		sourceID = payload.ID
	}

	var published *time.Time
	if payload.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, payload.PublishedAt); err == nil {
			ts = ts.UTC()
			published = &ts
		}
	}

	return models.CandidateDocument{
		SourceID:    sourceID,
		Title:       payload.Title,
		Body:        body,
		Link:        payload.Link,
		Language:    payload.Language,
		PublishedAt: published,
	}, true
}
