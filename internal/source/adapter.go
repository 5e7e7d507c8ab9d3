// Package source builds candidate documents from the supported connector
// kinds: RSS/Atom feeds, CSV files, and Kafka streams. CSV uploads are
// parsed by the same package but arrive through the API rather than a
// registered source.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

// Connector kinds accepted in a Source row.
const (
	TypeFeed      = "feed"
	TypeCSV       = "csv"
	TypeCSVUpload = "csv-upload"
	TypeStream    = "stream"
)

// Adapter fetches one batch of candidate documents from a connector.
type Adapter interface {
	Fetch(ctx context.Context) ([]models.CandidateDocument, error)
}

// ConfigError reports a source configuration missing a required field. It is
// detected before any fetch is attempted so one misconfigured source cannot
// abort a multi-source run.
type ConfigError struct {
	SourceID string
	Field    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("source %s: config missing %s", e.SourceID, e.Field)
}

// Options tunes adapter construction.
type Options struct {
	FetchTimeout time.Duration
}

// Validate checks that the source config carries the fields its connector
// kind requires.
func Validate(src models.Source) error {
	switch src.Type {
	case TypeFeed:
		if src.Config["url"] == "" {
			return &ConfigError{SourceID: src.ID, Field: "url"}
		}
	case TypeCSV:
		if src.Config["path"] == "" {
			return &ConfigError{SourceID: src.ID, Field: "path"}
		}
	case TypeStream:
		if src.Config["brokers"] == "" {
			return &ConfigError{SourceID: src.ID, Field: "brokers"}
		}
		if src.Config["topic"] == "" {
			return &ConfigError{SourceID: src.ID, Field: "topic"}
		}
	default:
		return fmt.Errorf("source %s: unsupported type %q", src.ID, src.Type)
	}
	return nil
}

// New constructs the adapter for a registered source.
func New(src models.Source, opts Options) (Adapter, error) {
	if err := Validate(src); err != nil {
		return nil, err
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}

	switch src.Type {
	case TypeFeed:
		return NewFeedAdapter(src.Config["url"], opts.FetchTimeout), nil
	case TypeCSV:
		return NewCSVAdapter(src.Config["path"]), nil
	case TypeStream:
		return NewStreamAdapter(StreamConfig{
			Brokers:     splitAndTrim(src.Config["brokers"]),
			Topic:       src.Config["topic"],
			Group:       src.Config["group"],
			MaxMessages: atoiOr(src.Config["max_messages"], 500),
			Wait:        opts.FetchTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("source %s: unsupported type %q", src.ID, src.Type)
	}
}
