package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

// CSVAdapter reads candidate documents from a headered CSV file. Column
// names are matched case-insensitively with fallbacks: body|text|summary,
// link|url|source_id, id|source_id, published_at|published.
type CSVAdapter struct {
	path string
}

// NewCSVAdapter builds an adapter for a CSV file on disk.
func NewCSVAdapter(path string) *CSVAdapter {
	return &CSVAdapter{path: path}
}

// Fetch parses the file. A missing file yields no candidates rather than an
// error, so a not-yet-delivered export does not fail the whole run.
func (c *CSVAdapter) Fetch(ctx context.Context) ([]models.CandidateDocument, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("csv %s: open: %w", c.path, err)
	}
	defer f.Close()

	cands, err := parseCSVRows(f)
	if err != nil {
		return nil, fmt.Errorf("csv %s: %w", c.path, err)
	}
	return cands, nil
}

func parseCSVRows(r io.Reader) ([]models.CandidateDocument, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	field := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := idx[name]; ok && i < len(row) {
				if v := strings.TrimSpace(row[i]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	var cands []models.CandidateDocument
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		body := field(row, "body", "text", "summary")
		if body == "" {
			continue
		}

		link := field(row, "link", "url", "source_id")
		if link == "" || !strings.HasPrefix(link, "http") {
			link = "https://csv.local/" + uuid.NewString()
		}

		cands = append(cands, models.CandidateDocument{
			SourceID:    field(row, "id", "source_id"),
			Title:       field(row, "title"),
			Body:        body,
			Link:        link,
			Language:    field(row, "language", "lang"),
			PublishedAt: parseCSVTime(field(row, "published_at", "published")),
		})
	}
	return cands, nil
}

func parseCSVTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, f := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(f, raw); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func atoiOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}
