package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/Moonlight-Technology/sentiment/internal/models"
)

// twitterLabelCodes maps the sentiment140-style code column to seed labels.
var twitterLabelCodes = map[string]string{
	"0": models.LabelNegative,
	"2": models.LabelNeutral,
	"4": models.LabelPositive,
}

// ParseTwitterCSV parses an uploaded headerless Twitter CSV export with the
// column layout (sentiment code, tweet id, published, query, username,
// text). At most limit candidates are returned; rows with fewer than six
// columns or without text are skipped.
func ParseTwitterCSV(r io.Reader, limit int) ([]models.CandidateDocument, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var cands []models.CandidateDocument
	for index := 0; ; index++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("twitter csv: read row %d: %w", index, err)
		}
		if limit > 0 && len(cands) >= limit {
			break
		}
		if len(row) < 6 {
			continue
		}

		code, tweetID, published, query, username, body := row[0], row[1], row[2], row[3], row[4], row[5]
		if body == "" {
			continue
		}

		var seedLabels []string
		if label, ok := twitterLabelCodes[code]; ok {
			seedLabels = []string{label}
		} else if code != "" {
			seedLabels = []string{"unknown"}
		}

		cands = append(cands, models.CandidateDocument{
			SourceID:    tweetID,
			Title:       truncate(body, 120),
			Body:        body,
			Language:    "en",
			PublishedAt: parseTwitterTime(published),
			Metadata: map[string]string{
				"username":    username,
				"query":       query,
				"tweet_index": fmt.Sprintf("%d", index),
			},
			SeedLabels: seedLabels,
		})
	}
	return cands, nil
}

// parseTwitterTime handles the RFC 2822-style dates the export uses.
func parseTwitterTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if ts, err := mail.ParseDate(raw); err == nil {
		ts = ts.UTC()
		return &ts
	}
	// The classic sentiment140 dump drops the comma after the weekday.
	if ts, err := time.Parse("Mon Jan 02 15:04:05 MST 2006", raw); err == nil {
		ts = ts.UTC()
		return &ts
	}
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
