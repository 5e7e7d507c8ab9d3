package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrEmptyText is returned when a document has no text to score.
	ErrEmptyText = errors.New("text is required for sentiment scoring")
	// ErrEmptyDistribution is returned when the model responds without any
	// label scores; a silent empty mapping is never accepted.
	ErrEmptyDistribution = errors.New("scorer returned no label scores")
)

// Scorer is the classification capability: raw label -> confidence in [0,1].
type Scorer interface {
	Predict(ctx context.Context, text string) (map[string]float64, error)
}

// Client talks to an external inference service over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ Scorer = (*Client)(nil)

// NewClient creates a reusable scorer client.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Predict posts the text to the inference service and returns the raw label
// distribution.
func (c *Client) Predict(ctx context.Context, text string) (map[string]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var payload struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Scores) == 0 {
		return nil, ErrEmptyDistribution
	}

	return payload.Scores, nil
}
