package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var payload struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "hello", payload.Text)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"scores": map[string]float64{"label_2": 0.8, "label_0": 0.2},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)
	scores, err := client.Predict(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"label_2": 0.8, "label_0": 0.2}, scores)
}

func TestClientPredictEmptyText(t *testing.T) {
	client := NewClient("http://unused", "", time.Second)
	_, err := client.Predict(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestClientPredictEmptyScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"scores": map[string]float64{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	_, err := client.Predict(context.Background(), "hello")
	require.ErrorIs(t, err, ErrEmptyDistribution)
}

func TestClientPredictBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	_, err := client.Predict(context.Background(), "hello")
	require.Error(t, err)
}
