package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Moonlight-Technology/sentiment/internal/config"
)

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("SCORER_URL", "")
	t.Setenv("SCORER_NAME", "")
	t.Setenv("SCORER_VERSION", "")
	t.Setenv("LABEL_MAP_FILE", "")
	t.Setenv("WORKER_BATCH_LIMIT", "")
	t.Setenv("WORKER_INTERVAL", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "data/sentiment.db", cfg.DatabasePath)
	require.Equal(t, "http://scorer:8000", cfg.Scorer.URL)
	require.Equal(t, "indobert-base-sentiment", cfg.Scorer.Name)
	require.Equal(t, "latest", cfg.Scorer.Version)
	require.Equal(t, "batch", cfg.Scorer.Stage)
	require.Equal(t, 32, cfg.BatchLimit)
	require.Equal(t, 5*time.Minute, cfg.Interval)
	require.Equal(t, "neutral", cfg.LabelMapping["label_1"])
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("SCORER_URL", "http://localhost:9999")
	t.Setenv("SCORER_NAME", "custom-model")
	t.Setenv("SCORER_VERSION", "v2")
	t.Setenv("PIPELINE_STAGE", "backfill")
	t.Setenv("SCORER_TIMEOUT", "3s")
	t.Setenv("WORKER_BATCH_LIMIT", "7")
	t.Setenv("WORKER_INTERVAL", "90s")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "/tmp/test.db", cfg.DatabasePath)
	require.Equal(t, "http://localhost:9999", cfg.Scorer.URL)
	require.Equal(t, "custom-model", cfg.Scorer.Name)
	require.Equal(t, "v2", cfg.Scorer.Version)
	require.Equal(t, "backfill", cfg.Scorer.Stage)
	require.Equal(t, 3*time.Second, cfg.Scorer.Timeout)
	require.Equal(t, 7, cfg.BatchLimit)
	require.Equal(t, 90*time.Second, cfg.Interval)
}

func TestLoadAPI(t *testing.T) {
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("API_KEYWORD_MATCH_LIMIT", "50")
	t.Setenv("API_PAGE_SIZE", "15")
	t.Setenv("API_MAX_PAGE_SIZE", "200")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 50, cfg.KeywordMatchLimit)
	require.Equal(t, 15, cfg.DefaultPage)
	require.Equal(t, 200, cfg.MaxPage)
}

func TestLoadAPIRejectsPageOverMax(t *testing.T) {
	t.Setenv("API_PAGE_SIZE", "300")
	t.Setenv("API_MAX_PAGE_SIZE", "100")

	_, err := config.LoadAPI()
	require.Error(t, err)
}

func TestLoadIngester(t *testing.T) {
	t.Setenv("INGEST_INTERVAL", "10m")
	t.Setenv("INGEST_FETCH_TIMEOUT", "5s")

	cfg, err := config.LoadIngester()
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, cfg.Interval)
	require.Equal(t, 5*time.Second, cfg.FetchTimeout)
}

func TestLoadLabelMappingFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	raw := "LABEL_1: mixed\nsarcastic: negative\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	mapping, err := config.LoadLabelMapping(path)
	require.NoError(t, err)

	require.Equal(t, "mixed", mapping["label_1"])
	require.Equal(t, "negative", mapping["sarcastic"])
	// Untouched defaults survive.
	require.Equal(t, "positive", mapping["label_2"])
}

func TestLoadLabelMappingMissingFile(t *testing.T) {
	_, err := config.LoadLabelMapping(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
