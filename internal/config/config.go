package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Common contains settings shared by every service.
type Common struct {
	DatabasePath string
}

// Scorer describes the external sentiment model endpoint and the identity
// under which its results are recorded.
type Scorer struct {
	URL          string
	APIKey       string
	Timeout      time.Duration
	Name         string
	Version      string
	Stage        string
	LabelMapFile string
	LabelMapping map[string]string
}

// Worker holds configuration for the batch scoring worker.
type Worker struct {
	Common
	Scorer
	BatchLimit int
	Interval   time.Duration
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Scorer
	BindAddr          string
	KeywordMatchLimit int
	DefaultPage       int
	MaxPage           int
	UploadLimit       int
}

// Ingester configures the source ingestion loop.
type Ingester struct {
	Common
	Interval     time.Duration
	FetchTimeout time.Duration
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	scorer, err := loadScorer()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:     loadCommon(),
		Scorer:     *scorer,
		BatchLimit: getInt("WORKER_BATCH_LIMIT", 32),
		Interval:   getDuration("WORKER_INTERVAL", "5m"),
	}

	if c.BatchLimit <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_LIMIT must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("WORKER_INTERVAL must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	scorer, err := loadScorer()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:            loadCommon(),
		Scorer:            *scorer,
		BindAddr:          getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		KeywordMatchLimit: getInt("API_KEYWORD_MATCH_LIMIT", 500),
		DefaultPage:       getInt("API_PAGE_SIZE", 20),
		MaxPage:           getInt("API_MAX_PAGE_SIZE", 100),
		UploadLimit:       getInt("API_UPLOAD_LIMIT", 10000),
	}

	if c.KeywordMatchLimit <= 0 {
		return nil, fmt.Errorf("API_KEYWORD_MATCH_LIMIT must be positive")
	}
	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.UploadLimit <= 0 {
		return nil, fmt.Errorf("API_UPLOAD_LIMIT must be positive")
	}

	return c, nil
}

// LoadIngester builds an Ingester config from environment variables.
func LoadIngester() (*Ingester, error) {
	c := &Ingester{
		Common:       loadCommon(),
		Interval:     getDuration("INGEST_INTERVAL", "15m"),
		FetchTimeout: getDuration("INGEST_FETCH_TIMEOUT", "30s"),
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("INGEST_INTERVAL must be positive")
	}
	if c.FetchTimeout <= 0 {
		return nil, fmt.Errorf("INGEST_FETCH_TIMEOUT must be positive")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		DatabasePath: getEnv("DATABASE_PATH", "data/sentiment.db"),
	}
}

func loadScorer() (*Scorer, error) {
	c := &Scorer{
		URL:          getEnv("SCORER_URL", "http://scorer:8000"),
		APIKey:       getEnv("SCORER_API_KEY", ""),
		Timeout:      getDuration("SCORER_TIMEOUT", "15s"),
		Name:         getEnv("SCORER_NAME", "indobert-base-sentiment"),
		Version:      getEnv("SCORER_VERSION", "latest"),
		Stage:        getEnv("PIPELINE_STAGE", "batch"),
		LabelMapFile: getEnv("LABEL_MAP_FILE", ""),
	}

	if c.Name == "" {
		return nil, fmt.Errorf("SCORER_NAME must not be empty")
	}
	if c.Version == "" {
		return nil, fmt.Errorf("SCORER_VERSION must not be empty")
	}
	if c.Timeout <= 0 {
		return nil, fmt.Errorf("SCORER_TIMEOUT must be positive")
	}

	mapping, err := LoadLabelMapping(c.LabelMapFile)
	if err != nil {
		return nil, err
	}
	c.LabelMapping = mapping

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}
