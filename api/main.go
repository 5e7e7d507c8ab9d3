package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Moonlight-Technology/sentiment/internal/aggregate"
	"github.com/Moonlight-Technology/sentiment/internal/config"
	"github.com/Moonlight-Technology/sentiment/internal/ingest"
	"github.com/Moonlight-Technology/sentiment/internal/logger"
	"github.com/Moonlight-Technology/sentiment/internal/models"
	"github.com/Moonlight-Technology/sentiment/internal/scoring"
	"github.com/Moonlight-Technology/sentiment/internal/source"
	"github.com/Moonlight-Technology/sentiment/internal/store"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("open store", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	scorer := scoring.NewClient(cfg.Scorer.URL, cfg.Scorer.APIKey, cfg.Scorer.Timeout)
	norm := scoring.NewNormalizer(cfg.LabelMapping)
	pipeline := scoring.NewPipeline(db, scorer, norm, scoring.Config{
		ScorerName:     cfg.Scorer.Name,
		ScorerVersion:  cfg.Scorer.Version,
		Stage:          "interactive",
		PredictTimeout: cfg.Scorer.Timeout,
	}, log)

	ingestor := ingest.New(db, log)
	runner := ingest.NewRunner(db, ingestor, func(src models.Source) (source.Adapter, error) {
		return source.New(src, source.Options{FetchTimeout: 30 * time.Second})
	}, log)
	aggregator := aggregate.New(db, cfg.KeywordMatchLimit, log)

	srv := &server{
		log:        log,
		cfg:        cfg,
		db:         db,
		scorer:     scorer,
		norm:       norm,
		pipeline:   pipeline,
		ingestor:   ingestor,
		runner:     runner,
		aggregator: aggregator,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Get("/sources", srv.handleListSources)
	r.Post("/sources", srv.handleCreateSource)
	r.Post("/ingest/run", srv.handleIngestRun)
	r.Post("/ingest/run/{sourceID}", srv.handleIngestRunOne)
	r.Post("/ingest/upload/twitter", srv.handleTwitterUpload)
	r.Post("/sentiment/run", srv.handleSentimentRun)
	r.Post("/sentiment/documents/{documentID}", srv.handleScoreDocument)
	r.Post("/sentiment/analyze", srv.handleAnalyze)
	r.Get("/sentiment/stats", srv.handleStats)
	r.Post("/keywords/refresh", srv.handleKeywordRefresh)
	r.Get("/keywords/{keyword}", srv.handleGetKeyword)
	r.Get("/documents", srv.handleListDocuments)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log        *slog.Logger
	cfg        *config.API
	db         *store.Store
	scorer     scoring.Scorer
	norm       *scoring.Normalizer
	pipeline   *scoring.Pipeline
	ingestor   *ingest.Ingestor
	runner     *ingest.Runner
	aggregator *aggregate.Aggregator
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.ListSources(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

type createSourceRequest struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Config   map[string]string `json:"config"`
	Schedule string            `json:"schedule"`
	Status   string            `json:"status"`
}

func (s *server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var req createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	now := time.Now().UTC()
	src := models.Source{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Type:      req.Type,
		Config:    req.Config,
		Schedule:  req.Schedule,
		Status:    req.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if src.Status == "" {
		src.Status = models.SourceStatusActive
	}

	if err := source.Validate(src); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.db.InsertSource(r.Context(), src); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (s *server) handleIngestRun(w http.ResponseWriter, r *http.Request) {
	reports, err := s.runner.RunAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": reports})
}

func (s *server) handleIngestRunOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sourceID")
	report, err := s.runner.RunOne(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) handleTwitterUpload(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(r.URL.Query().Get("limit"), s.cfg.UploadLimit, s.cfg.UploadLimit)

	cands, err := source.ParseTwitterCSV(r.Body, limit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.ingestor.Ingest(r.Context(), source.TypeCSVUpload, "en", cands)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type sentimentRunRequest struct {
	BatchLimit int `json:"batch_limit"`
}

func (s *server) handleSentimentRun(w http.ResponseWriter, r *http.Request) {
	req := sentimentRunRequest{BatchLimit: 32}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
			return
		}
	}
	if req.BatchLimit <= 0 {
		req.BatchLimit = 32
	}

	report, err := s.pipeline.ScorePending(r.Context(), req.BatchLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) handleScoreDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")
	outcome, err := s.pipeline.ScoreDocument(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Label         string             `json:"label"`
	Score         float64            `json:"score"`
	ScoresByLabel map[string]float64 `json:"scores_by_label"`
	CreatedAt     time.Time          `json:"created_at"`
}

// handleAnalyze scores ad-hoc text without persisting anything.
func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return
	}

	raw, err := s.scorer.Predict(r.Context(), req.Text)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, scoring.ErrEmptyText) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	scores := s.norm.Normalize(raw)
	label, score := scoring.TopLabel(scores)
	writeJSON(w, http.StatusOK, analyzeResponse{
		Label:         label,
		Score:         score,
		ScoresByLabel: scores,
		CreatedAt:     time.Now().UTC(),
	})
}

type statsResponse struct {
	Positive  int       `json:"positive"`
	Neutral   int       `json:"neutral"`
	Negative  int       `json:"negative"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.db.LabelCounts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Positive:  counts[models.LabelPositive],
		Neutral:   counts[models.LabelNeutral],
		Negative:  counts[models.LabelNegative],
		Total:     total,
		UpdatedAt: time.Now().UTC(),
	})
}

type keywordRefreshRequest struct {
	Keyword  string   `json:"keyword"`
	Keywords []string `json:"keywords"`
}

func (s *server) handleKeywordRefresh(w http.ResponseWriter, r *http.Request) {
	var req keywordRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return
	}

	keywords := req.Keywords
	if req.Keyword != "" {
		keywords = append([]string{req.Keyword}, keywords...)
	}
	if len(keywords) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "keyword or keywords is required"})
		return
	}

	reports := s.aggregator.RefreshAll(r.Context(), keywords)
	if len(reports) == 1 && reports[0].Error == "" {
		writeJSON(w, http.StatusOK, reports[0].Aggregate)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keywords": reports})
}

func (s *server) handleGetKeyword(w http.ResponseWriter, r *http.Request) {
	keyword := chi.URLParam(r, "keyword")
	agg, err := s.db.GetKeywordAggregate(r.Context(), keyword)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (s *server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	filter := store.DocumentFilter{
		SourceType: strings.TrimSpace(r.URL.Query().Get("source_type")),
		Language:   strings.TrimSpace(r.URL.Query().Get("language")),
		Offset:     clampInt(r.URL.Query().Get("from"), 0, 10_000),
		Limit:      clampInt(r.URL.Query().Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
	}

	docs, err := s.db.ListDocuments(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
