package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Moonlight-Technology/sentiment/internal/config"
	"github.com/Moonlight-Technology/sentiment/internal/logger"
	"github.com/Moonlight-Technology/sentiment/internal/scoring"
	"github.com/Moonlight-Technology/sentiment/internal/store"
)

func main() {
	once := flag.Bool("once", false, "score one batch and exit")
	flag.Parse()

	log := logger.New("worker")
	cfg, err := config.LoadWorker()
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
		Stage:          cfg.Scorer.Stage,
		PredictTimeout: cfg.Scorer.Timeout,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	runBatch := func() {
		report, err := pipeline.ScorePending(ctx, cfg.BatchLimit)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("scoring batch", slog.Any("err", err))
			return
		}
		if report.Failed > 0 {
			for _, failure := range report.Failures {
				log.Warn("document failed",
					slog.String("document_id", failure.DocumentID),
					slog.String("reason", failure.Reason),
				)
			}
		}
	}

	log.Info("worker started",
		slog.String("scorer", cfg.Scorer.Name),
		slog.String("version", cfg.Scorer.Version),
		slog.Int("batch_limit", cfg.BatchLimit),
		slog.Bool("once", *once),
	)

	runBatch()
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runBatch()
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		}
	}
}
