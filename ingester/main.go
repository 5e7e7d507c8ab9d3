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
	"github.com/Moonlight-Technology/sentiment/internal/ingest"
	"github.com/Moonlight-Technology/sentiment/internal/logger"
	"github.com/Moonlight-Technology/sentiment/internal/models"
	"github.com/Moonlight-Technology/sentiment/internal/source"
	"github.com/Moonlight-Technology/sentiment/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run all sources once and exit")
	flag.Parse()

	log := logger.New("ingester")
	cfg, err := config.LoadIngester()
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

	ingestor := ingest.New(db, log)
	runner := ingest.NewRunner(db, ingestor, func(src models.Source) (source.Adapter, error) {
		return source.New(src, source.Options{FetchTimeout: cfg.FetchTimeout})
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	runAll := func() {
		reports, err := runner.RunAll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("list sources", slog.Any("err", err))
			return
		}
		for _, report := range reports {
			if report.Error != "" {
				log.Warn("source run failed",
					slog.String("source", report.SourceID),
					slog.String("err", report.Error),
				)
			}
		}
	}

	log.Info("ingester started",
		slog.Duration("interval", cfg.Interval),
		slog.Bool("once", *once),
	)

	runAll()
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runAll()
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		}
	}
}
