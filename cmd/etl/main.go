// Command etl runs one pipeline pass and exits: load the study collection
// (from the registry with -fetch, otherwise from the local snapshot),
// transform and load it into PostgreSQL, and print the run statistics as
// JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"trialsearch/internal/ingest/fetch"
	"trialsearch/internal/platform/config"
	"trialsearch/internal/platform/logger"
	"trialsearch/internal/platform/postgres"
	"trialsearch/internal/trial/document"
	"trialsearch/internal/trial/engine"
	"trialsearch/internal/trial/store"
)

func main() {
	doFetch := flag.Bool("fetch", false, "download the collection before loading instead of using the snapshot")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, *doFetch); err != nil {
		log.Error("etl failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, doFetch bool) error {
	policy, err := engine.ParsePolicy(cfg.DuplicateAction)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.EnsureSchema(ctx, db); err != nil {
		return err
	}

	fetcher := fetch.New(cfg.FetchURL, cfg.FetchLimit, cfg.DataFile, log)
	var docs []document.Document
	if doFetch {
		docs, err = fetcher.Download(ctx)
	} else {
		docs, err = fetcher.LoadSnapshot()
	}
	if err != nil {
		return err
	}

	st := store.NewPostgres(db)
	stats, err := engine.New(st, policy, log, nil).Run(ctx, docs)
	if stats != nil {
		_ = json.NewEncoder(os.Stdout).Encode(stats)
	}
	return err
}
