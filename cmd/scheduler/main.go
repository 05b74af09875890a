// Command scheduler is the long-running ingest service: it fires the
// pipeline daily at the configured time, serves the operational HTTP API
// (health, metrics, manual run trigger), and shuts down cleanly on
// interrupt.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"trialsearch/internal/ingest/events"
	"trialsearch/internal/ingest/fetch"
	"trialsearch/internal/ingest/pipeline"
	"trialsearch/internal/ingest/runlock"
	"trialsearch/internal/ingest/scheduler"
	"trialsearch/internal/platform/config"
	"trialsearch/internal/platform/httpserver"
	"trialsearch/internal/platform/logger"
	"trialsearch/internal/platform/postgres"
	"trialsearch/internal/platform/redis"
	"trialsearch/internal/trial/engine"
	"trialsearch/internal/trial/metrics"
	"trialsearch/internal/trial/store"
	httptransport "trialsearch/internal/transport/http"
)

// runLockTTL caps how long a crashed instance can hold the distributed
// run lock.
const runLockTTL = 2 * time.Hour

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	policy, err := engine.ParsePolicy(cfg.DuplicateAction)
	if err != nil {
		log.Error("bad configuration", "error", err)
		os.Exit(1)
	}

	db, err := postgres.Open(ctx, cfg.DB)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.EnsureSchema(ctx, db); err != nil {
		log.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher, err := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	if err != nil {
		log.Error("kafka unavailable", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	eng := engine.New(store.NewPostgres(db), policy, log, metrics.New())
	fetcher := fetch.New(cfg.FetchURL, cfg.FetchLimit, cfg.DataFile, log)
	pipe := pipeline.New(fetcher, eng, publisher, log)

	lock := runlock.New(redisClient, "trialsearch:runlock", runLockTTL)
	sched := scheduler.New(cfg.Schedule, lock, func(ctx context.Context) error {
		_, err := pipe.Run(ctx)
		return err
	}, log)

	handler := httptransport.NewHandler(pipe, db, log)
	srv := httpserver.New(cfg.APIAddr, httptransport.NewRouter(handler))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving ops API", "addr", cfg.APIAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := sched.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("service stopped", "error", err)
		os.Exit(1)
	}
	log.Info("service stopped")
}
