// Package pipeline glues one full pass together: fetch (or snapshot load),
// engine run, run-stat retention, and best-effort event publishing. It is
// what the scheduler and the ops API trigger.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"trialsearch/internal/ingest/events"
	"trialsearch/internal/trial/document"
	"trialsearch/internal/trial/engine"
)

// ErrRunInProgress reports a trigger while a run is already executing.
// Runs are single-flight: the engine requires same-identifier operations
// not to interleave.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Source yields the documents for one run.
type Source interface {
	Download(ctx context.Context) ([]document.Document, error)
	LoadSnapshot() ([]document.Document, error)
}

type Pipeline struct {
	source Source
	engine *engine.Engine
	events *events.Publisher
	logger *slog.Logger

	runMu sync.Mutex
	last  atomic.Pointer[engine.RunStats]
}

func New(source Source, eng *engine.Engine, pub *events.Publisher, logger *slog.Logger) *Pipeline {
	return &Pipeline{source: source, engine: eng, events: pub, logger: logger}
}

// Run executes one full pass: download the collection (falling back to the
// last snapshot when the registry is unreachable), load it, retain the
// stats, and publish the run event. Only one run executes at a time.
func (p *Pipeline) Run(ctx context.Context) (*engine.RunStats, error) {
	if !p.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.runMu.Unlock()

	docs, err := p.source.Download(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "download failed, trying last snapshot", "error", err)
		docs, err = p.source.LoadSnapshot()
		if err != nil {
			return nil, err
		}
	}

	stats, err := p.engine.Run(ctx, docs)
	if stats != nil {
		p.last.Store(stats)
	}
	if err != nil {
		return stats, err
	}

	if pubErr := p.events.PublishRunCompleted(ctx, stats); pubErr != nil {
		p.logger.WarnContext(ctx, "run event publish failed", "run_id", stats.RunID, "error", pubErr)
	}
	return stats, nil
}

// LastRun returns the most recent run's statistics, nil before any run.
func (p *Pipeline) LastRun() *engine.RunStats {
	return p.last.Load()
}
