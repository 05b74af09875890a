// Package engine is the transform-and-load core: it takes a collection of
// raw study documents, runs validate → map → resolve-conflict → persist
// for each inside its own unit of work, and aggregates run statistics.
// One record's failure never aborts the batch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trialsearch/internal/trial/document"
	"trialsearch/internal/trial/mapper"
	"trialsearch/internal/trial/metrics"
	"trialsearch/internal/trial/models"
	"trialsearch/internal/trial/store"
)

// Policy is the run-wide duplicate resolution: what to do when a document's
// NCT ID already exists in the store.
type Policy string

const (
	PolicySkip   Policy = "skip"
	PolicyUpdate Policy = "update"
	PolicyError  Policy = "error"
)

// ParsePolicy validates a policy string, defaulting empty input to skip.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case PolicySkip, PolicyUpdate, PolicyError:
		return Policy(raw), nil
	case "":
		return PolicySkip, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q", raw)
}

// DuplicateTrialError reports a record rejected under PolicyError. It is
// record-scoped; the batch counts it and continues.
type DuplicateTrialError struct {
	NCTID string
}

func (e *DuplicateTrialError) Error() string {
	return fmt.Sprintf("trial %s already exists", e.NCTID)
}

// progressInterval is how often long batches emit a liveness log line.
const progressInterval = 100

// Engine runs batches against one persistence gateway with one policy.
// It is single-threaded by design: the existence check and the following
// insert or delete for the same NCT ID must not interleave.
type Engine struct {
	store   store.Store
	policy  Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs an engine. metrics may be nil.
func New(st store.Store, policy Policy, logger *slog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{store: st, policy: policy, logger: logger, metrics: m}
}

// Run processes the documents in order. It always returns statistics; the
// error is non-nil only when the batch itself could not proceed (the
// gateway is unreachable, or the context was cancelled between records).
// Data-quality failures are counted per record, never returned.
func (e *Engine) Run(ctx context.Context, docs []document.Document) (*RunStats, error) {
	stats := newRunStats(len(docs))
	e.metrics.SetLastRunSize(len(docs))

	e.logger.InfoContext(ctx, "starting load run",
		"run_id", stats.RunID,
		"documents", len(docs),
		"policy", string(e.policy),
	)

	for i, doc := range docs {
		// Cancellation is coarse: observed between records only. A unit
		// of work that has begun runs to commit or rollback.
		if err := ctx.Err(); err != nil {
			stats.FinishedAt = time.Now().UTC()
			return stats, fmt.Errorf("run abandoned after %d records: %w", i, err)
		}

		start := time.Now()
		outcome, err := e.processRecord(ctx, doc)
		e.metrics.ObserveRecordDuration(time.Since(start))

		switch {
		case err != nil && errors.Is(err, errGatewayDown):
			stats.FinishedAt = time.Now().UTC()
			return stats, fmt.Errorf("record %d: %w", i, err)
		case err != nil:
			stats.recordFailure(i, err)
			e.metrics.RecordOutcome(metrics.OutcomeErrored)
			e.logger.ErrorContext(ctx, "record failed",
				"run_id", stats.RunID, "position", i, "error", err)
		case outcome == outcomeSkipped:
			stats.Skipped++
			e.metrics.RecordOutcome(metrics.OutcomeSkipped)
		case outcome == outcomeUpdated:
			stats.Processed++
			stats.Updated++
			e.metrics.RecordOutcome(metrics.OutcomeUpdated)
		default:
			stats.Processed++
			e.metrics.RecordOutcome(metrics.OutcomeProcessed)
		}

		if (i+1)%progressInterval == 0 {
			e.logger.InfoContext(ctx, "load progress",
				"run_id", stats.RunID,
				"done", i+1,
				"total", len(docs),
				"errored", stats.Errored,
			)
		}
	}

	stats.FinishedAt = time.Now().UTC()
	e.logger.InfoContext(ctx, "load run finished", "stats", stats)
	return stats, nil
}

type recordOutcome int

const (
	outcomeInserted recordOutcome = iota
	outcomeUpdated
	outcomeSkipped
)

// errGatewayDown marks failures that mean the store itself is gone, which
// abort the batch instead of counting as record errors.
var errGatewayDown = errors.New("persistence gateway unavailable")

// processRecord runs the full per-record pipeline inside one unit of work.
// Any returned error has already rolled the unit of work back.
func (e *Engine) processRecord(ctx context.Context, doc document.Document) (recordOutcome, error) {
	if err := document.Validate(doc); err != nil {
		return 0, err
	}

	agg := mapper.Map(doc)
	nctID := agg.Trial.NCTID

	uow, err := e.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errGatewayDown, err)
	}

	outcome, err := e.resolveAndPersist(ctx, uow, agg)
	if err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			e.logger.ErrorContext(ctx, "rollback failed", "trial_id", nctID, "error", rbErr)
		}
		return 0, err
	}
	if outcome == outcomeSkipped {
		// Nothing written; release the transaction.
		if err := uow.Rollback(); err != nil {
			return 0, err
		}
		return outcomeSkipped, nil
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}

	e.logger.DebugContext(ctx, "trial loaded", "trial_id", nctID, "outcome", outcome.String())
	return outcome, nil
}

func (o recordOutcome) String() string {
	switch o {
	case outcomeUpdated:
		return "updated"
	case outcomeSkipped:
		return "skipped"
	default:
		return "inserted"
	}
}

// resolveAndPersist applies the conflict policy and writes the aggregate.
func (e *Engine) resolveAndPersist(ctx context.Context, uow store.UnitOfWork, agg *models.Aggregate) (recordOutcome, error) {
	existing, err := uow.FindTrial(ctx, agg.Trial.NCTID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	outcome := outcomeInserted
	if existing != nil {
		switch e.policy {
		case PolicySkip:
			return outcomeSkipped, nil
		case PolicyError:
			return 0, &DuplicateTrialError{NCTID: agg.Trial.NCTID}
		case PolicyUpdate:
			// Full replacement: children and search document go first so
			// referential dependencies hold, then the trial row itself.
			if err := uow.DeleteChildren(ctx, existing.ID); err != nil {
				return 0, err
			}
			if err := uow.DeleteTrial(ctx, existing.NCTID); err != nil {
				return 0, err
			}
			outcome = outcomeUpdated
		}
	}

	if err := e.insertAggregate(ctx, uow, agg); err != nil {
		return 0, err
	}
	return outcome, nil
}

func (e *Engine) insertAggregate(ctx context.Context, uow store.UnitOfWork, agg *models.Aggregate) error {
	if err := uow.InsertTrial(ctx, &agg.Trial); err != nil {
		return err
	}
	trialID := agg.Trial.ID

	if agg.Identification != nil {
		agg.Identification.TrialID = trialID
		if err := uow.InsertIdentification(ctx, agg.Identification); err != nil {
			return err
		}
	}
	if agg.Status != nil {
		agg.Status.TrialID = trialID
		if err := uow.InsertStatus(ctx, agg.Status); err != nil {
			return err
		}
	}
	if agg.Description != nil {
		agg.Description.TrialID = trialID
		if err := uow.InsertDescription(ctx, agg.Description); err != nil {
			return err
		}
	}
	for i := range agg.Conditions {
		agg.Conditions[i].TrialID = trialID
	}
	if err := uow.InsertConditions(ctx, agg.Conditions); err != nil {
		return err
	}
	for i := range agg.Keywords {
		agg.Keywords[i].TrialID = trialID
	}
	if err := uow.InsertKeywords(ctx, agg.Keywords); err != nil {
		return err
	}
	for i := range agg.Interventions {
		agg.Interventions[i].TrialID = trialID
	}
	if err := uow.InsertInterventions(ctx, agg.Interventions); err != nil {
		return err
	}
	for i := range agg.Locations {
		agg.Locations[i].TrialID = trialID
	}
	if err := uow.InsertLocations(ctx, agg.Locations); err != nil {
		return err
	}
	for i := range agg.Sponsors {
		agg.Sponsors[i].TrialID = trialID
	}
	if err := uow.InsertSponsors(ctx, agg.Sponsors); err != nil {
		return err
	}

	agg.Search.TrialID = trialID
	e.tokenize(ctx, uow, agg)
	return uow.InsertSearchDocument(ctx, &agg.Search)
}

// tokenize fills the search document's index payloads. Token failures are
// logged and degrade to null payloads; they never abort the record.
func (e *Engine) tokenize(ctx context.Context, uow store.UnitOfWork, agg *models.Aggregate) {
	build := func(text string) *string {
		tokens, err := uow.BuildSearchTokens(ctx, text)
		if err != nil {
			e.logger.WarnContext(ctx, "search token build failed",
				"trial_id", agg.Trial.NCTID, "error", err)
			return nil
		}
		return tokens
	}
	agg.Search.TitleTokens = build(agg.Search.TitleText)
	agg.Search.ConditionTokens = build(agg.Search.AllConditions)
	agg.Search.InterventionTokens = build(agg.Search.AllInterventions)
	agg.Search.LocationTokens = build(agg.Search.AllLocations)
	agg.Search.DescriptionTokens = build(agg.Search.DescriptionText)
}
