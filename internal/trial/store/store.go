// Package store is the persistence gateway for trial aggregates: a
// transactional relational store with unit-of-work semantics. The engine
// depends only on the interfaces here; PostgreSQL is the production
// implementation and the memory implementation backs tests.
package store

import (
	"context"
	"errors"

	"trialsearch/internal/trial/models"
)

// ErrNotFound reports that no trial exists for the given identifier.
var ErrNotFound = errors.New("trial not found")

// Store opens units of work and answers existence lookups outside any
// transaction. The handle is scoped to a whole batch run and closed by the
// caller that opened it, never by individual records.
type Store interface {
	// FindTrial returns the stored trial for an NCT ID, or ErrNotFound.
	FindTrial(ctx context.Context, nctID string) (*models.Trial, error)

	// Begin opens one unit of work. Every record of a batch gets its own;
	// it must end in exactly one Commit or Rollback.
	Begin(ctx context.Context) (UnitOfWork, error)

	Close() error
}

// UnitOfWork is one atomic, all-or-nothing persistence operation covering
// a single record's aggregate. Insert methods assign store identifiers to
// the entities they are given.
type UnitOfWork interface {
	FindTrial(ctx context.Context, nctID string) (*models.Trial, error)

	InsertTrial(ctx context.Context, t *models.Trial) error
	InsertIdentification(ctx context.Context, row *models.Identification) error
	InsertStatus(ctx context.Context, row *models.Status) error
	InsertDescription(ctx context.Context, row *models.Description) error
	InsertConditions(ctx context.Context, rows []models.Condition) error
	InsertKeywords(ctx context.Context, rows []models.Keyword) error
	InsertInterventions(ctx context.Context, rows []models.Intervention) error
	InsertLocations(ctx context.Context, rows []models.Location) error
	InsertSponsors(ctx context.Context, rows []models.Sponsor) error
	InsertSearchDocument(ctx context.Context, row *models.SearchDocument) error

	// DeleteChildren removes all child rows and the search document for a
	// trial. It must run before DeleteTrial so referential dependencies
	// are respected.
	DeleteChildren(ctx context.Context, trialID int64) error
	DeleteTrial(ctx context.Context, nctID string) error

	// BuildSearchTokens turns text into an opaque full-text index payload.
	// Empty input yields nil. Failures degrade to nil at the caller, they
	// must not abort the record.
	BuildSearchTokens(ctx context.Context, text string) (*string, error)

	Commit() error
	Rollback() error
}
