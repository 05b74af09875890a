//go:build integration

package store_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"trialsearch/internal/trial/document"
	"trialsearch/internal/trial/engine"
	"trialsearch/internal/trial/models"
	"trialsearch/internal/trial/store"
	"trialsearch/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(store.EnsureSchema(context.Background(), s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "clinical_trials"))
}

func (s *PostgresStoreSuite) countRows(table string) int {
	var n int
	err := s.postgres.DB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	s.Require().NoError(err)
	return n
}

func sampleAggregate(nctID string) *models.Aggregate {
	lat, lon := 42.36, -71.06
	enrollment := int64(120)
	return &models.Aggregate{
		Trial: models.Trial{
			NCTID:           nctID,
			BriefTitle:      "Sample Trial",
			OverallStatus:   "RECRUITING",
			StudyType:       "INTERVENTIONAL",
			Phase:           "PHASE2",
			EnrollmentCount: &enrollment,
			LeadSponsorName: "Example Pharma",
		},
		Identification: &models.Identification{NCTID: nctID, BriefTitle: "Sample Trial"},
		Status:         &models.Status{OverallStatus: "RECRUITING"},
		Description:    &models.Description{BriefSummary: "A short summary"},
		Conditions:     []models.Condition{{Term: "Diabetes"}, {Term: "Obesity"}},
		Keywords:       []models.Keyword{{Term: "metformin", Type: models.KeywordTypeSubmitted}},
		Interventions:  []models.Intervention{{Type: "DRUG", Name: "Metformin"}},
		Locations: []models.Location{
			{Facility: "Example Hospital", City: "Boston", Country: "United States",
				Latitude: &lat, Longitude: &lon, IsPrimary: true},
		},
		Sponsors: []models.Sponsor{{Role: models.SponsorRoleLead, Name: "Example Pharma"}},
		Search: models.SearchDocument{
			TitleText:         "Sample Trial",
			AllConditions:     "Diabetes, Obesity",
			VectorVersion:     1,
			CompletenessScore: 0.8,
			TermCount:         2,
		},
	}
}

func (s *PostgresStoreSuite) insertAggregate(agg *models.Aggregate) {
	ctx := context.Background()
	uow, err := s.store.Begin(ctx)
	s.Require().NoError(err)

	s.Require().NoError(uow.InsertTrial(ctx, &agg.Trial))
	trialID := agg.Trial.ID

	agg.Identification.TrialID = trialID
	s.Require().NoError(uow.InsertIdentification(ctx, agg.Identification))
	agg.Status.TrialID = trialID
	s.Require().NoError(uow.InsertStatus(ctx, agg.Status))
	agg.Description.TrialID = trialID
	s.Require().NoError(uow.InsertDescription(ctx, agg.Description))
	for i := range agg.Conditions {
		agg.Conditions[i].TrialID = trialID
	}
	s.Require().NoError(uow.InsertConditions(ctx, agg.Conditions))
	for i := range agg.Keywords {
		agg.Keywords[i].TrialID = trialID
	}
	s.Require().NoError(uow.InsertKeywords(ctx, agg.Keywords))
	for i := range agg.Interventions {
		agg.Interventions[i].TrialID = trialID
	}
	s.Require().NoError(uow.InsertInterventions(ctx, agg.Interventions))
	for i := range agg.Locations {
		agg.Locations[i].TrialID = trialID
	}
	s.Require().NoError(uow.InsertLocations(ctx, agg.Locations))
	for i := range agg.Sponsors {
		agg.Sponsors[i].TrialID = trialID
	}
	s.Require().NoError(uow.InsertSponsors(ctx, agg.Sponsors))

	agg.Search.TrialID = trialID
	tokens, err := uow.BuildSearchTokens(ctx, agg.Search.AllConditions)
	s.Require().NoError(err)
	agg.Search.ConditionTokens = tokens
	s.Require().NoError(uow.InsertSearchDocument(ctx, &agg.Search))

	s.Require().NoError(uow.Commit())
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	ctx := context.Background()
	agg := sampleAggregate("NCT00000001")
	s.insertAggregate(agg)

	found, err := s.store.FindTrial(ctx, "NCT00000001")
	s.Require().NoError(err)
	s.Equal("Sample Trial", found.BriefTitle)
	s.Equal("RECRUITING", found.OverallStatus)
	s.Equal("PHASE2", found.Phase)
	s.Require().NotNil(found.EnrollmentCount)
	s.Equal(int64(120), *found.EnrollmentCount)
	s.False(found.CreatedAt.IsZero())

	s.Equal(2, s.countRows("conditions"))
	s.Equal(1, s.countRows("keywords"))
	s.Equal(1, s.countRows("search_documents"))
}

func (s *PostgresStoreSuite) TestFindMissingTrial() {
	_, err := s.store.FindTrial(context.Background(), "NCT99999999")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRollbackLeavesNothing() {
	ctx := context.Background()
	uow, err := s.store.Begin(ctx)
	s.Require().NoError(err)

	trial := models.Trial{NCTID: "NCT00000002", BriefTitle: "Doomed"}
	s.Require().NoError(uow.InsertTrial(ctx, &trial))
	s.Require().NoError(uow.InsertConditions(ctx, []models.Condition{{TrialID: trial.ID, Term: "X"}}))
	s.Require().NoError(uow.Rollback())

	_, err = s.store.FindTrial(ctx, "NCT00000002")
	s.ErrorIs(err, store.ErrNotFound)
	s.Equal(0, s.countRows("conditions"))
}

func (s *PostgresStoreSuite) TestDeleteReplacement() {
	ctx := context.Background()
	agg := sampleAggregate("NCT00000003")
	s.insertAggregate(agg)

	uow, err := s.store.Begin(ctx)
	s.Require().NoError(err)
	existing, err := uow.FindTrial(ctx, "NCT00000003")
	s.Require().NoError(err)
	s.Require().NoError(uow.DeleteChildren(ctx, existing.ID))
	s.Require().NoError(uow.DeleteTrial(ctx, existing.NCTID))

	replacement := models.Trial{NCTID: "NCT00000003", BriefTitle: "Replaced"}
	s.Require().NoError(uow.InsertTrial(ctx, &replacement))
	s.Require().NoError(uow.Commit())

	found, err := s.store.FindTrial(ctx, "NCT00000003")
	s.Require().NoError(err)
	s.Equal("Replaced", found.BriefTitle)
	s.Equal(0, s.countRows("conditions"), "replacement leaves no child residue")
	s.Equal(0, s.countRows("search_documents"))
	s.Equal(1, s.countRows("clinical_trials"))
}

func (s *PostgresStoreSuite) TestBuildSearchTokens() {
	ctx := context.Background()
	uow, err := s.store.Begin(ctx)
	s.Require().NoError(err)
	defer func() { _ = uow.Rollback() }()

	tokens, err := uow.BuildSearchTokens(ctx, "Diabetes and Obesity")
	s.Require().NoError(err)
	s.Require().NotNil(tokens)
	s.Contains(*tokens, "diabet", "payload carries stemmed lexemes")

	empty, err := uow.BuildSearchTokens(ctx, "")
	s.Require().NoError(err)
	s.Nil(empty)
}

// TestEngineEndToEnd drives the full per-record pipeline against the real
// gateway: raw document in, all eleven tables populated.
func (s *PostgresStoreSuite) TestEngineEndToEnd() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(s.store, engine.PolicyUpdate, logger, nil)

	doc := document.Document{
		"protocolSection": map[string]any{
			"identificationModule": map[string]any{
				"nctId":      "NCT00000004",
				"briefTitle": "End to End Trial",
			},
			"statusModule": map[string]any{"overallStatus": "COMPLETED"},
			"conditionsModule": map[string]any{
				"conditions": []any{"Hypertension"},
			},
			"descriptionModule": map[string]any{
				"briefSummary": "Blood pressure control study",
			},
		},
	}

	stats, err := eng.Run(context.Background(), []document.Document{doc})
	s.Require().NoError(err)
	s.Equal(1, stats.Processed)
	s.Equal(0, stats.Errored)

	found, err := s.store.FindTrial(context.Background(), "NCT00000004")
	s.Require().NoError(err)
	s.Equal("End to End Trial", found.BriefTitle)
	s.Equal("COMPLETED", found.OverallStatus)

	var vector *string
	err = s.postgres.DB.QueryRow(
		`SELECT description_vector::text FROM search_documents WHERE trial_id = $1`, found.ID,
	).Scan(&vector)
	s.Require().NoError(err)
	s.Require().NotNil(vector)
	s.Contains(*vector, "pressur", "description tokenized through the text search configuration")

	// Reload under the update policy replaces in place.
	stats, err = eng.Run(context.Background(), []document.Document{doc})
	s.Require().NoError(err)
	s.Equal(1, stats.Updated)
	s.Equal(1, s.countRows("clinical_trials"))
	s.Equal(1, s.countRows("search_documents"))
}
