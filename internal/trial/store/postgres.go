package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"trialsearch/internal/trial/models"
)

// Postgres is the production persistence gateway.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle. The caller owns the handle's
// lifecycle except through Close.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

const trialColumns = `id, nct_id, brief_title, official_title, overall_status, study_type, phase,
	start_date, completion_date, enrollment_count, lead_sponsor_name, lead_sponsor_class,
	healthy_volunteers, min_age_years, max_age_years,
	primary_location_city, primary_location_state, primary_location_country,
	primary_location_lat, primary_location_lon, has_results, created_at, updated_at`

func (s *Postgres) FindTrial(ctx context.Context, nctID string) (*models.Trial, error) {
	return findTrial(ctx, s.db, nctID)
}

// Begin opens a transaction-scoped unit of work.
func (s *Postgres) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	return &pgUnitOfWork{tx: tx}, nil
}

type pgUnitOfWork struct {
	tx *sql.Tx
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findTrial(ctx context.Context, q rowQuerier, nctID string) (*models.Trial, error) {
	row := q.QueryRowContext(ctx, `SELECT `+trialColumns+` FROM clinical_trials WHERE nct_id = $1`, nctID)

	var t models.Trial
	var officialTitle, status, studyType, phase, sponsorName, sponsorClass sql.NullString
	var city, state, country sql.NullString
	var startDate, completionDate sql.NullTime
	var enrollment, minAge, maxAge sql.NullInt64
	var lat, lon sql.NullFloat64
	var healthy sql.NullBool

	err := row.Scan(
		&t.ID, &t.NCTID, &t.BriefTitle, &officialTitle, &status, &studyType, &phase,
		&startDate, &completionDate, &enrollment, &sponsorName, &sponsorClass,
		&healthy, &minAge, &maxAge,
		&city, &state, &country, &lat, &lon,
		&t.HasResults, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find trial: %w", err)
	}

	t.OfficialTitle = officialTitle.String
	t.OverallStatus = status.String
	t.StudyType = studyType.String
	t.Phase = phase.String
	t.LeadSponsorName = sponsorName.String
	t.LeadSponsorClass = sponsorClass.String
	t.HealthyVolunteers = healthy.Bool
	t.PrimaryLocationCity = city.String
	t.PrimaryLocationState = state.String
	t.PrimaryLocationCountry = country.String
	t.StartDate = timePtr(startDate)
	t.CompletionDate = timePtr(completionDate)
	t.EnrollmentCount = intPtr(enrollment)
	t.MinAgeYears = intPtr(minAge)
	t.MaxAgeYears = intPtr(maxAge)
	t.PrimaryLocationLat = floatPtr(lat)
	t.PrimaryLocationLon = floatPtr(lon)
	return &t, nil
}

func (u *pgUnitOfWork) FindTrial(ctx context.Context, nctID string) (*models.Trial, error) {
	return findTrial(ctx, u.tx, nctID)
}

func (u *pgUnitOfWork) InsertTrial(ctx context.Context, t *models.Trial) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	err := u.tx.QueryRowContext(ctx, `
		INSERT INTO clinical_trials (
			nct_id, brief_title, official_title, overall_status, study_type, phase,
			start_date, completion_date, enrollment_count, lead_sponsor_name, lead_sponsor_class,
			healthy_volunteers, min_age_years, max_age_years,
			primary_location_city, primary_location_state, primary_location_country,
			primary_location_lat, primary_location_lon, has_results, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		RETURNING id`,
		t.NCTID, t.BriefTitle, nullString(t.OfficialTitle), nullString(t.OverallStatus),
		nullString(t.StudyType), nullString(t.Phase),
		nullTime(t.StartDate), nullTime(t.CompletionDate), nullInt(t.EnrollmentCount),
		nullString(t.LeadSponsorName), nullString(t.LeadSponsorClass),
		t.HealthyVolunteers, nullInt(t.MinAgeYears), nullInt(t.MaxAgeYears),
		nullString(t.PrimaryLocationCity), nullString(t.PrimaryLocationState), nullString(t.PrimaryLocationCountry),
		nullFloat(t.PrimaryLocationLat), nullFloat(t.PrimaryLocationLon),
		t.HasResults, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert trial: %w", err)
	}
	return nil
}

func (u *pgUnitOfWork) InsertIdentification(ctx context.Context, row *models.Identification) error {
	err := u.tx.QueryRowContext(ctx, `
		INSERT INTO identification_modules (
			trial_id, nct_id, org_study_id, organization_name, organization_class,
			brief_title, official_title, acronym
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		row.TrialID, nullString(row.NCTID), nullString(row.OrgStudyID),
		nullString(row.OrganizationName), nullString(row.OrganizationClass),
		nullString(row.BriefTitle), nullString(row.OfficialTitle), nullString(row.Acronym),
	).Scan(&row.ID)
	if err != nil {
		return fmt.Errorf("insert identification module: %w", err)
	}
	return nil
}

func (u *pgUnitOfWork) InsertStatus(ctx context.Context, row *models.Status) error {
	err := u.tx.QueryRowContext(ctx, `
		INSERT INTO status_modules (
			trial_id, overall_status, status_verified_date, has_expanded_access,
			start_date, completion_date, first_submit_date, last_update_submit_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		row.TrialID, nullString(row.OverallStatus), nullTime(row.StatusVerifiedDate),
		row.HasExpandedAccess, nullTime(row.StartDate), nullTime(row.CompletionDate),
		nullTime(row.FirstSubmitDate), nullTime(row.LastUpdateSubmitDate),
	).Scan(&row.ID)
	if err != nil {
		return fmt.Errorf("insert status module: %w", err)
	}
	return nil
}

func (u *pgUnitOfWork) InsertDescription(ctx context.Context, row *models.Description) error {
	err := u.tx.QueryRowContext(ctx, `
		INSERT INTO description_modules (trial_id, brief_summary, detailed_description)
		VALUES ($1,$2,$3)
		RETURNING id`,
		row.TrialID, nullString(row.BriefSummary), nullString(row.DetailedDescription),
	).Scan(&row.ID)
	if err != nil {
		return fmt.Errorf("insert description module: %w", err)
	}
	return nil
}

func (u *pgUnitOfWork) InsertConditions(ctx context.Context, rows []models.Condition) error {
	for i := range rows {
		err := u.tx.QueryRowContext(ctx, `
			INSERT INTO conditions (trial_id, term, category, mesh_id)
			VALUES ($1,$2,$3,$4)
			RETURNING id`,
			rows[i].TrialID, rows[i].Term, nullString(rows[i].Category), nullString(rows[i].MeshID),
		).Scan(&rows[i].ID)
		if err != nil {
			return fmt.Errorf("insert condition: %w", err)
		}
	}
	return nil
}

func (u *pgUnitOfWork) InsertKeywords(ctx context.Context, rows []models.Keyword) error {
	for i := range rows {
		err := u.tx.QueryRowContext(ctx, `
			INSERT INTO keywords (trial_id, term, keyword_type)
			VALUES ($1,$2,$3)
			RETURNING id`,
			rows[i].TrialID, rows[i].Term, nullString(rows[i].Type),
		).Scan(&rows[i].ID)
		if err != nil {
			return fmt.Errorf("insert keyword: %w", err)
		}
	}
	return nil
}

func (u *pgUnitOfWork) InsertInterventions(ctx context.Context, rows []models.Intervention) error {
	for i := range rows {
		err := u.tx.QueryRowContext(ctx, `
			INSERT INTO interventions (trial_id, intervention_type, name, description, category)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id`,
			rows[i].TrialID, rows[i].Type, rows[i].Name,
			nullString(rows[i].Description), nullString(rows[i].Category),
		).Scan(&rows[i].ID)
		if err != nil {
			return fmt.Errorf("insert intervention: %w", err)
		}
	}
	return nil
}

func (u *pgUnitOfWork) InsertLocations(ctx context.Context, rows []models.Location) error {
	for i := range rows {
		err := u.tx.QueryRowContext(ctx, `
			INSERT INTO locations (
				trial_id, facility, status, city, state, country,
				latitude, longitude, is_primary_location
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING id`,
			rows[i].TrialID, nullString(rows[i].Facility), nullString(rows[i].Status),
			nullString(rows[i].City), nullString(rows[i].State), nullString(rows[i].Country),
			nullFloat(rows[i].Latitude), nullFloat(rows[i].Longitude), rows[i].IsPrimary,
		).Scan(&rows[i].ID)
		if err != nil {
			return fmt.Errorf("insert location: %w", err)
		}
	}
	return nil
}

func (u *pgUnitOfWork) InsertSponsors(ctx context.Context, rows []models.Sponsor) error {
	for i := range rows {
		err := u.tx.QueryRowContext(ctx, `
			INSERT INTO sponsors (trial_id, sponsor_role, name, sponsor_class)
			VALUES ($1,$2,$3,$4)
			RETURNING id`,
			rows[i].TrialID, rows[i].Role, rows[i].Name, nullString(rows[i].Class),
		).Scan(&rows[i].ID)
		if err != nil {
			return fmt.Errorf("insert sponsor: %w", err)
		}
	}
	return nil
}

func (u *pgUnitOfWork) InsertSearchDocument(ctx context.Context, row *models.SearchDocument) error {
	row.LastUpdated = time.Now().UTC()
	err := u.tx.QueryRowContext(ctx, `
		INSERT INTO search_documents (
			trial_id, title_vector, condition_vector, intervention_vector,
			location_vector, description_vector,
			all_conditions, all_interventions, all_keywords, all_locations,
			all_sponsors, all_descriptions,
			vector_version, completeness_score, term_count, last_updated
		) VALUES ($1,$2::tsvector,$3::tsvector,$4::tsvector,$5::tsvector,$6::tsvector,
			$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id`,
		row.TrialID,
		nullStringPtr(row.TitleTokens), nullStringPtr(row.ConditionTokens),
		nullStringPtr(row.InterventionTokens), nullStringPtr(row.LocationTokens),
		nullStringPtr(row.DescriptionTokens),
		nullString(row.AllConditions), nullString(row.AllInterventions),
		nullString(row.AllKeywords), nullString(row.AllLocations),
		nullString(row.AllSponsors), nullString(row.AllDescriptions),
		row.VectorVersion, row.CompletenessScore, row.TermCount, row.LastUpdated,
	).Scan(&row.ID)
	if err != nil {
		return fmt.Errorf("insert search document: %w", err)
	}
	return nil
}

// deleteChildren order respects referential dependencies: search document
// and child rows go before the trial row.
var childTables = []string{
	"search_documents",
	"sponsors",
	"locations",
	"interventions",
	"keywords",
	"conditions",
	"description_modules",
	"status_modules",
	"identification_modules",
}

func (u *pgUnitOfWork) DeleteChildren(ctx context.Context, trialID int64) error {
	for _, table := range childTables {
		if _, err := u.tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE trial_id = $1`, trialID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

func (u *pgUnitOfWork) DeleteTrial(ctx context.Context, nctID string) error {
	if _, err := u.tx.ExecContext(ctx, `DELETE FROM clinical_trials WHERE nct_id = $1`, nctID); err != nil {
		return fmt.Errorf("delete trial: %w", err)
	}
	return nil
}

// BuildSearchTokens delegates tokenization to the engine-side text search
// configuration so stored payloads match index expectations.
func (u *pgUnitOfWork) BuildSearchTokens(ctx context.Context, text string) (*string, error) {
	if text == "" {
		return nil, nil
	}
	var tokens string
	err := u.tx.QueryRowContext(ctx, `SELECT to_tsvector('english', $1)::text`, text).Scan(&tokens)
	if err != nil {
		return nil, fmt.Errorf("build search tokens: %w", err)
	}
	return &tokens, nil
}

func (u *pgUnitOfWork) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

func (u *pgUnitOfWork) Rollback() error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback unit of work: %w", err)
	}
	return nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullStringPtr(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func nullInt(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
