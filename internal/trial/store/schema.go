package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently at startup. Child tables cascade on trial
// deletion; search_documents carries the prebuilt tsvector payloads plus
// denormalized text for convenience queries.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS clinical_trials (
		id BIGSERIAL PRIMARY KEY,
		nct_id VARCHAR(20) UNIQUE NOT NULL,
		brief_title TEXT,
		official_title TEXT,
		overall_status VARCHAR(50),
		study_type VARCHAR(50),
		phase VARCHAR(100),
		start_date DATE,
		completion_date DATE,
		enrollment_count BIGINT,
		lead_sponsor_name VARCHAR(500),
		lead_sponsor_class VARCHAR(50),
		healthy_volunteers BOOLEAN,
		min_age_years BIGINT,
		max_age_years BIGINT,
		primary_location_city VARCHAR(100),
		primary_location_state VARCHAR(100),
		primary_location_country VARCHAR(100),
		primary_location_lat DOUBLE PRECISION,
		primary_location_lon DOUBLE PRECISION,
		has_results BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS identification_modules (
		id BIGSERIAL PRIMARY KEY,
		trial_id BIGINT NOT NULL REFERENCES clinical_trials(id) ON DELETE CASCADE,
		nct_id VARCHAR(20),
		org_study_id VARCHAR(255),
		organization_name VARCHAR(500),
		organization_class VARCHAR(50),
		brief_title TEXT,
		official_title TEXT,
		acronym VARCHAR(100)
	)`,
	`CREATE TABLE IF NOT EXISTS status_modules (
		id BIGSERIAL PRIMARY KEY,
		trial_id BIGINT NOT NULL REFERENCES clinical_trials(id) ON DELETE CASCADE,
		overall_status VARCHAR(50),
		status_verified_date DATE,
		has_expanded_access BOOLEAN,
		start_date DATE,
		completion_date DATE,
		first_submit_date DATE,
		last_update_submit_date DATE
	)`,
	`CREATE TABLE IF NOT EXISTS description_modules (
		id BIGSERIAL PRIMARY KEY,
		trial_id BIGINT NOT NULL REFERENCES clinical_trials(id) ON DELETE CASCADE,
		brief_summary TEXT,
		detailed_description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS conditions (
		id BIGSERIAL PRIMARY KEY,
		trial_id BIGINT NOT NULL REFERENCES clinical_trials(id) ON DELETE CASCADE,
		term VARCHAR(255),
		category VARCHAR(100),
		mesh_id VARCHAR(20)
	)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		id BIGSERIAL PRIMARY KEY,
		trial_id BIGINT NOT NULL REFERENCES clinical_trials(id) ON DELETE CASCADE,
		term VARCHAR(255),
		keyword_type VARCHAR(50)
	)`,
	`CREATE TABLE IF NOT EXISTS interventions (
		id BIGSERIAL PRIMARY KEY,
		trial_id BIGINT NOT NULL REFERENCES clinical_trials(id) ON DELETE CASCADE,
		intervention_type VARCHAR(50),
		name VARCHAR(500),
		description TEXT,
		category VARCHAR(100)
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		id BIGSERIAL PRIMARY KEY,
		trial_id BIGINT NOT NULL REFERENCES clinical_trials(id) ON DELETE CASCADE,
		facility VARCHAR(500),
		status VARCHAR(50),
		city VARCHAR(100),
		state VARCHAR(100),
		country VARCHAR(100),
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		is_primary_location BOOLEAN DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS sponsors (
		id BIGSERIAL PRIMARY KEY,
		trial_id BIGINT NOT NULL REFERENCES clinical_trials(id) ON DELETE CASCADE,
		sponsor_role VARCHAR(20),
		name VARCHAR(500),
		sponsor_class VARCHAR(50)
	)`,
	`CREATE TABLE IF NOT EXISTS search_documents (
		id BIGSERIAL PRIMARY KEY,
		trial_id BIGINT UNIQUE NOT NULL REFERENCES clinical_trials(id) ON DELETE CASCADE,
		title_vector TSVECTOR,
		condition_vector TSVECTOR,
		intervention_vector TSVECTOR,
		location_vector TSVECTOR,
		description_vector TSVECTOR,
		all_conditions TEXT,
		all_interventions TEXT,
		all_keywords TEXT,
		all_locations TEXT,
		all_sponsors TEXT,
		all_descriptions TEXT,
		vector_version INTEGER DEFAULT 1,
		completeness_score NUMERIC(3,2),
		term_count INTEGER,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conditions_trial ON conditions(trial_id)`,
	`CREATE INDEX IF NOT EXISTS idx_interventions_trial ON interventions(trial_id)`,
	`CREATE INDEX IF NOT EXISTS idx_locations_trial ON locations(trial_id)`,
	`CREATE INDEX IF NOT EXISTS idx_search_title ON search_documents USING GIN(title_vector)`,
	`CREATE INDEX IF NOT EXISTS idx_search_condition ON search_documents USING GIN(condition_vector)`,
	`CREATE INDEX IF NOT EXISTS idx_search_description ON search_documents USING GIN(description_vector)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
