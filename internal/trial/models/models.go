// Package models defines the flat entity set produced by mapping one
// clinical-trial study document: the trial row, its child collections, and
// the search document. Store-assigned IDs stay zero until persistence.
package models

import "time"

// Unknown is the placeholder for string fields that could not be resolved
// from the source document.
const Unknown = "UNKNOWN"

// UnknownTitle is the placeholder brief title for trials whose
// identification block carries no title.
const UnknownTitle = "Unknown Trial"

// Trial is the root entity, keyed externally by NCTID (registry accession
// number). Exactly one row per NCTID exists in the store.
type Trial struct {
	ID         int64
	NCTID      string
	BriefTitle string

	OfficialTitle   string
	OverallStatus   string
	StudyType       string
	Phase           string
	StartDate       *time.Time
	CompletionDate  *time.Time
	EnrollmentCount *int64

	LeadSponsorName  string
	LeadSponsorClass string

	HealthyVolunteers bool
	MinAgeYears       *int64
	MaxAgeYears       *int64

	// Denormalized primary location, mirrored from the Locations row with
	// IsPrimary set.
	PrimaryLocationCity    string
	PrimaryLocationState   string
	PrimaryLocationCountry string
	PrimaryLocationLat     *float64
	PrimaryLocationLon     *float64

	HasResults bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Identification keeps the denormalized identity fields of the source
// identification block for audit.
type Identification struct {
	ID               int64
	TrialID          int64
	NCTID            string
	OrgStudyID       string
	OrganizationName string
	OrganizationClass string
	BriefTitle       string
	OfficialTitle    string
	Acronym          string
}

// Status carries the lifecycle dates of the source status block.
type Status struct {
	ID                   int64
	TrialID              int64
	OverallStatus        string
	StatusVerifiedDate   *time.Time
	HasExpandedAccess    bool
	StartDate            *time.Time
	CompletionDate       *time.Time
	FirstSubmitDate      *time.Time
	LastUpdateSubmitDate *time.Time
}

// Description holds the free-text summary and detail of a trial.
type Description struct {
	ID                  int64
	TrialID             int64
	BriefSummary        string
	DetailedDescription string
}

// Condition is one condition term; order and duplicates preserved from the
// source document.
type Condition struct {
	ID       int64
	TrialID  int64
	Term     string
	Category string
	MeshID   string
}

// Keyword is one typed keyword term.
type Keyword struct {
	ID      int64
	TrialID int64
	Term    string
	Type    string
}

// KeywordTypeSubmitted marks keywords taken from the document's submitted
// keyword list, the only source this loader consumes.
const KeywordTypeSubmitted = "submitted"

// Intervention is one named intervention. Rows exist only for source
// entries carrying both a type and a name.
type Intervention struct {
	ID          int64
	TrialID     int64
	Type        string
	Name        string
	Description string
	Category    string
}

// Location is one study site. Exactly one row per trial, if any exist, has
// IsPrimary set; it is the first site in document order.
type Location struct {
	ID        int64
	TrialID   int64
	Facility  string
	Status    string
	City      string
	State     string
	Country   string
	Latitude  *float64
	Longitude *float64
	IsPrimary bool
}

// Sponsor is one sponsor role for a trial. This loader emits the lead
// sponsor only; collaborator rows are a known gap.
type Sponsor struct {
	ID      int64
	TrialID int64
	Role    string
	Name    string
	Class   string
}

// SponsorRoleLead is the role recorded for the lead sponsor row.
const SponsorRoleLead = "lead_sponsor"

// SearchDocument holds the pre-assembled full-text fields for one trial.
// It exists iff its trial exists and is regenerated wholesale on every
// load or reload.
type SearchDocument struct {
	ID      int64
	TrialID int64

	// Opaque index payloads built by the store's search-token primitive.
	// Nil when the corresponding text group is empty.
	TitleTokens        *string
	ConditionTokens    *string
	InterventionTokens *string
	LocationTokens     *string
	DescriptionTokens  *string

	// Denormalized source text, kept for convenience queries. Empty string
	// means the group was absent.
	AllConditions    string
	AllInterventions string
	AllKeywords      string
	AllLocations     string
	AllSponsors      string
	AllDescriptions  string

	TitleText       string
	DescriptionText string

	VectorVersion     int
	CompletenessScore float64
	TermCount         int
	LastUpdated       time.Time
}

// Aggregate is the full in-memory entity set mapped from one document.
// It is persisted atomically inside one unit of work.
type Aggregate struct {
	Trial          Trial
	Identification *Identification
	Status         *Status
	Description    *Description
	Conditions     []Condition
	Keywords       []Keyword
	Interventions  []Intervention
	Locations      []Location
	Sponsors       []Sponsor
	Search         SearchDocument
}
