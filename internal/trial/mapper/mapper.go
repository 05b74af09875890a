// Package mapper converts one validated study document into the full flat
// entity set: trial row, child collections, and search document. Mapping is
// a pure function of the document; store-assigned identifiers and search
// index payloads are filled in at persistence time.
package mapper

import (
	"strings"

	"trialsearch/internal/trial/document"
	"trialsearch/internal/trial/models"
)

// Map builds the aggregate for one validated document. Every optional
// block may be absent; absence produces zero child rows for that category
// and placeholder scalars on the trial row, never an error.
func Map(doc document.Document) *models.Aggregate {
	protocol := document.Get(doc, document.KeyProtocolSection, nil)
	hasResults := document.GetBool(doc, document.KeyHasResults, false)

	agg := &models.Aggregate{}
	agg.Locations = mapLocations(protocol)
	agg.Trial = mapTrial(protocol, hasResults, agg.Locations)
	agg.Identification = mapIdentification(protocol)
	agg.Status = mapStatus(protocol)
	agg.Description = mapDescription(protocol)
	agg.Conditions = mapConditions(protocol)
	agg.Keywords = mapKeywords(protocol)
	agg.Interventions = mapInterventions(protocol)
	agg.Sponsors = mapSponsors(protocol)
	agg.Search = buildSearchDocument(protocol, agg)
	return agg
}

func mapTrial(protocol any, hasResults bool, locations []models.Location) models.Trial {
	trial := models.Trial{
		NCTID:            document.GetString(protocol, "identificationModule.nctId", models.Unknown),
		BriefTitle:       document.GetString(protocol, "identificationModule.briefTitle", models.UnknownTitle),
		OfficialTitle:    document.GetString(protocol, "identificationModule.officialTitle", models.Unknown),
		OverallStatus:    models.CanonicalOverallStatus(document.GetEnum(protocol, "statusModule.overallStatus", "")),
		StudyType:        models.CanonicalStudyType(document.GetEnum(protocol, "designModule.studyType", "")),
		Phase:            models.Unknown,
		StartDate:        document.GetDate(protocol, "statusModule.startDateStruct.date"),
		CompletionDate:   document.GetDate(protocol, "statusModule.completionDateStruct.date"),
		EnrollmentCount:  document.GetInt(protocol, "designModule.enrollmentInfo.count"),
		LeadSponsorName:  document.GetString(protocol, "sponsorCollaboratorsModule.leadSponsor.name", models.Unknown),
		LeadSponsorClass: document.GetString(protocol, "sponsorCollaboratorsModule.leadSponsor.class", models.Unknown),
		HealthyVolunteers: document.GetBool(protocol, "eligibilityModule.healthyVolunteers", false),
		MinAgeYears:       document.AgeToYears(document.GetString(protocol, "eligibilityModule.minimumAge", "")),
		MaxAgeYears:       document.AgeToYears(document.GetString(protocol, "eligibilityModule.maximumAge", "")),
		HasResults:        hasResults,
	}

	if phase := document.ExtractPhase(document.Get(protocol, "designModule.designInfo", nil)); phase != "" {
		trial.Phase = phase
	}

	// First location in document order is authoritative for the
	// denormalized primary-location columns.
	if len(locations) > 0 {
		primary := locations[0]
		trial.PrimaryLocationCity = primary.City
		trial.PrimaryLocationState = primary.State
		trial.PrimaryLocationCountry = primary.Country
		trial.PrimaryLocationLat = primary.Latitude
		trial.PrimaryLocationLon = primary.Longitude
	}
	return trial
}

func mapIdentification(protocol any) *models.Identification {
	ident := document.Get(protocol, document.KeyIdentificationModule, nil)
	if ident == nil {
		return nil
	}
	return &models.Identification{
		NCTID:             document.GetString(ident, "nctId", ""),
		OrgStudyID:        document.GetString(ident, "orgStudyIdInfo.id", ""),
		OrganizationName:  document.GetString(ident, "organization.name", ""),
		OrganizationClass: document.GetString(ident, "organization.class", ""),
		BriefTitle:        document.GetString(ident, "briefTitle", ""),
		OfficialTitle:     document.GetString(ident, "officialTitle", ""),
		Acronym:           document.GetString(ident, "acronym", ""),
	}
}

func mapStatus(protocol any) *models.Status {
	status := document.Get(protocol, document.KeyStatusModule, nil)
	if status == nil {
		return nil
	}
	return &models.Status{
		OverallStatus:        models.CanonicalOverallStatus(document.GetEnum(status, "overallStatus", "")),
		StatusVerifiedDate:   document.GetDate(status, "statusVerifiedDate"),
		HasExpandedAccess:    document.GetBool(status, "hasExpandedAccess", false),
		StartDate:            document.GetDate(status, "startDateStruct.date"),
		CompletionDate:       document.GetDate(status, "completionDateStruct.date"),
		FirstSubmitDate:      document.GetDate(status, "studyFirstSubmitDate"),
		LastUpdateSubmitDate: document.GetDate(status, "lastUpdateSubmitDate"),
	}
}

func mapDescription(protocol any) *models.Description {
	desc := document.Get(protocol, document.KeyDescriptionModule, nil)
	if desc == nil {
		return nil
	}
	return &models.Description{
		BriefSummary:        document.GetString(desc, "briefSummary", ""),
		DetailedDescription: document.GetString(desc, "detailedDescription", ""),
	}
}

// mapConditions emits one row per non-empty condition term. Order and
// duplicates are preserved from the source list.
func mapConditions(protocol any) []models.Condition {
	var rows []models.Condition
	for _, entry := range document.GetList(protocol, "conditionsModule.conditions") {
		term, ok := entry.(string)
		if !ok || term == "" {
			continue
		}
		rows = append(rows, models.Condition{Term: term})
	}
	return rows
}

func mapKeywords(protocol any) []models.Keyword {
	var rows []models.Keyword
	for _, entry := range document.GetList(protocol, "conditionsModule.keywords") {
		term, ok := entry.(string)
		if !ok || term == "" {
			continue
		}
		rows = append(rows, models.Keyword{Term: term, Type: models.KeywordTypeSubmitted})
	}
	return rows
}

// mapInterventions keeps entries carrying both a type and a name; anything
// else is silently dropped.
func mapInterventions(protocol any) []models.Intervention {
	var rows []models.Intervention
	for _, entry := range document.GetList(protocol, "armsInterventionsModule.interventions") {
		kind := document.GetString(entry, "type", "")
		name := document.GetString(entry, "name", "")
		if kind == "" || name == "" {
			continue
		}
		rows = append(rows, models.Intervention{
			Type:        kind,
			Name:        name,
			Description: document.GetString(entry, "description", ""),
		})
	}
	return rows
}

func mapLocations(protocol any) []models.Location {
	var rows []models.Location
	for _, entry := range document.GetList(protocol, "contactsLocationsModule.locations") {
		if entry == nil {
			continue
		}
		rows = append(rows, models.Location{
			Facility:  document.GetString(entry, "facility", ""),
			Status:    document.GetString(entry, "status", ""),
			City:      document.GetString(entry, "city", ""),
			State:     document.GetString(entry, "state", ""),
			Country:   document.GetString(entry, "country", ""),
			Latitude:  document.GetFloat(entry, "geoPoint.lat"),
			Longitude: document.GetFloat(entry, "geoPoint.lon"),
			IsPrimary: len(rows) == 0,
		})
	}
	return rows
}

// mapSponsors emits the lead sponsor row only. Collaborator sponsors are a
// known gap in this loader, carried over from the established schema.
func mapSponsors(protocol any) []models.Sponsor {
	name := document.GetString(protocol, "sponsorCollaboratorsModule.leadSponsor.name", "")
	if name == "" {
		return nil
	}
	return []models.Sponsor{{
		Role:  models.SponsorRoleLead,
		Name:  name,
		Class: document.GetString(protocol, "sponsorCollaboratorsModule.leadSponsor.class", ""),
	}}
}

// searchVectorVersion tags search documents so a future tokenizer change
// can rebuild selectively.
const searchVectorVersion = 1

// searchCompletenessScore is fixed rather than computed; the established
// convention stores 0.80 for every document and downstream ranking expects
// it.
const searchCompletenessScore = 0.8

func buildSearchDocument(protocol any, agg *models.Aggregate) models.SearchDocument {
	titleText := joinNonEmpty(" ",
		document.GetString(protocol, "identificationModule.briefTitle", ""),
		document.GetString(protocol, "identificationModule.officialTitle", ""),
	)
	descriptionText := joinNonEmpty(" ",
		document.GetString(protocol, "descriptionModule.briefSummary", ""),
		document.GetString(protocol, "descriptionModule.detailedDescription", ""),
	)

	conditions := make([]string, 0, len(agg.Conditions))
	for _, c := range agg.Conditions {
		conditions = append(conditions, c.Term)
	}
	interventions := make([]string, 0, len(agg.Interventions))
	for _, i := range agg.Interventions {
		interventions = append(interventions, i.Name)
	}
	var cities []string
	for _, l := range agg.Locations {
		if l.City != "" {
			cities = append(cities, l.City)
		}
	}
	keywords := make([]string, 0, len(agg.Keywords))
	for _, k := range agg.Keywords {
		keywords = append(keywords, k.Term)
	}

	sd := models.SearchDocument{
		TitleText:        titleText,
		DescriptionText:  descriptionText,
		AllConditions:    strings.Join(conditions, ", "),
		AllInterventions: strings.Join(interventions, ", "),
		AllKeywords:      strings.Join(keywords, ", "),
		AllLocations:     strings.Join(cities, ", "),
		AllSponsors:      document.GetString(protocol, "sponsorCollaboratorsModule.leadSponsor.name", ""),
		AllDescriptions:  descriptionText,

		VectorVersion:     searchVectorVersion,
		CompletenessScore: searchCompletenessScore,
	}

	// term_count spans the five text groups; titles are excluded by the
	// established convention.
	for _, group := range []string{sd.AllConditions, sd.AllInterventions, sd.AllLocations, sd.AllSponsors, sd.AllDescriptions} {
		if group != "" {
			sd.TermCount++
		}
	}
	return sd
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(strings.Join(kept, sep))
}
