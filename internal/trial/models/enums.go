package models

// Canonical tag sets for the two enumerations the registry publishes.
// Documents sometimes carry these as plain strings and sometimes as tagged
// wrappers; the mapper resolves either shape to a string and canonicalizes
// it here. Unrecognized tags degrade to Unknown rather than failing the
// record.

var overallStatuses = map[string]struct{}{
	"ACTIVE_NOT_RECRUITING":     {},
	"COMPLETED":                 {},
	"ENROLLING_BY_INVITATION":   {},
	"NOT_YET_RECRUITING":        {},
	"RECRUITING":                {},
	"SUSPENDED":                 {},
	"TERMINATED":                {},
	"WITHDRAWN":                 {},
	"AVAILABLE":                 {},
	"NO_LONGER_AVAILABLE":       {},
	"TEMPORARILY_NOT_AVAILABLE": {},
	"APPROVED_FOR_MARKETING":    {},
	"WITHHELD":                  {},
}

var studyTypes = map[string]struct{}{
	"INTERVENTIONAL":  {},
	"OBSERVATIONAL":   {},
	"EXPANDED_ACCESS": {},
}

// CanonicalOverallStatus maps a raw status tag to its canonical form,
// returning Unknown for empty or unrecognized input.
func CanonicalOverallStatus(raw string) string {
	if _, ok := overallStatuses[raw]; ok {
		return raw
	}
	return Unknown
}

// CanonicalStudyType maps a raw study-type tag to its canonical form,
// returning Unknown for empty or unrecognized input.
func CanonicalStudyType(raw string) string {
	if _, ok := studyTypes[raw]; ok {
		return raw
	}
	return Unknown
}
