// Package document implements nested-path resolution, value coercion, and
// structural validation over raw study documents as decoded from the
// registry feed. Absence of a branch is a normal condition everywhere in
// this package: lookups are total and degrade to caller-supplied defaults,
// they never panic and never return errors.
package document

import (
	"strings"
	"time"
)

// Document is one study record in nested key-value form, exactly as
// decoded from the registry JSON feed.
type Document map[string]any

// Top-level and module keys of the registry feed consumed by the mapper.
// Unknown extra blocks are ignored.
const (
	KeyProtocolSection = "protocolSection"
	KeyHasResults      = "hasResults"

	KeyIdentificationModule       = "identificationModule"
	KeyStatusModule               = "statusModule"
	KeyDesignModule               = "designModule"
	KeyDescriptionModule          = "descriptionModule"
	KeyEligibilityModule          = "eligibilityModule"
	KeyConditionsModule           = "conditionsModule"
	KeyArmsInterventionsModule    = "armsInterventionsModule"
	KeyContactsLocationsModule    = "contactsLocationsModule"
	KeySponsorCollaboratorsModule = "sponsorCollaboratorsModule"
)

// Get resolves a dotted path of keys against nested mappings, returning
// def if any segment is absent, nil, or not a mapping. Single-segment
// paths index the root directly.
func Get(root any, path string, def any) any {
	current := root
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			if d, isDoc := current.(Document); isDoc {
				m = map[string]any(d)
			} else {
				return def
			}
		}
		current = m[key]
		if current == nil {
			return def
		}
	}
	return current
}

// GetString resolves a path to its string value, returning def when the
// path is absent or the value is not a string.
func GetString(root any, path, def string) string {
	if s, ok := Get(root, path, nil).(string); ok && s != "" {
		return s
	}
	return def
}

// GetBool resolves a path to its boolean value, returning def when the
// path is absent or the value is not a boolean.
func GetBool(root any, path string, def bool) bool {
	if b, ok := Get(root, path, nil).(bool); ok {
		return b
	}
	return def
}

// GetInt resolves a path to a whole number. JSON decoding yields float64
// for all numbers; other shapes resolve to nil.
func GetInt(root any, path string) *int64 {
	switch v := Get(root, path, nil).(type) {
	case float64:
		n := int64(v)
		return &n
	case int64:
		return &v
	case int:
		n := int64(v)
		return &n
	}
	return nil
}

// GetFloat resolves a path to a floating-point number, nil when absent or
// the wrong shape.
func GetFloat(root any, path string) *float64 {
	switch v := Get(root, path, nil).(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

// GetList resolves a path to a JSON array, nil when absent or the wrong
// shape.
func GetList(root any, path string) []any {
	if l, ok := Get(root, path, nil).([]any); ok {
		return l
	}
	return nil
}

// GetEnum resolves an enumeration-like value to its plain string
// representation, unwrapping a tagged {"value": ...} wrapper when the feed
// carries one. Absent or unusable values resolve to def.
func GetEnum(root any, path, def string) string {
	switch v := Get(root, path, nil).(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		if s, ok := v["value"].(string); ok && s != "" {
			return s
		}
	}
	return def
}

// GetDate resolves a path to a string and parses it as a calendar date.
// Parse failures degrade to nil; they never propagate out of this layer.
func GetDate(root any, path string) *time.Time {
	raw := GetString(root, path, "")
	if raw == "" {
		return nil
	}
	return ParseDate(raw)
}
