package document

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layouts observed in the registry feed. Full dates dominate; partial
// dates ("2024-01", "2024") appear on older records.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
	"January 2, 2006",
	"January 2006",
}

// ParseDate parses a registry date string, returning nil when no known
// layout matches.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

var firstInt = regexp.MustCompile(`\d+`)

// AgeToYears converts a free-text age such as "18 Years", "6 Months", or
// "N/A" into whole years. The first integer token wins; month values are
// integer-divided by 12 with a floor of one year; text without an integer
// token resolves to nil. The conversion is deliberately lossy for
// sub-year ages and must stay that way: downstream consumers depend on
// the existing convention.
func AgeToYears(raw string) *int64 {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil
	}
	token := firstInt.FindString(raw)
	if token == "" {
		return nil
	}
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return nil
	}
	if strings.Contains(raw, "month") {
		years := n / 12
		if years < 1 {
			years = 1
		}
		return &years
	}
	return &n
}

// ExtractPhase joins the phase tags of a design-info structure with ", ".
// An absent structure or empty tag list yields the empty string.
func ExtractPhase(designInfo any) string {
	tags := GetList(designInfo, "phases")
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if s, ok := tag.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
