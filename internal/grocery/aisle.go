package grocery

import (
	"regexp"
	"slices"
	"strings"
)

// OtherAisle labels ingredients without an aisle.
const OtherAisle = "Other"

// numericAisle matches store codes like "A1" or "b12".
var numericAisle = regexp.MustCompile(`(?i)^[a-z][0-9]+$`)

// AisleLabel returns the display label for a stored aisle value.
func AisleLabel(aisle string) string {
	if strings.TrimSpace(aisle) == "" {
		return OtherAisle
	}
	return aisle
}

// IsNumericAisle reports whether label is a letter followed by digits.
func IsNumericAisle(label string) bool {
	return numericAisle.MatchString(label)
}

// CompareAisles orders coded aisles before named ones, alphabetically
// within each tier.
func CompareAisles(a, b string) int {
	an, bn := IsNumericAisle(a), IsNumericAisle(b)
	if an != bn {
		if an {
			return -1
		}
		return 1
	}
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortAisles sorts labels in place into display order.
func SortAisles(labels []string) {
	slices.SortStableFunc(labels, CompareAisles)
}
