package grading

import "strings"

// textMatches compares a submitted answer to the canonical one after
// trimming surrounding whitespace, ignoring case. No fuzzy matching.
func textMatches(submitted, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(canonical))
}
