package domain

import (
	"regexp"
	"strings"
)

var (
	legalSuffixPattern = regexp.MustCompile(`\b(pvt|private|ltd|limited|inc|llc|co|corp|solutions|technologies)\b\.?`)
	nonAlnumPattern    = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify normalizes a company name into the key used by the structured
// store: lower-cased, legal-entity suffixes removed, punctuation collapsed.
// Retrieval never uses it for matching.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = legalSuffixPattern.ReplaceAllString(s, " ")
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
