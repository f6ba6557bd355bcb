package usecase

import "strings"

type companyMatchStrategy struct {
	name  string
	match func(candidate, meta string) bool
}

// Evaluated in order after both sides are lower-cased and trimmed.
// token_overlap accepts any shared word, so "tap academy" also matches
// "code academy". That over-match is kept as observed product behavior.
var companyMatchStrategies = []companyMatchStrategy{
	{name: "exact", match: func(c, m string) bool { return c == m }},
	{name: "containment", match: func(c, m string) bool {
		return strings.Contains(m, c) || strings.Contains(c, m)
	}},
	{name: "token_overlap", match: func(c, m string) bool {
		metaWords := make(map[string]struct{})
		for _, w := range strings.Fields(m) {
			metaWords[w] = struct{}{}
		}
		for _, w := range strings.Fields(c) {
			if _, ok := metaWords[w]; ok {
				return true
			}
		}
		return false
	}},
	{name: "word_substring", match: func(c, m string) bool {
		for _, w := range strings.Fields(c) {
			if strings.Contains(m, w) {
				return true
			}
		}
		return false
	}},
	{name: "whitespace_insensitive", match: func(c, m string) bool {
		return stripWhitespace(c) == stripWhitespace(m)
	}},
	{name: "upper_word_substring", match: func(c, m string) bool {
		upperMeta := strings.ToUpper(m)
		for _, w := range strings.Fields(c) {
			if strings.Contains(upperMeta, strings.ToUpper(w)) {
				return true
			}
		}
		return false
	}},
}

// MatchCompany reports whether a requested company name refers to the
// company tagged on a chunk. Chunks without a company never match.
func MatchCompany(candidate, metadataCompany string) bool {
	return CompanyMatchStrategy(candidate, metadataCompany) != ""
}

// CompanyMatchStrategy returns the name of the first strategy that matched,
// or "" when none did.
func CompanyMatchStrategy(candidate, metadataCompany string) string {
	meta := strings.ToLower(strings.TrimSpace(metadataCompany))
	cand := strings.ToLower(strings.TrimSpace(candidate))
	if meta == "" || cand == "" {
		return ""
	}
	for _, s := range companyMatchStrategies {
		if s.match(cand, meta) {
			return s.name
		}
	}
	return ""
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
