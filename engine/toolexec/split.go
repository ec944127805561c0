package toolexec

import (
	"regexp"
	"strings"
)

// subQuerySep splits a multi-item request ("panadol and vitamin c, zinc")
// into independent sub-queries.
// Word separators need surrounding whitespace; \b is ASCII-only in Go's
// regexp and would never fire around the Arabic conjunction.
var subQuerySep = regexp.MustCompile(`(?i)(?:\s*[,/&+]\s*|\s+(?:and|with|plus|et|avec|و)\s+)`)

// SplitSubQueries breaks a search query into independent sub-queries on the
// common list separators, dropping empties.
func SplitSubQueries(query string) []string {
	parts := subQuerySep.Split(strings.TrimSpace(query), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
