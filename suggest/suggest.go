// Package suggest provides did-you-mean suggestions for node paths in
// diagnostics.
package suggest

import (
	"strings"

	"github.com/agext/levenshtein"
)

// Path suggests a node path that closely matches one of the candidates.
//
// Matching is case-insensitive and tolerates a number of edits that
// scales with the length of the wanted path. The heuristic may change;
// callers should only use the result in diagnostics.
//
// If no close match is found, an empty string is returned.
func Path(want string, candidates []string) string {
	w := strings.ToLower(want)

	// Maximum edits allowed between the paths.
	maxDist := len(w) / 4
	if maxDist == 0 {
		maxDist = 1
	}

	best := ""
	dist := maxDist + 1

	for _, cand := range candidates {
		c := strings.ToLower(cand)
		if w == c {
			// Only the casing differs.
			return cand
		}
		d := levenshtein.Distance(w, c, nil)
		if d < dist {
			best = cand
			dist = d
		}
	}

	return best
}
