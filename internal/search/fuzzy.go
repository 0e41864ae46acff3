package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const fuzzyEarlyExit = 0.92

// tokens splits text into lowercase alphanumeric runs longer than two
// runes. Short runs carry too little signal for edit-distance matching.
func tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, field := range fields {
		if utf8.RuneCountInString(field) > 2 {
			out = append(out, field)
		}
	}
	return out
}

// fuzzyScore averages, over the query tokens, the best normalized
// similarity (1 - distance/maxLen) against the document tokens. The
// inner scan stops early once a near-exact match is found.
func fuzzyScore(queryTokens, docTokens []string) float64 {
	if len(queryTokens) == 0 || len(docTokens) == 0 {
		return 0
	}
	var total float64
	for _, qt := range queryTokens {
		best := 0.0
		for _, dt := range docTokens {
			score := tokenSimilarity(qt, dt)
			if score > best {
				best = score
			}
			if best > fuzzyEarlyExit {
				break
			}
		}
		total += best
	}
	return total / float64(len(queryTokens))
}

func tokenSimilarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(max)
}
