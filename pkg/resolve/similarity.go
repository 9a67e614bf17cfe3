package resolve

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Similarity returns the normalized Indel similarity of a and b in [0, 100],
// compared case-insensitively and rounded half to even:
//
//	round(100 * 2*LCS(a, b) / (len(a) + len(b)))
//
// Lengths are counted in runes. Two empty strings are identical (100).
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}

	lcs := edlib.LCS(a, b)
	return math.RoundToEven(100 * float64(2*lcs) / float64(total))
}

// sharedWords counts distinct lowercase whitespace-separated tokens present
// in both a and b.
func sharedWords(a, b string) int {
	left := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(a)) {
		left[w] = struct{}{}
	}

	seen := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(b)) {
		if _, ok := left[w]; !ok {
			continue
		}
		seen[w] = struct{}{}
	}
	return len(seen)
}

// containsAny reports whether any keyword is a case-insensitive substring of text.
func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
