package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/unicode/norm"
)

var collapseRegex = regexp.MustCompile(`[ \t]+`)

const edgeCutset = " \t\r\n-•*·:;"

// Clean canonicalizes scraped text: NFKC normalization, inner
// whitespace collapsed to single spaces, decorative punctuation
// trimmed from both ends. Empty input stays empty. Idempotent.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = collapseRegex.ReplaceAllString(s, " ")
	return strings.Trim(s, edgeCutset)
}

// CleanMultiline applies Clean per line and drops lines that end up
// empty, preserving the remaining line structure.
func CleanMultiline(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned := Clean(line)
		if cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return strings.Join(out, "\n")
}

var tokenSplit = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// MatchesAny reports whether s contains any of the keywords, either as
// a direct substring or as a token within fuzz Jaro-Winkler similarity
// of a keyword. The fuzzy pass absorbs accent and typo variants
// (guia vs guía) that exact matching misses.
func MatchesAny(s string, keywords []string, fuzz float64) bool {
	folded := strings.ToLower(Clean(s))
	if folded == "" {
		return false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(folded, strings.ToLower(kw)) {
			return true
		}
	}
	if fuzz <= 0 || fuzz > 1 {
		return false
	}
	for _, token := range tokenSplit.Split(folded, -1) {
		if token == "" {
			continue
		}
		for _, kw := range keywords {
			if matchr.JaroWinkler(token, strings.ToLower(kw), false) >= fuzz {
				return true
			}
		}
	}
	return false
}
