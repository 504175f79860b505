// Package search implements fuzzy multi-term matching over post content.
package search

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/ibeckermayer/stash4me/internal/types"
)

// DefaultThreshold is the default fuzzy threshold (edit-distance proxy).
// 0 disables fuzzy matching entirely.
const DefaultThreshold = 2

// minFuzzyLen excludes short query words from fuzzy matching; edit-distance
// similarity on 1-3 character words produces too many false positives.
const minFuzzyLen = 4

// Matches reports whether text matches the given query terms.
//
// Text and queries are lowercased and tokenized on whitespace. Each query
// term matches if it equals any token exactly, or, when fuzzyThreshold > 0
// and the term is at least 4 characters, if some token's similarity ratio is
// >= 100 - fuzzyThreshold*10. With matchAll, every term must match (AND);
// otherwise any single term suffices (OR). An empty query list matches
// everything.
//
// Pure function: safe for concurrent use.
func Matches(text string, queries []string, matchAll bool, fuzzyThreshold int) bool {
	if len(queries) == 0 {
		return true
	}

	tokens := strings.Fields(strings.ToLower(text))

	for _, q := range queries {
		found := wordMatch(strings.ToLower(q), tokens, fuzzyThreshold)
		if matchAll && !found {
			return false
		}
		if !matchAll && found {
			return true
		}
	}

	return matchAll
}

// wordMatch reports whether word matches any of the tokens, exactly or with
// fuzzy tolerance.
func wordMatch(word string, tokens []string, threshold int) bool {
	fuzzy := threshold > 0 && len(word) >= minFuzzyLen
	minRatio := float64(100-threshold*10) / 100

	for _, tok := range tokens {
		if word == tok {
			return true
		}
		if fuzzy && levenshtein.Similarity(word, tok, levenshtein.NewParams()) >= minRatio {
			return true
		}
	}
	return false
}

// Filter returns the posts whose content matches the queries, preserving
// input order. A limit of 0 means no cap.
func Filter(posts []types.SavedPost, queries []string, matchAll bool, fuzzyThreshold, limit int) []types.SavedPost {
	results := make([]types.SavedPost, 0)
	for _, p := range posts {
		if !Matches(p.Content, queries, matchAll, fuzzyThreshold) {
			continue
		}
		results = append(results, p)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}
