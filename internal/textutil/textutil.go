// Package textutil provides the text processing helpers the analysis stages
// use for local document heuristics: tokenization, keyword scanning, prompt
// truncation, and display labels.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

var titleCaser = cases.Title(language.English)

// Tokenize splits text into lowercase tokens, filtering short tokens.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if len(token) < 3 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// KeywordHits counts how many of the supplied keywords appear in the text at
// least once. Matching is token-based, so "debts" does not match "debt".
func KeywordHits(text string, keywords []string) map[string]int {
	if strings.TrimSpace(text) == "" || len(keywords) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			wanted[kw] = struct{}{}
		}
	}
	hits := make(map[string]int)
	for _, token := range Tokenize(text) {
		if _, ok := wanted[token]; ok {
			hits[token]++
		}
	}
	if len(hits) == 0 {
		return nil
	}
	return hits
}

// Truncate bounds text to at most limit runes, appending an ellipsis marker
// when content was dropped.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + " […truncated]"
}

// Label converts a machine identifier such as "risk_assessment" into a
// human-friendly display label.
func Label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

// CollapseWhitespace squeezes runs of whitespace into single spaces and trims
// the result, normalizing extracted document text before prompt assembly.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
