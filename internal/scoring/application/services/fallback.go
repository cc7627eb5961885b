package services

import (
	"fmt"
	"math"
	"strings"
)

const (
	minKeywordLen    = 4
	maxKeywordTokens = 40
)

// stopWords are common terms that carry no matching signal even when a job
// post repeats them.
var stopWords = map[string]struct{}{
	"with": {}, "that": {}, "this": {}, "from": {}, "your": {}, "will": {},
	"have": {}, "able": {}, "must": {}, "should": {}, "would": {}, "their": {},
	"about": {}, "them": {}, "they": {}, "when": {}, "where": {}, "which": {},
	"years": {}, "year": {}, "role": {}, "work": {}, "working": {}, "strong": {},
	"experience": {}, "requirements": {}, "required": {}, "preferred": {},
	"candidate": {}, "candidates": {}, "skills": {}, "description": {},
	"target": {}, "other": {}, "into": {}, "more": {}, "such": {}, "using": {},
}

// keywordWeight is one job-text token with its repetition weight. Keyword
// importance is proportional to how often the job text repeats it.
type keywordWeight struct {
	token  string
	weight int
}

// fallbackOutcome is the deterministic keyword-overlap scoring result used
// when the model call fails or returns nothing parseable.
type fallbackOutcome struct {
	score    float64
	reason   string
	keywords []string
}

// fallbackScore computes a keyword-overlap score. Tokens shorter than
// minKeywordLen and stop-words are dropped; `+` and `#` survive tokenization
// so terms like "c++" and "c#" stay intact. The score is the weighted share
// of matched tokens, rounded to one decimal; a job text with no usable
// tokens scores 0.
func fallbackScore(jobText, candidateText string) fallbackOutcome {
	weights := jobKeywords(jobText)
	if len(weights) == 0 {
		return fallbackOutcome{
			score:  0,
			reason: "Fallback scoring used because the AI response was unavailable. No scoreable key terms were found in the job context.",
		}
	}

	counts := tokenCounts(candidateText)

	totalWeight := 0
	matchedWeight := 0
	matched := make([]string, 0, len(weights))
	for _, kw := range weights {
		totalWeight += kw.weight
		if counts[kw.token] > 0 {
			matchedWeight += kw.weight
			matched = append(matched, kw.token)
		}
	}

	score := float64(matchedWeight) / float64(totalWeight) * 100
	score = math.Round(score*10) / 10

	return fallbackOutcome{
		score: score,
		reason: fmt.Sprintf(
			"Fallback scoring used because the AI response was unavailable or unparseable. Matched %d of %d key terms.",
			len(matched), len(weights)),
		keywords: matched,
	}
}

// jobKeywords extracts weighted keywords from the job text, preserving
// first-seen order and capping the set size.
func jobKeywords(jobText string) []keywordWeight {
	counts := make(map[string]int)
	order := make([]string, 0, maxKeywordTokens)

	for _, token := range tokenize(jobText) {
		if counts[token] == 0 {
			if len(order) >= maxKeywordTokens {
				continue
			}
			order = append(order, token)
		}
		counts[token]++
	}

	weights := make([]keywordWeight, 0, len(order))
	for _, token := range order {
		weights = append(weights, keywordWeight{token: token, weight: counts[token]})
	}
	return weights
}

// tokenCounts returns per-token occurrence counts for the candidate text.
func tokenCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, token := range tokenize(text) {
		counts[token]++
	}
	return counts
}

// tokenize lower-cases and splits on non-alphanumeric boundaries, keeping
// `+` and `#`, and drops short tokens and stop-words.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '#':
			return false
		default:
			return true
		}
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minKeywordLen {
			continue
		}
		if _, skip := stopWords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
