package search

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"
)

// minTokenLength filters out one-character query tokens, which match almost
// anything and only add noise.
const minTokenLength = 2

// minTokenSimilarity caps typo tolerance. An edit distance beyond roughly a
// third of the longer token is a different word, not a misspelling, and must
// not count as a match at all: with matched-fields-only averaging a single
// weak token hit would otherwise survive any reasonable threshold undiluted.
const minTokenSimilarity = 0.6

// FuzzyScorer ranks candidates by approximate string matching. Each query
// token is compared against every token of every configured field; token
// similarity is exact match, containment, or normalized Levenshtein distance.
// The per-field score is the mean best similarity across query tokens, and
// the candidate score is the weight-normalized average over the fields that
// matched at all. Averaging only over matched fields keeps a strong hit on
// one field (a title, say) from being diluted by a dozen unrelated fields.
type FuzzyScorer[T any] struct{}

func NewFuzzyScorer[T any]() *FuzzyScorer[T] {
	return &FuzzyScorer[T]{}
}

func (s *FuzzyScorer[T]) Rank(ctx context.Context, query string, items []T, fields []Field[T], threshold float64) ([]Scored[T], error) {
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}

	tokens := tokenize(query)
	if len(tokens) == 0 || len(items) == 0 {
		return []Scored[T]{}, nil
	}

	results := make([]Scored[T], 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var weightedSum, matchedWeight float64
		for _, f := range fields {
			fieldScore := scoreField(tokens, f.Value(item))
			if fieldScore <= 0 {
				continue
			}
			weightedSum += fieldScore * f.Weight
			matchedWeight += f.Weight
		}

		score := 0.0
		if matchedWeight > 0 {
			score = weightedSum / matchedWeight
		}
		if score >= threshold {
			results = append(results, Scored[T]{Item: item, Score: score})
		}
	}

	sortByScore(results)
	return results, nil
}

// scoreField measures how well the query tokens match one field value.
// An exact (case-insensitive) match of the whole field scores 1.0; otherwise
// each query token takes its best similarity against the field's tokens and
// the field score is the mean.
func scoreField(queryTokens []string, value string) float64 {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return 0
	}
	if normalized == strings.Join(queryTokens, " ") {
		return 1
	}

	fieldTokens := strings.Fields(normalized)
	if len(fieldTokens) == 0 {
		return 0
	}

	var total float64
	for _, qt := range queryTokens {
		best := 0.0
		for _, ft := range fieldTokens {
			if sim := tokenSimilarity(qt, ft); sim > best {
				best = sim
			}
			if best == 1 {
				break
			}
		}
		total += best
	}
	return total / float64(len(queryTokens))
}

// tokenSimilarity compares two lowercase tokens: 1.0 for equality, the length
// ratio when one contains the other, and normalized Levenshtein similarity
// (1 - distance/maxLen) otherwise. Levenshtein similarity below
// minTokenSimilarity is treated as no match.
func tokenSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		minLen := la
		if lb < minLen {
			minLen = lb
		}
		return float64(minLen) / float64(maxLen)
	}
	dist := levenshtein.ComputeDistance(a, b)
	sim := 1 - float64(dist)/float64(maxLen)
	if sim < minTokenSimilarity {
		return 0
	}
	return sim
}

func tokenize(query string) []string {
	raw := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if len([]rune(t)) >= minTokenLength {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
