package search

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Embedder produces a vector representation of a text fragment.
// platform/ai/embeddings.Client satisfies this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingScorer ranks candidates by semantic similarity. The query is split
// into terms, each term and each non-empty field value is embedded, and the
// candidate score is the field-weighted average cosine similarity across all
// (term, field) pairs. Field texts are embedded at most once per Rank call.
//
// Unlike the fuzzy scorer, a failing model call aborts the whole ranking:
// partial scores would silently reorder results.
type EmbeddingScorer[T any] struct {
	embedder Embedder
}

func NewEmbeddingScorer[T any](embedder Embedder) *EmbeddingScorer[T] {
	return &EmbeddingScorer[T]{embedder: embedder}
}

func (s *EmbeddingScorer[T]) Rank(ctx context.Context, query string, items []T, fields []Field[T], threshold float64) ([]Scored[T], error) {
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(terms) == 0 || len(items) == 0 {
		return []Scored[T]{}, nil
	}

	termVectors := make([][]float32, len(terms))
	for i, term := range terms {
		vec, err := s.embedder.Embed(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("embed query term %q: %w", term, err)
		}
		termVectors[i] = vec
	}

	var totalWeight float64
	for _, f := range fields {
		totalWeight += f.Weight
	}

	fieldVectors := make(map[string][]float32)
	results := make([]Scored[T], 0, len(items))
	for _, item := range items {
		var weightedSum float64
		for _, f := range fields {
			text := strings.TrimSpace(f.Value(item))
			if text == "" {
				continue
			}
			vec, ok := fieldVectors[text]
			if !ok {
				var err error
				vec, err = s.embedder.Embed(ctx, text)
				if err != nil {
					return nil, fmt.Errorf("embed field %s: %w", f.Name, err)
				}
				fieldVectors[text] = vec
			}

			var fieldSum float64
			for _, tv := range termVectors {
				fieldSum += cosineSimilarity(tv, vec)
			}
			weightedSum += (fieldSum / float64(len(termVectors))) * f.Weight
		}

		score := 0.0
		if totalWeight > 0 {
			score = weightedSum / totalWeight
		}
		if score < 0 {
			score = 0
		}
		if score >= threshold {
			results = append(results, Scored[T]{Item: item, Score: score})
		}
	}

	sortByScore(results)
	return results, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors, or 0
// when either has zero magnitude or the dimensions disagree.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
