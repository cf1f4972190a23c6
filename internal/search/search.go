// Package search scores collections of records against free-text queries.
// Two interchangeable strategies implement the same contract: a fuzzy string
// matcher and an embedding-based semantic matcher. Callers pick one at
// composition time; consumers only see the Scorer interface.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// DefaultThreshold is the minimum score a candidate needs to survive ranking
// when the caller has no opinion.
const DefaultThreshold = 0.5

// ErrInvalidFieldWeight is returned when a field configuration carries a
// non-positive weight.
var ErrInvalidFieldWeight = errors.New("search: field weight must be positive")

// Field describes one searchable attribute of a record: a name for
// diagnostics, an extraction function, and a positive weight expressing
// relative importance.
type Field[T any] struct {
	Name   string
	Weight float64
	Value  func(T) string
}

// ValidateFields rejects misconfigured field sets up front. Scoring behavior
// with a non-positive weight is undefined, so it is refused here rather than
// silently producing garbage rankings.
func ValidateFields[T any](fields []Field[T]) error {
	for _, f := range fields {
		if f.Weight <= 0 {
			return fmt.Errorf("%w: field %q has weight %v", ErrInvalidFieldWeight, f.Name, f.Weight)
		}
	}
	return nil
}

// Scored pairs a record with its normalized relevance score in [0,1].
type Scored[T any] struct {
	Item  T
	Score float64
}

// Scorer ranks candidates against a query. Implementations must return
// results sorted by descending score with ties in input order, drop
// candidates scoring below the threshold, and yield an empty result (not an
// error) for an empty query or candidate list.
type Scorer[T any] interface {
	Rank(ctx context.Context, query string, items []T, fields []Field[T], threshold float64) ([]Scored[T], error)
}

// sortByScore orders results by descending score, preserving input order for
// equal scores.
func sortByScore[T any](results []Scored[T]) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
