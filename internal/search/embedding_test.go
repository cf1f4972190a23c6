package search

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubEmbedder returns canned vectors keyed by lowercase text. Unknown texts
// get a vector orthogonal to everything configured.
type stubEmbedder struct {
	vectors map[string][]float32
	calls   map[string]int
	failOn  string
}

func newStubEmbedder(vectors map[string][]float32) *stubEmbedder {
	return &stubEmbedder{vectors: vectors, calls: make(map[string]int)}
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	key := strings.ToLower(text)
	s.calls[key]++
	if s.failOn != "" && key == s.failOn {
		return nil, errors.New("model unavailable")
	}
	if v, ok := s.vectors[key]; ok {
		return v, nil
	}
	return []float32{0, 0, 0, 1}, nil
}

func TestEmbeddingRankOrdersBySimilarity(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"science":   {1, 0, 0, 0},
		"astronomy": {0.9, 0.1, 0, 0},
		"math":      {0.6, 0.8, 0, 0},
		"cooking":   {0, 0, 1, 0},
	})
	fields := []Field[book]{
		{Name: "subject", Weight: 1, Value: func(b book) string { return b.Subject }},
	}
	items := []book{
		{ID: "cook", Subject: "Cooking"},
		{ID: "math", Subject: "Math"},
		{ID: "astro", Subject: "Astronomy"},
	}

	scorer := NewEmbeddingScorer[book](embedder)
	results, err := scorer.Rank(context.Background(), "science", items, fields, 0.4)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (cooking is orthogonal to science)", len(results))
	}
	if results[0].Item.ID != "astro" || results[1].Item.ID != "math" {
		t.Errorf("order = [%s %s], want [astro math]", results[0].Item.ID, results[1].Item.ID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %v then %v", results[0].Score, results[1].Score)
	}
}

func TestEmbeddingRankWeightsFields(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"novel":           {1, 0, 0, 0},
		"a classic novel": {1, 0, 0, 0},
		"textbook":        {0, 1, 0, 0},
	})
	fields := []Field[book]{
		{Name: "title", Weight: 2, Value: func(b book) string { return b.Title }},
		{Name: "category", Weight: 1, Value: func(b book) string { return b.Category }},
	}
	items := []book{
		{ID: "title-hit", Title: "A Classic Novel", Category: "Textbook"},
		{ID: "category-hit", Title: "Textbook", Category: "A Classic Novel"},
	}

	scorer := NewEmbeddingScorer[book](embedder)
	results, err := scorer.Rank(context.Background(), "novel", items, fields, 0.1)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Item.ID != "title-hit" {
		t.Errorf("heavier title field should win: order = [%s %s]", results[0].Item.ID, results[1].Item.ID)
	}
}

func TestEmbeddingRankCachesFieldVectors(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"physics": {1, 0, 0, 0},
	})
	fields := []Field[book]{
		{Name: "subject", Weight: 1, Value: func(b book) string { return b.Subject }},
	}
	items := []book{
		{ID: "1", Subject: "Physics"},
		{ID: "2", Subject: "Physics"},
		{ID: "3", Subject: "Physics"},
	}

	scorer := NewEmbeddingScorer[book](embedder)
	if _, err := scorer.Rank(context.Background(), "physics", items, fields, 0); err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if got := embedder.calls["physics"]; got != 2 {
		t.Errorf("Embed called %d times for repeated text, want 2 (once as term, once as field)", got)
	}
}

func TestEmbeddingRankSkipsEmptyFieldValues(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"history": {1, 0, 0, 0},
	})
	fields := []Field[book]{
		{Name: "subject", Weight: 1, Value: func(b book) string { return b.Subject }},
		{Name: "description", Weight: 1, Value: func(b book) string { return b.Description }},
	}
	items := []book{{ID: "1", Subject: "History", Description: "  "}}

	scorer := NewEmbeddingScorer[book](embedder)
	results, err := scorer.Rank(context.Background(), "history", items, fields, 0.1)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if got := embedder.calls[""]; got != 0 {
		t.Errorf("blank field value was embedded %d times, want 0", got)
	}
}

func TestEmbeddingRankPropagatesModelFailure(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"physics": {1, 0, 0, 0},
	})
	embedder.failOn = "broken"
	fields := []Field[book]{
		{Name: "subject", Weight: 1, Value: func(b book) string { return b.Subject }},
	}
	items := []book{{ID: "1", Subject: "Broken"}}

	scorer := NewEmbeddingScorer[book](embedder)
	if _, err := scorer.Rank(context.Background(), "physics", items, fields, 0); err == nil {
		t.Fatal("expected error when the model call fails")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"dimension mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
