package retrieval

import (
	"fmt"
	"math"
)

// Index is an immutable, aligned set of items, the cleaned texts they were
// embedded from, and the resulting vectors. Position i of each sequence
// describes the same item.
type Index[T any] struct {
	items   []T
	texts   []string
	vectors [][]float32
}

// NewIndex builds an Index. The three slices must have equal length.
func NewIndex[T any](items []T, texts []string, vectors [][]float32) (*Index[T], error) {
	if len(items) != len(texts) || len(items) != len(vectors) {
		return nil, fmt.Errorf("misaligned index: %d items, %d texts, %d vectors", len(items), len(texts), len(vectors))
	}
	return &Index[T]{items: items, texts: texts, vectors: vectors}, nil
}

// Len returns the number of entries. A nil Index is empty.
func (x *Index[T]) Len() int {
	if x == nil {
		return 0
	}
	return len(x.items)
}

// Item returns the item at position i.
func (x *Index[T]) Item(i int) T { return x.items[i] }

// Text returns the cleaned text at position i.
func (x *Index[T]) Text(i int) string { return x.texts[i] }

// Vector returns the embedding at position i.
func (x *Index[T]) Vector(i int) []float32 { return x.vectors[i] }

// Scores returns the cosine similarity of query against every entry, in
// index order.
func (x *Index[T]) Scores(query []float32) []float64 {
	scores := make([]float64, x.Len())
	for i := range scores {
		scores[i] = Cosine(query, x.vectors[i])
	}
	return scores
}

// Best returns the position and score of the most similar entry. Ties go
// to the earliest position. ok is false for an empty index.
func (x *Index[T]) Best(query []float32) (i int, score float64, ok bool) {
	return argmax(x.Scores(query))
}

// NearTies returns, in index order, every position whose score is at least
// floor and within margin of the best score.
func (x *Index[T]) NearTies(query []float32, floor, margin float64) []int {
	return nearTies(x.Scores(query), floor, margin)
}

func argmax(scores []float64) (int, float64, bool) {
	if len(scores) == 0 {
		return 0, 0, false
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, scores[best], true
}

func nearTies(scores []float64, floor, margin float64) []int {
	_, best, ok := argmax(scores)
	if !ok {
		return nil
	}
	var out []int
	for i, s := range scores {
		if s >= floor && math.Abs(s-best) <= margin {
			out = append(out, i)
		}
	}
	return out
}
