package store

import (
	"errors"
	"math"
	"sort"
)

var (
	errEmptyVector       = errors.New("vectors cannot be empty")
	errDimensionMismatch = errors.New("vectors must have the same dimension")
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either has zero magnitude.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, errEmptyVector
	}
	if len(a) != len(b) {
		return 0, errDimensionMismatch
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// rank scores every chunk against query and returns the k best, highest first.
// Ties keep transcript order.
func rank(query []float32, chunks []Chunk, k int) ([]ScoredChunk, error) {
	scored := make([]ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		sim, err := CosineSimilarity(query, chunk.Embedding)
		if err != nil {
			return nil, err
		}
		scored = append(scored, ScoredChunk{Chunk: chunk, Similarity: sim})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
