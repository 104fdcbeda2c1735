package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
)

// Index is a loaded, read-only similarity index over one transcript.
type Index struct {
	meta     IndexMeta
	chunks   []Chunk
	embedder embeddings.Embedder
}

func (i *Index) Meta() IndexMeta {
	return i.meta
}

func (i *Index) Len() int {
	return len(i.chunks)
}

func (i *Index) Chunks() []Chunk {
	out := make([]Chunk, len(i.chunks))
	copy(out, i.chunks)
	return out
}

// SimilaritySearch embeds query and returns the k chunks closest to it.
func (i *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	if i.embedder == nil {
		return nil, errors.New("index has no query embedder")
	}
	if len(i.chunks) == 0 {
		return nil, nil
	}
	vec, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get query embedding: %w", err)
	}
	scored, err := rank(vec, i.chunks, k)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", i.meta.Key, err)
	}
	return scored, nil
}
