package store

import "time"

// IndexMeta describes a persisted similarity index.
type IndexMeta struct {
	Key            string    `json:"key"` // {videoIdentifier}_{language}
	VideoRef       string    `json:"video_ref"`
	Language       string    `json:"language"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	CreatedAt      time.Time `json:"created_at"`
}

// Chunk is one transcript window and its embedding.
type Chunk struct {
	Position  int       `json:"position"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
}

type ScoredChunk struct {
	Chunk      Chunk
	Similarity float32
}
