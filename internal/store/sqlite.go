package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/tmc/langchaingo/embeddings"
)

// IndexFileName is the marker whose presence means an index is cached.
const IndexFileName = "index.db"

var ErrIndexNotFound = errors.New("index not found")

// IndexStore keeps one SQLite file per index under root/{key}/index.db.
type IndexStore struct {
	root string
}

func NewIndexStore(root string) (*IndexStore, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve index directory: %w", err)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create index directory %s: %w", root, err)
	}
	return &IndexStore{root: root}, nil
}

func (s *IndexStore) Root() string {
	return s.root
}

// Dir returns the directory holding the index for key.
func (s *IndexStore) Dir(key string) string {
	return filepath.Join(s.root, key)
}

// Exists reports whether the marker file for key is present.
func (s *IndexStore) Exists(key string) bool {
	info, err := os.Stat(filepath.Join(s.Dir(key), IndexFileName))
	return err == nil && !info.IsDir()
}

// Remove deletes the index for key. Removing a missing index is not an error.
func (s *IndexStore) Remove(key string) error {
	if err := os.RemoveAll(s.Dir(key)); err != nil {
		return fmt.Errorf("failed to remove index %s: %w", key, err)
	}
	return nil
}

// Load reads a persisted index fully into memory. embedder is used only for
// embedding queries against it.
func (s *IndexStore) Load(key string, embedder embeddings.Embedder) (*Index, error) {
	if !s.Exists(key) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, key)
	}
	db, err := sql.Open("sqlite3", sqliteDSN(filepath.Join(s.Dir(key), IndexFileName), "ro"))
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", key, err)
	}
	defer db.Close()

	meta, err := readMeta(db)
	if err != nil {
		return nil, fmt.Errorf("failed to read index meta for %s: %w", key, err)
	}
	chunks, err := readChunks(db)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks for %s: %w", key, err)
	}
	return &Index{meta: meta, chunks: chunks, embedder: embedder}, nil
}

// Build embeds texts, writes them to a fresh index and publishes it under
// meta.Key. The index is written to a temporary directory and renamed into
// place, so the marker only ever appears next to a complete index.
func (s *IndexStore) Build(ctx context.Context, meta IndexMeta, texts []string, embedder embeddings.Embedder) (*Index, error) {
	if len(texts) == 0 {
		return nil, errors.New("no chunks to index")
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(vectors), len(texts))
	}

	chunks := make([]Chunk, len(texts))
	for i := range texts {
		chunks[i] = Chunk{Position: i, Content: texts[i], Embedding: vectors[i]}
	}
	meta.Dimension = len(vectors[0])
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	tmpDir := filepath.Join(s.root, "."+meta.Key+"."+uuid.NewString()+".tmp")
	if err := os.MkdirAll(tmpDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := writeIndex(filepath.Join(tmpDir, IndexFileName), meta, chunks); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpDir, s.Dir(meta.Key)); err != nil {
		if s.Exists(meta.Key) {
			// Someone published the same key first; theirs wins.
			return s.Load(meta.Key, embedder)
		}
		return nil, fmt.Errorf("failed to publish index %s: %w", meta.Key, err)
	}

	return &Index{meta: meta, chunks: chunks, embedder: embedder}, nil
}

// sqliteDSN builds a file: URI for path. The path is escaped so that '%', '#'
// and '?' in directory names or keys reach SQLite as literal characters.
func sqliteDSN(path, mode string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{Scheme: "file", Path: path, RawQuery: "mode=" + mode}
	return u.String()
}

func writeIndex(path string, meta IndexMeta, chunks []Chunk) error {
	db, err := sql.Open("sqlite3", sqliteDSN(path, "rwc"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := initSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO meta (key, video_ref, language, embedding_model, dimension, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		meta.Key, meta.VideoRef, meta.Language, meta.EmbeddingModel, meta.Dimension, meta.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert meta: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO chunks (position, content, embedding_json) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingBytes, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		if _, err := stmt.Exec(chunk.Position, chunk.Content, string(embeddingBytes)); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

func initSchema(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS meta (
        key TEXT PRIMARY KEY,
        video_ref TEXT NOT NULL,
        language TEXT NOT NULL,
        embedding_model TEXT NOT NULL,
        dimension INTEGER NOT NULL,
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS chunks (
        position INTEGER PRIMARY KEY,
        content TEXT NOT NULL,
        embedding_json TEXT NOT NULL -- JSON array of float32
    );
    `
	_, err := db.Exec(schema)
	return err
}

func readMeta(db *sql.DB) (IndexMeta, error) {
	var meta IndexMeta
	err := db.QueryRow("SELECT key, video_ref, language, embedding_model, dimension, created_at FROM meta LIMIT 1").
		Scan(&meta.Key, &meta.VideoRef, &meta.Language, &meta.EmbeddingModel, &meta.Dimension, &meta.CreatedAt)
	if err != nil {
		return IndexMeta{}, err
	}
	return meta, nil
}

func readChunks(db *sql.DB) ([]Chunk, error) {
	rows, err := db.Query("SELECT position, content, embedding_json FROM chunks ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		var embeddingJSON string
		if err := rows.Scan(&chunk.Position, &chunk.Content, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &chunk.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding for chunk %d: %w", chunk.Position, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
