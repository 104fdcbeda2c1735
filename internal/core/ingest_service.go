package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/tubechat/tubechat/internal/logger"
	"github.com/tubechat/tubechat/internal/store"
	"github.com/tubechat/tubechat/internal/transcript"
)

// IngestService turns a video reference into a searchable index, building it
// on the first request for a (video, language) pair and loading it afterwards.
type IngestService struct {
	provider       transcript.Provider
	indexes        *store.IndexStore
	embedder       embeddings.Embedder
	splitter       textsplitter.TextSplitter
	embeddingModel string
	log            logrus.FieldLogger
}

func NewIngestService(
	provider transcript.Provider,
	indexes *store.IndexStore,
	embedder embeddings.Embedder,
	splitter textsplitter.TextSplitter,
	embeddingModel string,
	log logrus.FieldLogger,
) *IngestService {
	return &IngestService{
		provider:       provider,
		indexes:        indexes,
		embedder:       embedder,
		splitter:       splitter,
		embeddingModel: embeddingModel,
		log:            log.WithField(logger.FieldComponent, "ingest"),
	}
}

// Ingest returns the index for ref. Cached indexes are returned as they are;
// use Refresh to rebuild one.
func (s *IngestService) Ingest(ctx context.Context, ref string) (*store.Index, error) {
	return s.ingest(ctx, ref, false)
}

// Refresh discards any cached index for ref and builds a new one.
func (s *IngestService) Refresh(ctx context.Context, ref string) (*store.Index, error) {
	return s.ingest(ctx, ref, true)
}

// Lookup loads the cached index for ref in lang without fetching anything.
func (s *IngestService) Lookup(ref, lang string) (*store.Index, error) {
	return s.indexes.Load(transcript.CacheKey(ref, lang), s.embedder)
}

func (s *IngestService) ingest(ctx context.Context, ref string, refresh bool) (*store.Index, error) {
	start := time.Now()
	docs, err := s.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	sel := transcript.Select(docs)
	key := transcript.CacheKey(ref, sel.Language)
	log := s.log.WithFields(logrus.Fields{
		logger.FieldVideoRef: ref,
		logger.FieldLanguage: sel.Language,
		logger.FieldCacheKey: key,
	})

	if refresh {
		if err := s.indexes.Remove(key); err != nil {
			return nil, err
		}
	} else if s.indexes.Exists(key) {
		idx, err := s.indexes.Load(key, s.embedder)
		if err != nil {
			return nil, err
		}
		log.WithField(logger.FieldCount, idx.Len()).Info("loaded cached index")
		return idx, nil
	}

	chunks, err := s.split(sel.Text)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %w: no text for language %s", transcript.ErrTranscriptUnavailable, transcript.ErrEmptyTranscript, sel.Language)
	}

	idx, err := s.indexes.Build(ctx, store.IndexMeta{
		Key:            key,
		VideoRef:       ref,
		Language:       sel.Language,
		EmbeddingModel: s.embeddingModel,
	}, chunks, s.embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to build index %s: %w", key, err)
	}

	log.WithFields(logrus.Fields{
		logger.FieldCount:      idx.Len(),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("built index")
	return idx, nil
}

// fetch tries the plain transcript fetch, then once more with video info.
func (s *IngestService) fetch(ctx context.Context, ref string) ([]transcript.Document, error) {
	docs, err := s.fetchOnce(ctx, ref, transcript.FetchOptions{})
	if err == nil {
		return docs, nil
	}
	s.log.WithError(err).WithField(logger.FieldVideoRef, ref).Warn("transcript fetch failed, retrying with video info")

	docs, err = s.fetchOnce(ctx, ref, transcript.FetchOptions{VideoInfo: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transcript.ErrTranscriptUnavailable, err)
	}
	return docs, nil
}

func (s *IngestService) fetchOnce(ctx context.Context, ref string, opts transcript.FetchOptions) ([]transcript.Document, error) {
	docs, err := s.provider.Fetch(ctx, ref, opts)
	if err != nil {
		return nil, err
	}
	if transcript.IsEmpty(docs) {
		return nil, transcript.ErrEmptyTranscript
	}
	return docs, nil
}

func (s *IngestService) split(text string) ([]string, error) {
	parts, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split transcript: %w", err)
	}
	chunks := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks, nil
}
