package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"google.golang.org/api/option"

	"github.com/tubechat/tubechat/internal/config"
)

const (
	EmbeddingProviderGemini = "gemini"
	EmbeddingProviderOllama = "ollama"

	defaultEmbeddingModelName = "text-embedding-004"
	defaultOllamaModelName    = "nomic-embed-text"
	defaultEmbeddingBatchSize = 100 // Gemini batchEmbedContents limit
)

// NewEmbedder builds the embedder named by cfg.Provider. Gemini clients are
// created on first use so that a missing key fails the call, not startup.
func NewEmbedder(cfg config.EmbeddingConfig) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case EmbeddingProviderGemini, "":
		return NewGeminiEmbedder(cfg.APIKey, EmbeddingModelName(cfg), cfg.BatchSize), nil
	case EmbeddingProviderOllama:
		opts := []ollama.Option{ollama.WithModel(EmbeddingModelName(cfg))}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		batchSize := cfg.BatchSize
		if batchSize <= 0 {
			batchSize = defaultEmbeddingBatchSize
		}
		return embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batchSize))
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// EmbeddingModelName resolves the model used by cfg.Provider. The Gemini
// default is swapped for an Ollama one when only the provider was changed.
func EmbeddingModelName(cfg config.EmbeddingConfig) string {
	switch cfg.Provider {
	case EmbeddingProviderOllama:
		if cfg.Model == "" || cfg.Model == defaultEmbeddingModelName {
			return defaultOllamaModelName
		}
	case EmbeddingProviderGemini, "":
		if cfg.Model == "" {
			return defaultEmbeddingModelName
		}
	}
	return cfg.Model
}

// GeminiEmbedder implements embeddings.Embedder on top of the GenAI client.
type GeminiEmbedder struct {
	apiKey    string
	model     string
	batchSize int

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiEmbedder(apiKey, model string, batchSize int) *GeminiEmbedder {
	if model == "" {
		model = defaultEmbeddingModelName
	}
	if batchSize <= 0 || batchSize > defaultEmbeddingBatchSize {
		batchSize = defaultEmbeddingBatchSize
	}
	return &GeminiEmbedder{apiKey: apiKey, model: model, batchSize: batchSize}
}

func (e *GeminiEmbedder) ensureClient(ctx context.Context) (*genai.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	e.client = client
	return client, nil
}

// EmbedDocuments embeds texts in batches with the retrieval-document task type.
func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := e.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	em := client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch := em.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}
		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("gemini batch embedding request failed: %w", err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(res.Embeddings), end-start)
		}
		for _, emb := range res.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("no embedding data received from gemini")
			}
			vectors = append(vectors, emb.Values)
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single question with the retrieval-query task type.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	client, err := e.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	em := client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

func (e *GeminiEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
