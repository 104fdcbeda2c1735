package core

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"

	"github.com/tubechat/tubechat/internal/store"
	"github.com/tubechat/tubechat/internal/transcript"
)

type fetchResult struct {
	docs []transcript.Document
	err  error
}

// fakeProvider answers plain and video-info fetches from separate slots.
type fakeProvider struct {
	mu        sync.Mutex
	plain     fetchResult
	videoInfo fetchResult
	calls     []transcript.FetchOptions
}

func (p *fakeProvider) Fetch(_ context.Context, _ string, opts transcript.FetchOptions) ([]transcript.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, opts)
	if opts.VideoInfo {
		return p.videoInfo.docs, p.videoInfo.err
	}
	return p.plain.docs, p.plain.err
}

// countingEmbedder returns letter-frequency vectors and counts document calls.
type countingEmbedder struct {
	mu       sync.Mutex
	docCalls int
	docTexts int
}

func letterVector(text string) []float32 {
	v := make([]float32, 27)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[26] = 1
	return v
}

func (e *countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.docCalls++
	e.docTexts += len(texts)
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letterVector(t)
	}
	return out, nil
}

func (e *countingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return letterVector(text), nil
}

// recordingGenerator returns a fixed reply and keeps every prompt it saw.
type recordingGenerator struct {
	reply string
	err   error
	seen  [][]llms.MessageContent
}

func (g *recordingGenerator) Generate(_ context.Context, messages []llms.MessageContent) (string, error) {
	g.seen = append(g.seen, messages)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *recordingGenerator) last() []llms.MessageContent {
	if len(g.seen) == 0 {
		return nil
	}
	return g.seen[len(g.seen)-1]
}

// stubRetriever returns fixed chunks and records the requested k.
type stubRetriever struct {
	chunks  []string
	queries []string
	ks      []int
}

func (r *stubRetriever) SimilaritySearch(_ context.Context, query string, k int) ([]store.ScoredChunk, error) {
	r.queries = append(r.queries, query)
	r.ks = append(r.ks, k)
	out := make([]store.ScoredChunk, 0, len(r.chunks))
	for i, c := range r.chunks {
		if i == k {
			break
		}
		out = append(out, store.ScoredChunk{Chunk: store.Chunk{Position: i, Content: c}, Similarity: 1})
	}
	return out, nil
}

func textOf(msg llms.MessageContent) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		if t, ok := part.(llms.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}
