package core

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	ChunkSize    = 2000
	ChunkOverlap = 200

	SplitterWindow    = "window"
	SplitterRecursive = "recursive"
)

// WindowSplitter cuts text into fixed windows of ChunkSize runes, each
// starting ChunkSize-ChunkOverlap runes after the previous one.
type WindowSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

var _ textsplitter.TextSplitter = WindowSplitter{}

func (s WindowSplitter) SplitText(text string) ([]string, error) {
	if s.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", s.ChunkOverlap, s.ChunkSize)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	if len(runes) <= s.ChunkSize {
		return []string{text}, nil
	}

	step := s.ChunkSize - s.ChunkOverlap
	var chunks []string
	for start := 0; ; start += step {
		end := min(start+s.ChunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// NewSplitter returns the splitter named by strategy. Both produce chunks of
// at most ChunkSize runes with ChunkOverlap runes shared between neighbours.
func NewSplitter(strategy string) (textsplitter.TextSplitter, error) {
	switch strategy {
	case SplitterWindow, "":
		return WindowSplitter{ChunkSize: ChunkSize, ChunkOverlap: ChunkOverlap}, nil
	case SplitterRecursive:
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(ChunkSize),
			textsplitter.WithChunkOverlap(ChunkOverlap),
		), nil
	default:
		return nil, fmt.Errorf("unsupported splitter: %s", strategy)
	}
}
