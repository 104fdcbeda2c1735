package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/tubechat/tubechat/internal/logger"
	"github.com/tubechat/tubechat/internal/store"
)

// NumRelevantChunks is the number of chunks retrieved as context per question.
const NumRelevantChunks = 4

// Retriever returns the k chunks most similar to query.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]store.ScoredChunk, error)
}

// AnswerService answers questions from retrieved transcript chunks.
type AnswerService struct {
	generator Generator
	log       logrus.FieldLogger
}

func NewAnswerService(generator Generator, log logrus.FieldLogger) *AnswerService {
	return &AnswerService{
		generator: generator,
		log:       log.WithField(logger.FieldComponent, "answer"),
	}
}

// Answer retrieves context for question and asks the generator. memory may be
// nil; its turns are placed between the system prompt and the question.
func (s *AnswerService) Answer(ctx context.Context, retriever Retriever, question string, mode Mode, memory schema.ChatMessageHistory) (string, error) {
	start := time.Now()
	docs, err := retriever.SimilaritySearch(ctx, question, NumRelevantChunks)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}

	var history []llms.ChatMessage
	if memory != nil {
		history, err = memory.Messages(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to read conversation memory: %w", err)
		}
	}

	messages := BuildMessages(BuildSystemPrompt(joinChunks(docs), mode), history, question)
	answer, err := s.generator.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to get LLM completion: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		logger.FieldMode:       string(mode),
		logger.FieldCount:      len(docs),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Debug("answered question")
	return answer, nil
}

// BuildMessages orders the prompt as system, prior turns, then the question.
func BuildMessages(systemPrompt string, history []llms.ChatMessage, question string) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, msg := range history {
		messages = append(messages, llms.TextParts(msg.GetType(), msg.GetContent()))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))
	return messages
}

func joinChunks(docs []store.ScoredChunk) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Chunk.Content
	}
	return strings.Join(parts, " ")
}
