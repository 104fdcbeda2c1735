package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/tubechat/tubechat/internal/config"
)

const (
	defaultChatModelName = "llama-3.3-70b-versatile"
	defaultChatBaseURL   = "https://api.groq.com/openai/v1"
)

// Generator produces a completion for a prepared list of chat messages.
type Generator interface {
	Generate(ctx context.Context, messages []llms.MessageContent) (string, error)
}

// LLMService talks to an OpenAI-compatible chat endpoint (Groq by default).
type LLMService struct {
	model       string
	baseURL     string
	apiKey      string
	temperature float64
	newModel    func() (llms.Model, error)
}

func NewLLMService(cfg config.LLMConfig) *LLMService {
	s := &LLMService{
		model:       cfg.Model,
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
	}
	if s.model == "" {
		s.model = defaultChatModelName
	}
	if s.baseURL == "" {
		s.baseURL = defaultChatBaseURL
	}
	s.newModel = s.openAIModel
	return s
}

// openAIModel builds a client per call; an empty key surfaces here, at invocation.
func (s *LLMService) openAIModel() (llms.Model, error) {
	return openai.New(
		openai.WithModel(s.model),
		openai.WithBaseURL(s.baseURL),
		openai.WithToken(s.apiKey),
	)
}

func (s *LLMService) Model() string {
	return s.model
}

func (s *LLMService) Generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("prompt is empty for chat completion")
	}
	model, err := s.newModel()
	if err != nil {
		return "", fmt.Errorf("failed to create chat client: %w", err)
	}

	resp, err := model.GenerateContent(ctx, messages, llms.WithTemperature(s.temperature))
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Content, nil
}
