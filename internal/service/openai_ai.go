package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService implements AIService over the OpenAI chat completion API.
type OpenAIService struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIService creates an AI service using the given API key and model.
func NewOpenAIService(apiKey, model string, logger *slog.Logger) *OpenAIService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// NewOpenAIServiceWithConfig creates an AI service from an explicit client
// configuration, used by tests to point at a local server.
func NewOpenAIServiceWithConfig(cfg openai.ClientConfig, model string, logger *slog.Logger) *OpenAIService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Complete sends a single-turn user prompt and returns the trimmed response.
func (s *OpenAIService) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		s.logger.Error("Chat completion failed", "model", s.model, "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response from model %s", s.model)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
