package service

import "context"

// AIService defines the interface for LLM text generation. All business
// logic that produces AI text must go through this interface.
type AIService interface {
	// Complete sends a single-turn prompt and returns the generated text.
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}
