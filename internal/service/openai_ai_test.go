package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAIService(t *testing.T, handler http.HandlerFunc) *OpenAIService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return NewOpenAIServiceWithConfig(cfg, "gpt-4o-mini", nil)
}

func TestOpenAIServiceComplete(t *testing.T) {
	svc := newTestAIService(t, func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "tell me a scene", req.Messages[0].Content)
		assert.Equal(t, 350, req.MaxTokens)

		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "  a market brawl  "}},
			},
		})
	})

	out, err := svc.Complete(context.Background(), "tell me a scene", 350, 0.8)
	require.NoError(t, err)
	assert.Equal(t, "a market brawl", out)
}

func TestOpenAIServiceCompleteServerError(t *testing.T) {
	svc := newTestAIService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	})

	_, err := svc.Complete(context.Background(), "prompt", 100, 0.5)
	assert.ErrorContains(t, err, "chat completion")
}
