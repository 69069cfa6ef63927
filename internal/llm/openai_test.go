package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
}

func testConfig(baseURL string) *Config {
	return &Config{
		Provider:    ProviderOpenAI,
		APIKey:      "test-key",
		BaseURL:     baseURL + "/",
		Model:       "test-model",
		Temperature: 0.3,
		MaxTokens:   512,
	}
}

func TestOpenAIClient_GenerateJSON(t *testing.T) {
	var body map[string]any
	server := completionServer(t, "```json\n{\"overallScore\": 70}\n```", &body)
	defer server.Close()

	client := NewOpenAIClient(testConfig(server.URL), option.WithMaxRetries(0))
	resp, err := client.Generate(context.Background(), Request{System: "sys", User: "resume", JSON: true})
	require.NoError(t, err)

	assert.Equal(t, `{"overallScore": 70}`, resp.Text)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 15, resp.TotalTokens)

	assert.Equal(t, "test-model", body["model"])
	assert.InDelta(t, 0.3, body["temperature"], 0.0001)
	assert.EqualValues(t, 512, body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestOpenAIClient_GenerateText(t *testing.T) {
	var body map[string]any
	server := completionServer(t, "plain answer", &body)
	defer server.Close()

	client := NewOpenAIClient(testConfig(server.URL), option.WithMaxRetries(0))
	resp, err := client.Generate(context.Background(), Request{User: "hello", Temperature: 0.9, MaxTokens: 10})
	require.NoError(t, err)

	assert.Equal(t, "plain answer", resp.Text)
	assert.NotContains(t, body, "response_format")
	assert.InDelta(t, 0.9, body["temperature"], 0.0001)
	assert.EqualValues(t, 10, body["max_tokens"])
	assert.Len(t, body["messages"], 1)
}

func TestOpenAIClient_EmptyContent(t *testing.T) {
	server := completionServer(t, "", nil)
	defer server.Close()

	client := NewOpenAIClient(testConfig(server.URL), option.WithMaxRetries(0))
	_, err := client.Generate(context.Background(), Request{User: "hello"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(testConfig(server.URL), option.WithMaxRetries(0))
	_, err := client.Generate(context.Background(), Request{User: "hello"})
	assert.ErrorContains(t, err, "openai chat completion failed")
}
