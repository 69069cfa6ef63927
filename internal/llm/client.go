package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("no content in LLM response")

// Request is a single chat completion.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// JSON asks the provider to return a JSON object.
	JSON bool
}

// Response is a provider answer.
type Response struct {
	Text        string
	Model       string
	TotalTokens int
}

// Client is implemented by every provider.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Model() string
	Close() error
}

// NewClient builds the client selected by cfg.
func NewClient(ctx context.Context, cfg *Config) (Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	default:
		return NewOpenAIClient(cfg), nil
	}
}

// withDefaults fills unset request fields from cfg. A zero Temperature
// selects the configured one.
func withDefaults(req Request, cfg *Config) Request {
	if req.Temperature == 0 {
		req.Temperature = cfg.Temperature
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = cfg.MaxTokens
	}
	return req
}
