package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient talks to OpenAI compatible chat completion APIs, Groq included.
type OpenAIClient struct {
	client *openai.Client
	cfg    *Config
}

// NewOpenAIClient builds a client for cfg.BaseURL, or the OpenAI default
// when it is empty.
func NewOpenAIClient(cfg *Config, opts ...option.RequestOption) *OpenAIClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		cfg:    cfg,
	}
}

// Generate sends req as a system and a user message.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (*Response, error) {
	req = withDefaults(req, c.cfg)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Messages:    openai.F(messages),
		Model:       openai.F(openai.ChatModel(c.cfg.Model)),
		Temperature: openai.F(req.Temperature),
		MaxTokens:   openai.F(int64(req.MaxTokens)),
	}
	if req.JSON {
		params.ResponseFormat = openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONObjectParam{Type: openai.F(openai.ResponseFormatJSONObjectTypeJSONObject)},
		)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion failed: %w", c.cfg.Provider, err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	text := completion.Choices[0].Message.Content
	if req.JSON {
		text = CleanJSONBlock(text)
	}
	return &Response{
		Text:        text,
		Model:       completion.Model,
		TotalTokens: int(completion.Usage.TotalTokens),
	}, nil
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.cfg.Model
}

// Close is a no-op; the HTTP client holds no resources.
func (c *OpenAIClient) Close() error {
	return nil
}
