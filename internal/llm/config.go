// Package llm wraps the chat completion providers used to analyze resumes.
package llm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Provider names a chat completion backend.
type Provider string

const (
	// ProviderGroq is Groq's OpenAI compatible endpoint.
	ProviderGroq Provider = "groq"
	// ProviderOpenAI is OpenAI or any compatible endpoint set by BaseURL.
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is Google Gemini.
	ProviderGemini Provider = "gemini"
)

// DefaultProvider is used when neither LLM_PROVIDER nor GROQ_API_KEY is set.
const DefaultProvider = ProviderGemini

// GroqBaseURL is the OpenAI compatible root of the Groq API.
const GroqBaseURL = "https://api.groq.com/openai/v1/"

const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 4096
)

var defaultModels = map[Provider]string{
	ProviderGroq:   "llama-3.1-70b-versatile",
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGemini: "gemini-2.5-flash",
}

// Config selects and tunes a provider.
type Config struct {
	Provider    Provider
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns the DefaultProvider configuration without an API key.
func DefaultConfig() *Config {
	return &Config{
		Provider:    DefaultProvider,
		Model:       defaultModels[DefaultProvider],
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// ConfigFromEnv reads LLM_PROVIDER, the matching API key and the optional
// LLM_MODEL, LLM_TEMPERATURE, LLM_MAX_TOKENS and OPENAI_BASE_URL overrides.
// Without LLM_PROVIDER, Groq is used when GROQ_API_KEY is set and Gemini
// otherwise (DefaultProvider).
func ConfigFromEnv() (*Config, error) {
	fallback := DefaultProvider
	if os.Getenv("GROQ_API_KEY") != "" {
		fallback = ProviderGroq
	}

	cfg := &Config{
		Provider:    Provider(strings.ToLower(getEnv("LLM_PROVIDER", string(fallback)))),
		Model:       os.Getenv("LLM_MODEL"),
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}

	switch cfg.Provider {
	case ProviderGroq:
		cfg.APIKey = os.Getenv("GROQ_API_KEY")
		cfg.BaseURL = GroqBaseURL
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	case ProviderGemini:
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q (expected groq, openai or gemini)", cfg.Provider)
	}

	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 2 {
			return nil, fmt.Errorf("LLM_TEMPERATURE must be a number between 0 and 2, got %q", v)
		}
		cfg.Temperature = t
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("LLM_MAX_TOKENS must be a positive integer, got %q", v)
		}
		cfg.MaxTokens = n
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can build a client.
func (c *Config) Validate() error {
	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("API key is required for provider %s", c.Provider)
	}
	return nil
}

func (c *Config) normalize() {
	if c.Model == "" {
		c.Model = defaultModels[c.Provider]
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
