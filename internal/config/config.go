package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the CLI configuration that can be loaded from a JSON file.
// All fields are optional; explicit flags take precedence after merging.
type Config struct {
	// Inputs
	Job    string `json:"job,omitempty"`     // Path to a job description text file
	JobURL string `json:"job_url,omitempty"` // URL to fetch the job description from
	Output string `json:"output,omitempty"`  // Path the improved resume is written to

	// Model
	Provider string `json:"provider,omitempty"` // groq, openai or gemini
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty"`

	// Behavior
	JSON    bool `json:"json,omitempty"`    // Print the full result as JSON
	Offline bool `json:"offline,omitempty"` // Heuristic scoring only, no model call
	Verbose bool `json:"verbose,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configured values. Required inputs are checked by the
// command after merging with flags.
func (c *Config) Validate() error {
	if c.Job != "" && c.JobURL != "" {
		return fmt.Errorf("config error: 'job' and 'job_url' are mutually exclusive")
	}

	switch c.Provider {
	case "", "groq", "openai", "gemini":
	default:
		return fmt.Errorf("config error: unknown provider %q", c.Provider)
	}

	if c.Job != "" {
		if _, err := os.Stat(c.Job); os.IsNotExist(err) {
			return fmt.Errorf("config error: job file not found: %s", c.Job)
		}
	}
	return nil
}

// MergeWithDefaults returns a copy of c with empty string fields filled from
// defaults. Booleans are not merged since unset cannot be told from false.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.Job, defaults.Job)
	fill(&result.JobURL, defaults.JobURL)
	fill(&result.Output, defaults.Output)
	fill(&result.Provider, defaults.Provider)
	fill(&result.Model, defaults.Model)
	fill(&result.APIKey, defaults.APIKey)

	return result
}
