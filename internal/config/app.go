package config

import (
	"fmt"
	"os"
	"strings"
)

// Defaults for the service configuration.
const (
	DefaultPort               = 8080
	DefaultMaxUploadBytes     = 5 << 20
	DefaultFreeCredits        = 5
	DefaultCreditsPerAnalysis = 1
	DefaultS3Region           = "auto"
	DefaultAnalysisQueue      = "analyses"
	DefaultWorkerConcurrency  = 3
)

// CreditsConfig controls the per-user usage quota.
type CreditsConfig struct {
	FreePerUser int
	PerAnalysis int
}

// StorageConfig points at an S3-compatible bucket. Storage is disabled when
// Bucket is empty.
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Enabled reports whether uploads should be archived.
func (c StorageConfig) Enabled() bool { return c.Bucket != "" }

// QueueConfig points at the RabbitMQ broker used for async analyses. The
// queue is disabled when URL is empty.
type QueueConfig struct {
	URL         string
	Name        string
	Concurrency int
}

// Enabled reports whether async analyses are available.
func (c QueueConfig) Enabled() bool { return c.URL != "" }

// AppConfig is everything the API server and worker read from the environment
// apart from JWT, password and LLM settings.
type AppConfig struct {
	Port           int
	DatabaseURL    string
	MaxUploadBytes int64
	Credits        CreditsConfig
	Storage        StorageConfig
	Queue          QueueConfig
}

// NewAppConfig reads the service configuration from environment variables.
// DATABASE_URL is not required here; commands that need it check it.
func NewAppConfig() (*AppConfig, error) {
	port, err := intFromEnv("PORT", DefaultPort)
	if err != nil {
		return nil, err
	}
	maxUpload, err := intFromEnv("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}
	freeCredits, err := intFromEnv("FREE_CREDITS_PER_USER", DefaultFreeCredits)
	if err != nil {
		return nil, err
	}
	perAnalysis, err := intFromEnv("CREDITS_PER_ANALYSIS", DefaultCreditsPerAnalysis)
	if err != nil {
		return nil, err
	}
	concurrency, err := intFromEnv("WORKER_CONCURRENCY", DefaultWorkerConcurrency)
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		Port:           port,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MaxUploadBytes: int64(maxUpload),
		Credits: CreditsConfig{
			FreePerUser: freeCredits,
			PerAnalysis: perAnalysis,
		},
		Storage: StorageConfig{
			Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
			Region:    envOr("S3_REGION", DefaultS3Region),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		Queue: QueueConfig{
			URL:         os.Getenv("RABBITMQ_URL"),
			Name:        envOr("ANALYSIS_QUEUE", DefaultAnalysisQueue),
			Concurrency: concurrency,
		},
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got: %d", c.MaxUploadBytes)
	}
	if c.Credits.FreePerUser < 0 {
		return fmt.Errorf("FREE_CREDITS_PER_USER must be non-negative, got: %d", c.Credits.FreePerUser)
	}
	if c.Credits.PerAnalysis < 1 {
		return fmt.Errorf("CREDITS_PER_ANALYSIS must be at least 1, got: %d", c.Credits.PerAnalysis)
	}
	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got: %d", c.Queue.Concurrency)
	}
	if (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY must be set together")
	}
	return nil
}

// RequireDatabase returns an error when DATABASE_URL is unset.
func (c *AppConfig) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required but not set")
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
