package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/resume-optimizer/internal/analyzer"
	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/queue"
	"github.com/jonathan/resume-optimizer/internal/service"
	"github.com/jonathan/resume-optimizer/internal/storage"
)

// backend is everything the server and the worker share.
type backend struct {
	cfg      *config.AppConfig
	db       *db.DB
	llm      llm.Client
	queue    *queue.Conn
	analyses *service.AnalysisService
}

// openBackend connects to the database, the model provider and, when
// configured, the bucket and the broker. requireQueue makes a missing
// RABBITMQ_URL an error.
func openBackend(ctx context.Context, requireQueue bool) (*backend, error) {
	cfg, err := config.NewAppConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	if requireQueue && !cfg.Queue.Enabled() {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set")
	}

	b := &backend{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			b.Close()
		}
	}()

	b.db, err = db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	llmCfg, err := llm.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	b.llm, err = llm.NewClient(ctx, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	opts := service.Options{
		Fetcher:            fetch.NewClient(fetch.Options{}),
		CreditsPerAnalysis: cfg.Credits.PerAnalysis,
	}
	if cfg.Storage.Enabled() {
		objects, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		opts.Objects = objects
	}
	if cfg.Queue.Enabled() {
		b.queue, err = queue.Dial(cfg.Queue.URL, cfg.Queue.Name)
		if err != nil {
			return nil, err
		}
		opts.Publisher = b.queue
	}

	b.analyses = service.NewAnalysisService(b.db, analyzer.New(b.llm), opts)
	log.Info().
		Str("provider", string(llmCfg.Provider)).
		Str("model", b.llm.Model()).
		Bool("storage", cfg.Storage.Enabled()).
		Bool("queue", cfg.Queue.Enabled()).
		Msg("backend ready")

	ok = true
	return b, nil
}

// Close releases whatever openBackend managed to open.
func (b *backend) Close() {
	if b.queue != nil {
		if err := b.queue.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close queue connection")
		}
	}
	if b.llm != nil {
		if err := b.llm.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close LLM client")
		}
	}
	if b.db != nil {
		b.db.Close()
	}
}
