package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/queue"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued analyses",
	Long: `Run async analyses submitted through the API. Each message names a stored
analysis; the worker runs it and records the result, refunding credits on failure.

Requires DATABASE_URL, RABBITMQ_URL and an API key for the configured LLM provider.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Analyses processed in parallel (defaults to WORKER_CONCURRENCY or 3)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	b, err := openBackend(ctx, true)
	if err != nil {
		return err
	}
	defer b.Close()

	concurrency := b.cfg.Queue.Concurrency
	if workerConcurrency > 0 {
		concurrency = workerConcurrency
	}

	log.Info().Str("queue", b.cfg.Queue.Name).Int("concurrency", concurrency).Msg("worker starting")
	return queue.NewWorker(b.queue, b.analyses, concurrency).Run(ctx)
}
