// Package main provides the resume optimizer command line: the HTTP API, the
// queue worker, migrations and local analyses.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "resume_optimizer",
	Short: "Resume Optimizer API, worker and CLI",
	Long:  "Resume Optimizer scores resumes against job descriptions, reports missing keywords and drafts an improved version using a language model.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return logging.Setup(logging.OptionsFromEnv())
	},
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
