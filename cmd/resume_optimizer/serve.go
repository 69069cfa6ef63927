package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/server"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the upload, scoring, analysis and account endpoints.

Requires DATABASE_URL, JWT_SECRET and an API key for the configured LLM provider.
S3_BUCKET enables upload archiving and RABBITMQ_URL enables async analyses.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT or 8080)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Apply pending database migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to load JWT config: %w", err)
	}
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return fmt.Errorf("failed to load password config: %w", err)
	}

	b, err := openBackend(ctx, false)
	if err != nil {
		return err
	}
	defer b.Close()

	if serveMigrate {
		if _, err := b.db.Migrate(ctx); err != nil {
			return err
		}
	}

	port := b.cfg.Port
	if servePort != 0 {
		port = servePort
	}

	srv := server.New(server.Config{
		Port:           port,
		MaxUploadBytes: b.cfg.MaxUploadBytes,
		FreeCredits:    b.cfg.Credits.FreePerUser,
		JWT:            jwtConfig,
		Password:       passwordConfig,
	}, b.db, b.analyses)

	return srv.Start(ctx)
}
