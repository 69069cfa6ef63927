package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/analyzer"
	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/ingestion"
	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/observability"
	"github.com/jonathan/resume-optimizer/internal/scoring"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a resume file locally",
	Long: `Extract the text of a PDF or DOCX resume, score it against an optional job
description and print the suggestions. No database or account is involved.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values. --offline skips the language model and
prints the heuristic score only.`,
	RunE: runAnalyze,
}

var (
	analyzeConfigPath string
	analyzeFile       string
	analyzeJob        string
	analyzeJobURL     string
	analyzeOutput     string
	analyzeProvider   string
	analyzeModel      string
	analyzeAPIKey     string
	analyzeJSON       bool
	analyzeOffline    bool
	analyzeVerbose    bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Resume file (.pdf or .docx)")
	analyzeCmd.Flags().StringVarP(&analyzeJob, "job", "j", "", "Path to a job description text file (mutually exclusive with --job-url)")
	analyzeCmd.Flags().StringVar(&analyzeJobURL, "job-url", "", "URL to fetch the job description from (mutually exclusive with --job)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the improved resume text to this path")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "", "LLM provider: groq, openai or gemini (defaults to LLM_PROVIDER)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Model name (defaults to LLM_MODEL or the provider default)")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "API key (defaults to the provider's environment variable)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeOffline, "offline", false, "Heuristic scoring only, no model call")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Log each analysis stage")

	_ = analyzeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(analyzeCmd)
}

// analyzeFlags collects the explicit flags as a Config.
func analyzeFlags() config.Config {
	return config.Config{
		Job:      analyzeJob,
		JobURL:   analyzeJobURL,
		Output:   analyzeOutput,
		Provider: analyzeProvider,
		Model:    analyzeModel,
		APIKey:   analyzeAPIKey,
		JSON:     analyzeJSON,
		Offline:  analyzeOffline,
		Verbose:  analyzeVerbose,
	}
}

// resolveConfig merges flags over the optional config file. A boolean is on
// when either source sets it.
func resolveConfig(path string, flags config.Config) (config.Config, error) {
	if path == "" {
		return flags, flags.Validate()
	}

	fileCfg, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	// a flag for one job source replaces the other from the file
	if flags.Job != "" || flags.JobURL != "" {
		fileCfg.Job, fileCfg.JobURL = "", ""
	}

	merged := flags.MergeWithDefaults(*fileCfg)
	merged.JSON = flags.JSON || fileCfg.JSON
	merged.Offline = flags.Offline || fileCfg.Offline
	merged.Verbose = flags.Verbose || fileCfg.Verbose

	if err := merged.Validate(); err != nil {
		return config.Config{}, err
	}
	return merged, nil
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := resolveConfig(analyzeConfigPath, analyzeFlags())
	if err != nil {
		return err
	}

	resume, err := readResume(ctx, analyzeFile)
	if err != nil {
		return err
	}
	job, err := readJobDescription(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.Offline {
		return printSnapshot(out, scoring.Heuristic(resume, job), cfg.JSON)
	}

	llmCfg, err := llmConfig(cfg)
	if err != nil {
		return err
	}
	client, err := llm.NewClient(ctx, llmCfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	result, err := analyzer.New(client).Analyze(ctx, analyzer.Params{
		ResumeText:     resume,
		JobDescription: job,
		OnProgress: func(stage string) {
			if cfg.Verbose {
				log.Info().Str("stage", stage).Msg("analysis stage")
			}
		},
	})
	if err != nil {
		return err
	}

	if cfg.Output != "" {
		if err := writeImproved(cfg.Output, result.ImprovedText); err != nil {
			return err
		}
		log.Info().Str("path", cfg.Output).Msg("improved resume written")
	}

	if cfg.JSON {
		return writeJSON(out, result)
	}
	observability.NewPrinter(out).PrintAnalysis(result)
	return nil
}

// readResume extracts the text of a resume file. The type is taken from the
// extension and checked against the content.
func readResume(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read resume: %w", err)
	}
	parsed, err := ingestion.ParseFile(ctx, filepath.Base(path), "", data)
	if err != nil {
		return "", err
	}
	log.Debug().
		Str("file", parsed.OriginalFilename).
		Str("type", string(parsed.FileType)).
		Int("chars", len(parsed.Text)).
		Msg("resume parsed")
	return parsed.Text, nil
}

// readJobDescription loads the job description from a file or URL. Neither
// set means no job description.
func readJobDescription(ctx context.Context, cfg config.Config) (string, error) {
	switch {
	case cfg.Job != "":
		data, err := os.ReadFile(cfg.Job)
		if err != nil {
			return "", fmt.Errorf("failed to read job description: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case cfg.JobURL != "":
		return ingestion.FetchJobDescription(ctx, cfg.JobURL)
	default:
		return "", nil
	}
}

// llmConfig starts from the environment and applies the CLI overrides.
// Switching provider drops the environment's key and model for the old one.
func llmConfig(cfg config.Config) (*llm.Config, error) {
	lc, err := llm.ConfigFromEnv()
	if err != nil {
		if cfg.APIKey == "" && cfg.Provider == "" {
			return nil, err
		}
		lc = llm.DefaultConfig()
	}

	if cfg.Provider != "" && llm.Provider(cfg.Provider) != lc.Provider {
		lc.Provider = llm.Provider(cfg.Provider)
		lc.APIKey = ""
		lc.Model = ""
		lc.BaseURL = ""
		if lc.Provider == llm.ProviderGroq {
			lc.BaseURL = llm.GroqBaseURL
		}
	}
	if cfg.APIKey != "" {
		lc.APIKey = cfg.APIKey
	}
	if cfg.Model != "" {
		lc.Model = cfg.Model
	}
	return lc, nil
}

func writeImproved(path, text string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write improved resume: %w", err)
	}
	return nil
}

func printSnapshot(out io.Writer, snap scoring.Snapshot, asJSON bool) error {
	if asJSON {
		return writeJSON(out, snap)
	}
	observability.NewPrinter(out).PrintSnapshot(snap)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
