package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score [resume.txt]",
	Short: "Score plain resume text without a language model",
	Long: `Print the deterministic ATS and keyword score of plain resume text, read from
the given file or from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

var (
	scoreJob  string
	scoreJSON bool
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreJob, "job", "j", "", "Path to a job description text file")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	var (
		resume []byte
		err    error
	)
	if len(args) == 1 {
		resume, err = os.ReadFile(args[0])
	} else {
		resume, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}

	var job []byte
	if scoreJob != "" {
		if job, err = os.ReadFile(scoreJob); err != nil {
			return fmt.Errorf("failed to read job description: %w", err)
		}
	}

	return printSnapshot(cmd.OutOrStdout(), scoring.Heuristic(string(resume), string(job)), scoreJSON)
}
