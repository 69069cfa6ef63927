// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-optimizer/internal/scoring"
	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer writes human-readable analysis reports.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", fitLine(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// fitLine truncates or pads line to exactly width runes.
func fitLine(line string, width int) string {
	n := utf8.RuneCountInString(line)
	if n > width {
		runes := []rune(line)
		return string(runes[:width-3]) + "..."
	}
	return line + strings.Repeat(" ", width-n)
}

func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", heading)
	count := min(len(items), maxItemsToShow)
	for _, item := range items[:count] {
		fmt.Fprintf(sb, "  • %s\n", item)
	}
	if len(items) > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-maxItemsToShow)
	}
	sb.WriteString("\n")
}

// PrintSnapshot outputs a heuristic score.
func (p *Printer) PrintSnapshot(snap scoring.Snapshot) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Overall:  %d/100 (%s)\n", snap.OverallScore, snap.Description)
	fmt.Fprintf(&sb, "ATS:      %d/100\n", snap.ATS.Score)
	fmt.Fprintf(&sb, "Keywords: %d/100\n", snap.KeywordScore)
	if snap.WordMatchPercent > 0 {
		fmt.Fprintf(&sb, "Words:    %d%% of the job description\n", snap.WordMatchPercent)
	}
	sb.WriteString("\n")

	writeList(&sb, "Matched keywords", snap.Keywords.Matched)
	writeList(&sb, "Missing keywords", snap.Keywords.Missing)
	writeList(&sb, "Missing words", snap.MissingWords)
	writeList(&sb, "ATS issues", snap.ATS.Messages())

	p.printBox("HEURISTIC SCORE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAnalysis outputs the scores, keyword gaps and suggestions of a model
// analysis.
func (p *Printer) PrintAnalysis(result *types.AnalysisResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall:    %d/100 (%s)\n", result.OverallScore, scoring.ScoreDescription(result.OverallScore))
	fmt.Fprintf(&sb, "ATS:        %d/100\n", result.ATSScore)
	fmt.Fprintf(&sb, "Keywords:   %d/100\n", result.KeywordScore)
	fmt.Fprintf(&sb, "Formatting: %d/100\n", result.FormattingScore)
	if result.Model != "" {
		fmt.Fprintf(&sb, "Model:      %s (%d tokens)\n", result.Model, result.TokensUsed)
	}
	sb.WriteString("\n")

	writeList(&sb, "Matched keywords", result.MatchedKeywords)
	writeList(&sb, "Missing keywords", result.MissingKeywords)
	writeList(&sb, "ATS issues", result.ATSIssues)

	p.printBox("RESUME ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
	p.PrintSuggestions(result.Suggestions)
}

// PrintSuggestions outputs suggestions grouped by priority, high first.
func (p *Printer) PrintSuggestions(suggestions []types.Suggestion) {
	if len(suggestions) == 0 {
		p.printBox("SUGGESTIONS", "No suggestions")
		return
	}

	var sb strings.Builder
	for _, priority := range []types.Priority{types.PriorityHigh, types.PriorityMedium, types.PriorityLow} {
		for _, s := range suggestions {
			if s.Priority != priority {
				continue
			}
			fmt.Fprintf(&sb, "[%s] %s (%s)\n", strings.ToUpper(string(s.Priority)), s.Title, s.Category)
			if s.Description != "" {
				fmt.Fprintf(&sb, "    %s\n", s.Description)
			}
		}
	}

	p.printBox(fmt.Sprintf("SUGGESTIONS (%d)", len(suggestions)), strings.TrimSuffix(sb.String(), "\n"))
}
