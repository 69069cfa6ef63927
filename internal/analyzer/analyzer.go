// Package analyzer scores a resume with a language model, anchored by the
// deterministic keyword and ATS heuristics.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/metrics"
	"github.com/jonathan/resume-optimizer/internal/prompts"
	"github.com/jonathan/resume-optimizer/internal/schemas"
	"github.com/jonathan/resume-optimizer/internal/scoring"
	"github.com/jonathan/resume-optimizer/internal/skills"
	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	promptFile = "analysis.json"

	// Temperature and MaxTokens are sent with every analysis request.
	Temperature = 0.3
	MaxTokens   = 4096
)

// Stage names reported through Params.OnProgress.
const (
	StageKeywords = "keywords"
	StageModel    = "model"
	StageMerge    = "merge"
)

// Params is the input to Analyze.
type Params struct {
	ResumeText     string
	JobDescription string
	// OnProgress, when set, is called as each stage starts.
	OnProgress func(stage string)
}

func (p Params) progress(stage string) {
	if p.OnProgress != nil {
		p.OnProgress(stage)
	}
}

// Analyzer runs resume analyses against a language model.
type Analyzer struct {
	client llm.Client
}

// New returns an Analyzer backed by client.
func New(client llm.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze scores a resume, optionally against a job description. Every
// error is wrapped as "failed to analyze resume".
func (a *Analyzer) Analyze(ctx context.Context, p Params) (*types.AnalysisResult, error) {
	result, err := a.analyze(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze resume: %w", err)
	}
	return result, nil
}

func (a *Analyzer) analyze(ctx context.Context, p Params) (*types.AnalysisResult, error) {
	resume := strings.TrimSpace(p.ResumeText)
	if resume == "" {
		return nil, &ValidationError{Field: "resume_text", Message: "resume text is required"}
	}
	jobDescription := strings.TrimSpace(p.JobDescription)
	hasJob := jobDescription != ""

	p.progress(StageKeywords)
	keywords := skills.Precompute(resume, jobDescription)
	log.Info().
		Int("matched", len(keywords.Matched)).
		Int("missing", len(keywords.Missing)).
		Bool("job_description", hasJob).
		Str("model", a.client.Model()).
		Msg("analyzing resume")

	system, user, err := buildPrompts(resume, jobDescription, keywords)
	if err != nil {
		return nil, err
	}

	p.progress(StageModel)
	var (
		resp *llm.Response
		ats  scoring.ATSReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ats = scoring.CalculateATSScore(resume)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		r, err := a.client.Generate(gctx, llm.Request{
			System:      system,
			User:        user,
			Temperature: Temperature,
			MaxTokens:   MaxTokens,
			JSON:        true,
		})
		metrics.ObserveLLMRequest(a.client.Model(), time.Since(start), err)
		if err != nil {
			return &APICallError{Message: "language model request failed", Cause: err}
		}
		resp = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.progress(StageMerge)
	out, err := decodeModelOutput(resp.Text)
	if err != nil {
		return nil, err
	}

	result := merge(out, keywords, ats, resume, hasJob)
	result.Model = resp.Model
	if result.Model == "" {
		result.Model = a.client.Model()
	}
	result.TokensUsed = resp.TotalTokens

	log.Info().
		Int("overall", result.OverallScore).
		Int("ats", result.ATSScore).
		Int("keyword", result.KeywordScore).
		Int("formatting", result.FormattingScore).
		Int("suggestions", len(result.Suggestions)).
		Int("tokens", result.TokensUsed).
		Msg("analysis complete")
	return result, nil
}

type promptData struct {
	ResumeText     string
	JobDescription string
	Matched        []string
	Missing        []string
	Total          int
}

func buildPrompts(resume, jobDescription string, keywords skills.KeywordComparison) (string, string, error) {
	system, err := prompts.Get(promptFile, "system")
	if err != nil {
		return "", "", err
	}

	key := "user-general"
	if jobDescription != "" {
		key = "user-with-job"
	}
	user, err := prompts.Render(promptFile, key, promptData{
		ResumeText:     resume,
		JobDescription: jobDescription,
		Matched:        keywords.Matched,
		Missing:        keywords.Missing,
		Total:          keywords.Total(),
	})
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

// modelOutput mirrors the JSON the model is asked for. Scores arrive as
// numbers that may carry fractions; ids may be numbers.
type modelOutput struct {
	OverallScore    float64           `json:"overallScore"`
	ATSScore        float64           `json:"atsScore"`
	KeywordScore    float64           `json:"keywordScore"`
	FormattingScore float64           `json:"formattingScore"`
	Suggestions     []modelSuggestion `json:"suggestions"`
	ATSIssues       []string          `json:"atsIssues"`
	ImprovedText    string            `json:"improvedText"`
}

type modelSuggestion struct {
	ID          any    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
}

func decodeModelOutput(text string) (*modelOutput, error) {
	text = llm.CleanJSONBlock(text)
	if !json.Valid([]byte(text)) {
		return nil, &ParseError{Message: "model response is not valid JSON"}
	}

	if err := schemas.ValidateAnalysis(text); err != nil {
		var verr *schemas.ValidationError
		if errors.As(err, &verr) && len(verr.Errors) > 0 {
			return nil, &ValidationError{Field: verr.Errors[0].Field, Message: verr.Errors[0].Message}
		}
		return nil, &ValidationError{Message: err.Error()}
	}

	var out modelOutput
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, &ParseError{Message: "failed to decode model response", Cause: err}
	}
	return &out, nil
}
