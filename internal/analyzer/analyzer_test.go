package analyzer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/types"
)

type fakeClient struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []llm.Request
}

func (f *fakeClient) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text, Model: "fake-model", TotalTokens: 321}, nil
}

func (f *fakeClient) Model() string { return "fake-model" }
func (f *fakeClient) Close() error  { return nil }

func sampleResume() string {
	var sb strings.Builder
	sb.WriteString("Jane Doe\njane@example.com\n(555) 123-4567\n\nExperience\n")
	for i := 0; i < 8; i++ {
		sb.WriteString("Built Go and Docker services on AWS for high traffic payment systems.\n")
	}
	sb.WriteString("\nEducation\nB.S. Computer Science\n\nSkills\nGo, Docker, AWS, PostgreSQL\n")
	return sb.String()
}

const fullResponse = `{
	"overallScore": 78.6,
	"atsScore": 85,
	"keywordScore": 10,
	"formattingScore": 70,
	"suggestions": [
		{"id": "add-k8s", "title": "Mention Kubernetes", "description": "The job asks for it", "priority": "HIGH", "category": "Keywords"},
		{"title": "Quantify impact", "description": "Add numbers", "priority": "urgent-ish", "category": "content"},
		{"id": 7, "title": "Use a single column", "priority": "low", "category": "Formatting"},
		{"title": "   ", "description": "dropped"}
	],
	"atsIssues": ["Resume too short", "Uses headers and footers"],
	"improvedText": "Jane Doe, improved"
}`

func TestAnalyze_WithJobDescription(t *testing.T) {
	client := &fakeClient{text: "```json\n" + fullResponse + "\n```"}
	var stages []string

	result, err := New(client).Analyze(context.Background(), Params{
		ResumeText:     sampleResume(),
		JobDescription: "Senior engineer with Go, Kubernetes and AWS",
		OnProgress:     func(stage string) { stages = append(stages, stage) },
	})
	require.NoError(t, err)

	assert.Equal(t, 79, result.OverallScore)
	assert.Equal(t, 85, result.ATSScore)
	assert.Equal(t, 70, result.FormattingScore)
	// keyword score comes from the precompute: Go and AWS of Go, Kubernetes, AWS
	assert.Equal(t, 67, result.KeywordScore)
	assert.ElementsMatch(t, []string{"Go", "AWS"}, result.MatchedKeywords)
	assert.Equal(t, []string{"Kubernetes"}, result.MissingKeywords)

	require.Len(t, result.Suggestions, 3)
	assert.Equal(t, types.Suggestion{
		ID: "add-k8s", Title: "Mention Kubernetes", Description: "The job asks for it",
		Priority: types.PriorityHigh, Category: types.CategoryKeywords,
	}, result.Suggestions[0])
	assert.Equal(t, "suggestion-2", result.Suggestions[1].ID)
	assert.Equal(t, types.PriorityMedium, result.Suggestions[1].Priority)
	assert.Equal(t, types.CategoryContent, result.Suggestions[1].Category)
	assert.Equal(t, "7", result.Suggestions[2].ID)

	// the sample resume passes every heuristic
	assert.Equal(t, []string{"Resume too short", "Uses headers and footers"}, result.ATSIssues)
	assert.Equal(t, "Jane Doe, improved", result.ImprovedText)
	assert.Equal(t, "fake-model", result.Model)
	assert.Equal(t, 321, result.TokensUsed)

	assert.Equal(t, []string{StageKeywords, StageModel, StageMerge}, stages)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.True(t, req.JSON)
	assert.Equal(t, Temperature, req.Temperature)
	assert.Equal(t, MaxTokens, req.MaxTokens)
	assert.Contains(t, req.System, "improvedText")
	assert.Contains(t, req.User, "JOB DESCRIPTION:")
	assert.Contains(t, req.User, "Missing from the resume: Kubernetes")
	assert.Contains(t, req.User, "2 matched out of 3 total")
}

func TestAnalyze_WithoutJobDescription(t *testing.T) {
	client := &fakeClient{text: `{"overallScore": 60, "keywordScore": 55, "atsIssues": ["resume too short"]}`}
	resume := "  Jane Doe\nDocker and Go engineer  "

	result, err := New(client).Analyze(context.Background(), Params{ResumeText: resume})
	require.NoError(t, err)

	assert.Equal(t, 60, result.OverallScore)
	assert.Equal(t, 55, result.KeywordScore)
	assert.Equal(t, 0, result.ATSScore)
	assert.Contains(t, result.MatchedKeywords, "Docker")
	assert.Empty(t, result.MissingKeywords)
	assert.NotNil(t, result.MissingKeywords)
	assert.NotNil(t, result.Suggestions)
	assert.Equal(t, "Jane Doe\nDocker and Go engineer", result.ImprovedText)
	assert.Equal(t, []string{
		"resume too short",
		"Missing standard sections",
		"Missing contact information",
	}, result.ATSIssues)

	assert.NotContains(t, client.requests[0].User, "JOB DESCRIPTION:")
	assert.Contains(t, client.requests[0].User, "SKILLS AND KEYWORDS FOUND:")
}

func TestAnalyze_ClampsScores(t *testing.T) {
	client := &fakeClient{text: `{"overallScore": 140, "atsScore": -5, "formattingScore": 99.5}`}

	result, err := New(client).Analyze(context.Background(), Params{ResumeText: sampleResume()})
	require.NoError(t, err)
	assert.Equal(t, 100, result.OverallScore)
	assert.Equal(t, 0, result.ATSScore)
	assert.Equal(t, 100, result.FormattingScore)
}

func TestAnalyze_Errors(t *testing.T) {
	boom := errors.New("rate limited")

	tests := []struct {
		name   string
		client *fakeClient
		resume string
		check  func(t *testing.T, err error)
	}{
		{"empty resume", &fakeClient{}, "   ", func(t *testing.T, err error) {
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "resume_text", verr.Field)
		}},
		{"api failure", &fakeClient{err: boom}, sampleResume(), func(t *testing.T, err error) {
			var apiErr *APICallError
			assert.ErrorAs(t, err, &apiErr)
			assert.ErrorIs(t, err, boom)
		}},
		{"not json", &fakeClient{text: "I cannot help with that"}, sampleResume(), func(t *testing.T, err error) {
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		}},
		{"wrong shape", &fakeClient{text: `{"overallScore": "great"}`}, sampleResume(), func(t *testing.T, err error) {
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.client).Analyze(context.Background(), Params{ResumeText: tt.resume})
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "failed to analyze resume: "))
			tt.check(t, err)
		})
	}
}

func TestAnalyze_EmptyResumeSkipsModel(t *testing.T) {
	client := &fakeClient{}
	_, err := New(client).Analyze(context.Background(), Params{ResumeText: ""})
	require.Error(t, err)
	assert.Empty(t, client.requests)
}

func TestAnalyze_APIErrorUnwraps(t *testing.T) {
	_, err := New(&fakeClient{err: llm.ErrEmptyResponse}).Analyze(context.Background(), Params{ResumeText: sampleResume()})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)

	var apiErr *APICallError
	assert.ErrorAs(t, err, &apiErr)
}

func TestMergeIssues(t *testing.T) {
	got := mergeIssues(
		[]string{" Uses tables ", "", "Missing contact information"},
		[]string{"missing contact information", "Resume too short"},
	)
	assert.Equal(t, []string{"Uses tables", "Missing contact information", "Resume too short"}, got)
	assert.NotNil(t, mergeIssues(nil, nil))
}

func TestSuggestionID(t *testing.T) {
	assert.Equal(t, "abc", suggestionID(" abc ", 1))
	assert.Equal(t, "suggestion-3", suggestionID("  ", 3))
	assert.Equal(t, "12", suggestionID(float64(12), 1))
	assert.Equal(t, "suggestion-1", suggestionID(true, 1))
}
