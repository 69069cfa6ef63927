package ingestion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/textproc"
)

// TextFetcher downloads a page and returns its main text.
type TextFetcher interface {
	Text(ctx context.Context, url string) (string, error)
}

// FetchJobDescription downloads a job posting and returns its cleaned text.
func FetchJobDescription(ctx context.Context, url string) (string, error) {
	return FetchJobDescriptionWith(ctx, fetch.NewClient(fetch.Options{}), url)
}

// FetchJobDescriptionWith is FetchJobDescription with a caller supplied fetcher.
func FetchJobDescriptionWith(ctx context.Context, fetcher TextFetcher, url string) (string, error) {
	text, err := fetcher.Text(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch job description: %w", err)
	}

	cleaned := textproc.CleanText(text)
	log.Debug().
		Str("url", url).
		Str("platform", string(fetch.DetectPlatform(url))).
		Int("chars", len(cleaned)).
		Msg("fetched job description")
	return cleaned, nil
}
