// Package textproc provides text normalization and stop-word keyword helpers
// shared by file ingestion and heuristic scoring.
package textproc

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// disallowedChars strips decorative glyphs and markup residue while keeping
	// punctuation that carries meaning in resumes (C++, C#, CI/CD, R&D, emails).
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()\-@+#/&]`)
	horizontalSpace = regexp.MustCompile(`[\t\f\v\x{00A0} ]+`)
	nonWord         = regexp.MustCompile(`\W+`)
)

// stopWords are excluded from keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "must": true, "can": true,
	"this": true, "that": true, "these": true, "those": true,
}

// CleanText normalizes extracted document text. Line breaks survive (runs of
// blank lines collapse to one break), horizontal whitespace collapses to a
// single space, and characters outside the allowed set are dropped.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = horizontalSpace.ReplaceAllString(content, " ")
	content = disallowedChars.ReplaceAllString(content, "")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}

	return strings.Join(cleaned, "\n")
}

// ExtractKeywords lowercases text, splits it on non-word runs and returns the
// distinct words longer than two characters that are not stop words, in order
// of first appearance.
func ExtractKeywords(text string) []string {
	words := nonWord.Split(strings.ToLower(text), -1)

	seen := make(map[string]bool, len(words))
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) <= 2 || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
	}
	return keywords
}

// CalculateKeywordMatch returns the rounded percentage of job-description
// keywords that also appear in the resume. It returns 0 when the job
// description yields no keywords.
func CalculateKeywordMatch(resumeText, jobDescription string) int {
	jobKeywords := ExtractKeywords(jobDescription)
	if len(jobKeywords) == 0 {
		return 0
	}

	resumeSet := keywordSet(resumeText)
	matched := 0
	for _, kw := range jobKeywords {
		if resumeSet[kw] {
			matched++
		}
	}

	return int(math.Round(float64(matched) / float64(len(jobKeywords)) * 100))
}

// FindMissingKeywords returns the job-description keywords absent from the resume.
func FindMissingKeywords(resumeText, jobDescription string) []string {
	resumeSet := keywordSet(resumeText)

	missing := []string{}
	for _, kw := range ExtractKeywords(jobDescription) {
		if !resumeSet[kw] {
			missing = append(missing, kw)
		}
	}
	return missing
}

func keywordSet(text string) map[string]bool {
	keywords := ExtractKeywords(text)
	set := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		set[kw] = true
	}
	return set
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with base-1024 units and at most two
// decimals, e.g. 1536 -> "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	i = min(i, len(sizeUnits)-1)

	value := float64(bytes) / math.Pow(1024, float64(i))
	value = math.Round(value*100) / 100

	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[i]
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
