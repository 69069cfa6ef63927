package ingestion

import (
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-optimizer/internal/textproc"
)

var resumeWords = []string{
	"experience", "education", "skills", "resume", "cv", "curriculum",
	"employment", "work", "job", "career", "objective", "summary",
	"qualification", "achievement", "university", "college", "degree",
	"certification",
}

// minResumeWords is how many resumeWords must appear for IsLikelyResume.
const minResumeWords = 3

// IsLikelyResume reports whether text mentions enough resume vocabulary.
func IsLikelyResume(text string) bool {
	lower := strings.ToLower(text)
	found := 0
	for _, w := range resumeWords {
		if strings.Contains(lower, w) {
			found++
			if found >= minResumeWords {
				return true
			}
		}
	}
	return false
}

// PDFQuality scores text extracted from a PDF.
func PDFQuality(text string) Quality {
	q := newQuality()
	length := utf8.RuneCountInString(text)

	if length < 500 {
		q.penalize(30, "Very short content detected", "Ensure your resume has sufficient content")
	}
	if length > 0 && float64(countASCIIAlnum(text))/float64(length) < 0.7 {
		q.penalize(25, "Poor text extraction quality detected", "Consider uploading a text-based PDF instead of a scanned image")
	}
	if countBulletGlyphs(text) > 20 {
		q.penalize(15, "Heavy formatting detected", "Simplify formatting for better ATS compatibility")
	}
	if !IsLikelyResume(text) {
		q.penalize(20, "Content may not be a resume", "Ensure the uploaded file is actually a resume")
	}

	q.Score = max(0, q.Score)
	return q
}

// DOCXQuality scores a walked Word document.
func DOCXQuality(doc *docxDocument) Quality {
	q := newQuality()

	if textproc.WordCount(doc.Text) < 100 {
		q.penalize(30, "Very short content detected", "Ensure your resume has sufficient content (aim for 200+ words)")
	}
	if doc.HasImages {
		q.penalize(10, "Images detected in document", "Remove images for better ATS compatibility")
	}
	if doc.HasTables {
		q.penalize(15, "Tables detected in document", "Convert tables to simple lists for better ATS parsing")
	}
	if !IsLikelyResume(doc.Text) || !(doc.HasHeadings || doc.HasLists) {
		q.penalize(20, "Content may not be a resume", "Ensure the uploaded file is actually a resume")
	}
	if doc.Warnings > 5 {
		q.penalize(10, "Document contains complex formatting", "Simplify formatting for better compatibility")
	}

	q.Score = max(0, q.Score)
	return q
}

func countASCIIAlnum(text string) int {
	n := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			n++
		}
	}
	return n
}

func countBulletGlyphs(text string) int {
	n := 0
	for _, r := range text {
		if strings.ContainsRune("•◆●▪◇○▫►▷", r) {
			n++
		}
	}
	return n
}
