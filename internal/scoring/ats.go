package scoring

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ATS penalties, subtracted from a starting score of 100.
const (
	PenaltyMissingSections = 15
	PenaltySpecialChars    = 10
	PenaltyTables          = 20
	PenaltyTooShort        = 25
	PenaltyTooLong         = 15
	PenaltyNoContact       = 20

	MinResumeLength = 500
	MaxResumeLength = 8000
)

var (
	standardSections = []string{"experience", "education", "skills", "summary", "objective"}
	specialChars     = regexp.MustCompile(`[◆●▪◇○▫►▷⊳⊲]`)
	emailPattern     = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern     = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
)

// ATSIssue is a single heuristic that fired against a resume.
type ATSIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Penalty int    `json:"penalty"`
}

// ATSReport is the outcome of CalculateATSScore.
type ATSReport struct {
	Score  int        `json:"score"`
	Issues []ATSIssue `json:"issues"`
}

// Messages returns the issue messages in order.
func (r ATSReport) Messages() []string {
	messages := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		messages[i] = issue.Message
	}
	return messages
}

// CalculateATSScore scores how well plain resume text survives an applicant
// tracking system parse. Every failing check subtracts its penalty from 100.
func CalculateATSScore(text string) ATSReport {
	checks := []struct {
		failed bool
		issue  ATSIssue
	}{
		{!HasStandardSections(text), ATSIssue{"missing_sections", "Missing standard sections", PenaltyMissingSections}},
		{HasSpecialCharacters(text), ATSIssue{"special_characters", "Special characters detected", PenaltySpecialChars}},
		{HasTables(text), ATSIssue{"tables", "Tables may not parse correctly", PenaltyTables}},
		{utf8.RuneCountInString(text) < MinResumeLength, ATSIssue{"too_short", "Resume too short", PenaltyTooShort}},
		{utf8.RuneCountInString(text) > MaxResumeLength, ATSIssue{"too_long", "Resume too long", PenaltyTooLong}},
		{!HasContactInfo(text), ATSIssue{"missing_contact", "Missing contact information", PenaltyNoContact}},
	}

	report := ATSReport{Score: 100, Issues: []ATSIssue{}}
	for _, c := range checks {
		if c.failed {
			report.Score -= c.issue.Penalty
			report.Issues = append(report.Issues, c.issue)
		}
	}
	report.Score = Clamp(report.Score)
	return report
}

// HasStandardSections reports whether any conventional section name appears.
func HasStandardSections(text string) bool {
	lower := strings.ToLower(text)
	for _, section := range standardSections {
		if strings.Contains(lower, section) {
			return true
		}
	}
	return false
}

// HasSpecialCharacters reports decorative glyphs that parsers tend to mangle.
func HasSpecialCharacters(text string) bool {
	return specialChars.MatchString(text)
}

// HasTables reports lines that look like table rows: more than two tabs or
// more than two pipe characters.
func HasTables(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.Count(line, "\t") > 2 || strings.Count(line, "|") > 2 {
			return true
		}
	}
	return false
}

// HasContactInfo reports whether an email address or phone number is present.
func HasContactInfo(text string) bool {
	return emailPattern.MatchString(text) || phonePattern.MatchString(text)
}
