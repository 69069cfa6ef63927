package skills

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// aliases maps lowercase spellings to the canonical keyword name.
var aliases = map[string]string{
	"golang":           "Go",
	"go lang":          "Go",
	"js":               "JavaScript",
	"javascript":       "JavaScript",
	"ts":               "TypeScript",
	"typescript":       "TypeScript",
	"k8s":              "Kubernetes",
	"kubernetes":       "Kubernetes",
	"postgres":         "PostgreSQL",
	"postgresql":       "PostgreSQL",
	"react.js":         "React",
	"reactjs":          "React",
	"vue.js":           "Vue",
	"vuejs":            "Vue",
	"node.js":          "Node.js",
	"nodejs":           "Node.js",
	"node":             "Node.js",
	"next.js":          "Next.js",
	"nextjs":           "Next.js",
	"ci/cd":            "CI/CD",
	"cicd":             "CI/CD",
	"ml":               "Machine Learning",
	"machine learning": "Machine Learning",
	"team work":        "Teamwork",
	"team-work":        "Teamwork",
	"problem solving":  "Problem-solving",
	"problem-solving":  "Problem-solving",
	"sklearn":          "Scikit-learn",
	"scikit-learn":     "Scikit-learn",
}

// NormalizeSkillName maps a keyword to its canonical spelling. Unknown
// all-lowercase single words are capitalized; anything else is returned
// trimmed with inner whitespace collapsed.
func NormalizeSkillName(name string) string {
	normalized := strings.Join(strings.Fields(name), " ")
	if normalized == "" {
		return ""
	}

	lower := strings.ToLower(normalized)
	if canonical, ok := aliases[lower]; ok {
		return canonical
	}

	if normalized == lower && !strings.Contains(normalized, " ") {
		r, size := utf8.DecodeRuneInString(normalized)
		return string(unicode.ToUpper(r)) + normalized[size:]
	}

	return normalized
}
