// Package skills extracts technical and soft-skill keywords from resumes and
// job descriptions and compares the two sets.
package skills

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// term is a canonical keyword and the case-insensitive pattern that finds it.
type term struct {
	name    string
	pattern *regexp.Regexp
}

func newTerm(name, pattern string) term {
	return term{name: name, pattern: regexp.MustCompile(`(?i)` + pattern)}
}

func literal(name string) term {
	return newTerm(name, regexp.QuoteMeta(name))
}

// families groups the recognized keywords. Order matters: keywords are
// reported family by family, and in order of appearance within a family.
var families = [][]term{
	// languages
	{
		literal("JavaScript"), literal("TypeScript"), literal("Python"), literal("Java"),
		literal("C++"), literal("C#"), literal("Ruby"), literal("PHP"), newTerm("Go", `Golang|Go`),
		literal("Rust"), literal("Swift"), literal("Kotlin"), literal("Scala"),
	},
	// frameworks
	{
		literal("React"), literal("Angular"), literal("Vue"), literal("Next.js"), literal("Django"),
		literal("Flask"), literal("Express"), newTerm("Node.js", `Node\.?js`), literal("Spring"),
		literal("Laravel"), literal("Rails"),
	},
	// databases
	{
		newTerm("PostgreSQL", `PostgreSQL|Postgres`), literal("MySQL"), literal("MongoDB"), literal("Redis"),
		literal("DynamoDB"), literal("Cassandra"), literal("Oracle"), newTerm("SQL Server", `SQL\s+Server`),
	},
	// cloud and delivery
	{
		literal("AWS"), literal("Azure"), literal("GCP"), literal("Docker"), newTerm("Kubernetes", `Kubernetes|K8s`),
		literal("Jenkins"), literal("GitLab"), literal("CircleCI"), literal("Terraform"),
	},
	// tools and practices
	{
		literal("Git"), literal("Agile"), literal("Scrum"), literal("CI/CD"), literal("REST"),
		literal("GraphQL"), literal("Microservices"), literal("API"), literal("TDD"), literal("Linux"),
	},
	// data and machine learning
	{
		literal("TensorFlow"), literal("PyTorch"), literal("Scikit-learn"),
		newTerm("Machine Learning", `Machine\s+Learning`), newTerm("Deep Learning", `Deep\s+Learning`),
		literal("NLP"), newTerm("Computer Vision", `Computer\s+Vision`),
	},
	// soft skills
	{
		literal("Leadership"), literal("Management"), literal("Communication"),
		newTerm("Problem-solving", `Problem[- ]solving`), newTerm("Teamwork", `Team[- ]?work`),
		newTerm("Project Management", `Project\s+Management`),
	},
}

// capitalizedPhrase finds runs of two or more Capitalized words on one line.
var capitalizedPhrase = regexp.MustCompile(`\b[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+\b`)

const maxPhraseWords = 3

// ExtractKeywords returns the recognized keywords in text: technical and
// soft-skill terms (by canonical name) followed by capitalized multi-word
// phrases of up to three words. Duplicates are removed case-insensitively;
// the first occurrence wins.
func ExtractKeywords(text string) []string {
	var keywords []string
	seen := make(map[string]bool)

	add := func(kw string) {
		key := strings.ToLower(kw)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		keywords = append(keywords, kw)
	}

	for _, family := range families {
		for _, name := range findFamily(text, family) {
			add(name)
		}
	}

	for _, phrase := range capitalizedPhrase.FindAllString(text, -1) {
		if len(strings.Fields(phrase)) <= maxPhraseWords {
			add(NormalizeSkillName(phrase))
		}
	}

	if keywords == nil {
		return []string{}
	}
	return keywords
}

type hit struct {
	pos  int
	name string
}

// findFamily returns the names of every term in family present in text,
// ordered by first position.
func findFamily(text string, family []term) []string {
	var hits []hit
	for _, t := range family {
		if pos := firstBoundedMatch(text, t.pattern); pos >= 0 {
			hits = append(hits, hit{pos: pos, name: t.name})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.name
	}
	return names
}

// firstBoundedMatch returns the offset of the first match of re that is not
// embedded in a longer word, or -1. Symbols such as "+" and "#" count as word
// characters on the right so that "C" never matches inside "C++".
func firstBoundedMatch(text string, re *regexp.Regexp) int {
	start := 0
	for start < len(text) {
		loc := re.FindStringIndex(text[start:])
		if loc == nil {
			return -1
		}
		begin, end := start+loc[0], start+loc[1]
		if begin == end {
			return -1
		}
		if boundaryBefore(text, begin) && boundaryAfter(text, end) {
			return begin
		}
		start = begin + 1
	}
	return -1
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r) && r != '+' && r != '#'
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// KeywordComparison splits job-description keywords by presence in a resume.
type KeywordComparison struct {
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
}

// Total is the number of keywords compared.
func (c KeywordComparison) Total() int {
	return len(c.Matched) + len(c.Missing)
}

// Score returns the rounded matched/total percentage. ok is false when no
// keywords were compared.
func (c KeywordComparison) Score() (score int, ok bool) {
	total := c.Total()
	if total == 0 {
		return 0, false
	}
	return int(math.Round(float64(len(c.Matched)) / float64(total) * 100)), true
}

// CompareKeywords partitions jobKeywords into those present in
// resumeKeywords (case-insensitive) and those absent.
func CompareKeywords(resumeKeywords, jobKeywords []string) KeywordComparison {
	resumeSet := make(map[string]bool, len(resumeKeywords))
	for _, kw := range resumeKeywords {
		resumeSet[strings.ToLower(kw)] = true
	}

	result := KeywordComparison{Matched: []string{}, Missing: []string{}}
	for _, kw := range jobKeywords {
		if resumeSet[strings.ToLower(kw)] {
			result.Matched = append(result.Matched, kw)
		} else {
			result.Missing = append(result.Missing, kw)
		}
	}
	return result
}

// Precompute derives the keyword comparison used to ground an analysis.
// With a job description, job keywords are split by presence among the
// resume keywords. Without one every resume keyword is reported as matched.
func Precompute(resumeText, jobDescription string) KeywordComparison {
	resumeKeywords := ExtractKeywords(resumeText)

	if strings.TrimSpace(jobDescription) == "" {
		return KeywordComparison{Matched: resumeKeywords, Missing: []string{}}
	}
	return CompareKeywords(resumeKeywords, ExtractKeywords(jobDescription))
}
