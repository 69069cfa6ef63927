package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLikelyResume(t *testing.T) {
	assert.True(t, IsLikelyResume("Work Experience\nEducation\nSkills"))
	assert.True(t, IsLikelyResume("CURRICULUM vitae, university degree"))
	assert.False(t, IsLikelyResume("Quarterly sales report with skills"))
	assert.False(t, IsLikelyResume(""))
}

func TestPDFQuality_Clean(t *testing.T) {
	text := strings.Repeat("Experience in education and skills at work. ", 20)

	q := PDFQuality(text)

	assert.Equal(t, 100, q.Score)
	assert.Empty(t, q.Issues)
	assert.Empty(t, q.Recommendations)
}

func TestPDFQuality_AllPenalties(t *testing.T) {
	q := PDFQuality(strings.Repeat("• ", 30))

	assert.Equal(t, 100-30-25-15-20, q.Score)
	assert.Equal(t, []string{
		"Very short content detected",
		"Poor text extraction quality detected",
		"Heavy formatting detected",
		"Content may not be a resume",
	}, q.Issues)
	assert.Len(t, q.Recommendations, 4)
}

func TestPDFQuality_Empty(t *testing.T) {
	q := PDFQuality("")
	assert.Equal(t, 100-30-20, q.Score)
}

func TestDOCXQuality(t *testing.T) {
	resumeBody := strings.Repeat("Experience education skills work history ", 30)

	tests := []struct {
		name     string
		doc      docxDocument
		expected int
		issues   []string
	}{
		{
			name:     "clean",
			doc:      docxDocument{Text: resumeBody, HasHeadings: true},
			expected: 100,
		},
		{
			name:     "short with images and tables",
			doc:      docxDocument{Text: "Experience education skills", HasImages: true, HasTables: true, HasLists: true},
			expected: 100 - 30 - 10 - 15,
			issues:   []string{"Very short content detected", "Images detected in document", "Tables detected in document"},
		},
		{
			name:     "no structure",
			doc:      docxDocument{Text: resumeBody},
			expected: 80,
			issues:   []string{"Content may not be a resume"},
		},
		{
			name:     "complex formatting",
			doc:      docxDocument{Text: resumeBody, HasLists: true, Warnings: 6},
			expected: 90,
			issues:   []string{"Document contains complex formatting"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := DOCXQuality(&tt.doc)
			assert.Equal(t, tt.expected, q.Score)
			if tt.issues == nil {
				assert.Empty(t, q.Issues)
			} else {
				assert.Equal(t, tt.issues, q.Issues)
			}
		})
	}
}

func TestWalkDocumentXML(t *testing.T) {
	content := `<w:document ` + wordNS + `><w:body>` +
		`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Experience</w:t></w:r></w:p>` +
		`<w:p><w:pPr><w:numPr/></w:pPr><w:r><w:t>Built</w:t><w:tab/><w:t>APIs</w:t><w:br/><w:t>daily</w:t></w:r></w:p>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>A</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
		`<w:p><w:r><w:drawing/></w:r></w:p>` +
		`</w:body></w:document>`

	doc, err := walkDocumentXML(content)
	assert.NoError(t, err)

	assert.Equal(t, "Experience\nBuilt\tAPIs\ndaily\nA\n\t\n", doc.Text)
	assert.Equal(t, 4, doc.Paragraphs)
	assert.True(t, doc.HasHeadings)
	assert.True(t, doc.HasLists)
	assert.True(t, doc.HasTables)
	assert.True(t, doc.HasImages)
}

func TestWalkDocumentXML_Invalid(t *testing.T) {
	_, err := walkDocumentXML("<w:document><w:body>")
	assert.ErrorContains(t, err, "invalid document XML")
}
