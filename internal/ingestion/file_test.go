package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name         string
		filename     string
		declaredType string
		size         int64
		expected     FileType
		errContains  string
	}{
		{name: "pdf by type", filename: "resume", declaredType: MIMETypePDF, size: 10, expected: FileTypePDF},
		{name: "pdf by extension", filename: "Resume.PDF", declaredType: "application/octet-stream", size: 10, expected: FileTypePDF},
		{name: "docx by type with params", filename: "cv", declaredType: MIMETypeDOCX + "; charset=binary", size: 10, expected: FileTypeDOCX},
		{name: "docx by extension", filename: "cv.docx", size: 10, expected: FileTypeDOCX},
		{name: "legacy doc", filename: "cv.doc", size: 10, errContains: "Legacy .doc"},
		{name: "legacy doc by type", filename: "cv", declaredType: MIMETypeDOC, size: 10, errContains: "Legacy .doc"},
		{name: "unsupported", filename: "cv.txt", declaredType: "text/plain", size: 10, errContains: "Unsupported file type"},
		{name: "empty pdf", filename: "cv.pdf", size: 0, errContains: "PDF file cannot be empty"},
		{name: "empty docx", filename: "cv.docx", size: 0, errContains: "Word document cannot be empty"},
		{name: "too large", filename: "cv.pdf", size: DefaultMaxFileSize + 1, errContains: "smaller than 5 MB"},
		{name: "exactly max", filename: "cv.pdf", size: DefaultMaxFileSize, expected: FileTypePDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, err := ValidateFile(tt.filename, tt.declaredType, tt.size)
			if tt.errContains != "" {
				var validationErr *FileValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ft)
		})
	}
}

func TestParser_CustomLimit(t *testing.T) {
	p := NewParser(1024)
	_, err := p.ValidateFile("cv.pdf", "", 2048)
	assert.ErrorContains(t, err, "smaller than 1 KB")

	assert.Equal(t, DefaultMaxFileSize, NewParser(0).MaxFileSize)
}

func TestParseFile_RejectsMismatchedContent(t *testing.T) {
	_, err := ParseFile(context.Background(), "resume.pdf", MIMETypePDF, []byte("just some plain text pretending to be a pdf"))

	var validationErr *FileValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "not a valid PDF")
}

func TestParseFile_CorruptPDF(t *testing.T) {
	_, err := ParseFile(context.Background(), "resume.pdf", MIMETypePDF, []byte("%PDF-1.4\nthis is not really a pdf body\n"))

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, FileTypePDF, extractionErr.FileType)
	assert.Contains(t, err.Error(), "failed to parse PDF file")
}

func TestParseFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseFile(ctx, "resume.docx", MIMETypeDOCX, buildDocx(t, sampleDocumentXML))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFile_DOCX(t *testing.T) {
	data := buildDocx(t, sampleDocumentXML)

	parsed, err := ParseFile(context.Background(), "jane.docx", MIMETypeDOCX, data)
	require.NoError(t, err)

	assert.Equal(t, FileTypeDOCX, parsed.FileType)
	assert.Equal(t, "jane.docx", parsed.OriginalFilename)
	assert.Equal(t, int64(len(data)), parsed.FileSize)
	assert.NotEmpty(t, parsed.FileSizeFormatted)
	assert.True(t, strings.HasPrefix(parsed.Text, "Jane Doe\nExperience\n"))
	assert.Contains(t, parsed.Text, "Built payment APIs in Go")

	assert.True(t, parsed.Metadata.HasHeadings)
	assert.True(t, parsed.Metadata.HasLists)
	assert.False(t, parsed.Metadata.HasTables)
	assert.Len(t, parsed.Metadata.Hash, 64)
	assert.Positive(t, parsed.Metadata.WordCount)
	assert.Equal(t, 100, parsed.Quality.Score)
	assert.Empty(t, parsed.Quality.Issues)
}

func TestParseFile_DOCXTooLittleText(t *testing.T) {
	xml := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Hi</w:t></w:r></w:p></w:body></w:document>`

	_, err := ParseFile(context.Background(), "short.docx", "", buildDocx(t, xml))

	var validationErr *FileValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "Could not extract enough text")
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

var sampleDocumentXML = func() string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<w:document ` + wordNS + `><w:body>`)
	sb.WriteString(`<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Jane Doe</w:t></w:r></w:p>`)
	sb.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Experience</w:t></w:r></w:p>`)
	for i := 0; i < 12; i++ {
		sb.WriteString(`<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr>`)
		sb.WriteString(`<w:r><w:t xml:space="preserve">Built payment APIs in Go for a career </w:t></w:r>`)
		sb.WriteString(`<w:r><w:t>focused job with measurable achievement.</w:t></w:r></w:p>`)
	}
	sb.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Education</w:t></w:r></w:p>`)
	sb.WriteString(`<w:p><w:r><w:t>B.S. Computer Science, State University</w:t></w:r></w:p>`)
	sb.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Skills</w:t></w:r></w:p>`)
	sb.WriteString(`<w:p><w:r><w:t>Go, PostgreSQL, Kubernetes</w:t></w:r></w:p>`)
	sb.WriteString(`</w:body></w:document>`)
	return sb.String()
}()

// buildDocx packs documentXML into the smallest archive the docx reader accepts.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	files := []struct{ name, body string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`},
		{"word/document.xml", documentXML},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, MIMETypePDF, ContentTypeFor("cv.pdf", nil))
	assert.Equal(t, MIMETypeDOCX, ContentTypeFor("CV.DOCX", nil))
	assert.Equal(t, "application/pdf", ContentTypeFor("cv", []byte("%PDF-1.4\n%rest")))
	assert.True(t, strings.HasPrefix(ContentTypeFor("notes", []byte("plain words")), "text/plain"))
}
