// Package ingestion turns uploaded resume files into clean text and reports
// how well the extraction went.
package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/jonathan/resume-optimizer/internal/textproc"
)

// FileType is a supported upload format.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
)

// Content types recognised on upload.
const (
	MIMETypePDF  = "application/pdf"
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypeDOC  = "application/msword"
	mimeTypeZip  = "application/zip"
)

const (
	// DefaultMaxFileSize is the upload limit when none is configured.
	DefaultMaxFileSize int64 = 5 << 20
	// MinTextLength is the shortest extracted text accepted as a resume.
	MinTextLength = 100
)

// FileValidationError reports an upload rejected before or during parsing.
type FileValidationError struct {
	Message string
}

func (e *FileValidationError) Error() string {
	return e.Message
}

// ExtractionError reports a file that passed validation but could not be read.
type ExtractionError struct {
	FileType FileType
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to parse %s file: %v", strings.ToUpper(string(e.FileType)), e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Quality summarises how trustworthy the extracted text is.
type Quality struct {
	Score           int      `json:"score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

func newQuality() Quality {
	return Quality{Score: 100, Issues: []string{}, Recommendations: []string{}}
}

func (q *Quality) penalize(points int, issue, recommendation string) {
	q.Score -= points
	q.Issues = append(q.Issues, issue)
	q.Recommendations = append(q.Recommendations, recommendation)
}

// ParsedFile is the outcome of ParseFile.
type ParsedFile struct {
	Text              string   `json:"text"`
	FileType          FileType `json:"file_type"`
	OriginalFilename  string   `json:"original_filename"`
	FileSize          int64    `json:"file_size"`
	FileSizeFormatted string   `json:"file_size_formatted"`
	Quality           Quality  `json:"quality"`
	Metadata          Metadata `json:"metadata"`
}

// Parser validates and parses uploads against a size limit.
type Parser struct {
	MaxFileSize int64
}

// NewParser returns a Parser. A non-positive maxFileSize selects the default.
func NewParser(maxFileSize int64) *Parser {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Parser{MaxFileSize: maxFileSize}
}

var defaultParser = NewParser(DefaultMaxFileSize)

// ValidateFile checks an upload with the default size limit.
func ValidateFile(name, declaredType string, size int64) (FileType, error) {
	return defaultParser.ValidateFile(name, declaredType, size)
}

// ParseFile parses an upload with the default size limit.
func ParseFile(ctx context.Context, name, declaredType string, data []byte) (*ParsedFile, error) {
	return defaultParser.ParseFile(ctx, name, declaredType, data)
}

// ValidateFile resolves the file type from the declared content type or the
// extension and checks the size. Legacy .doc files are rejected.
func (p *Parser) ValidateFile(name, declaredType string, size int64) (FileType, error) {
	ext := strings.ToLower(filepath.Ext(name))
	declaredType = strings.ToLower(strings.TrimSpace(strings.Split(declaredType, ";")[0]))

	var ft FileType
	switch {
	case declaredType == MIMETypePDF || ext == ".pdf":
		ft = FileTypePDF
	case declaredType == MIMETypeDOCX || ext == ".docx":
		ft = FileTypeDOCX
	case declaredType == MIMETypeDOC || ext == ".doc":
		return "", &FileValidationError{Message: "Legacy .doc files are not supported. Please save the document as .docx or PDF"}
	default:
		return "", &FileValidationError{Message: "Unsupported file type. Please upload a PDF or Word document (.pdf, .docx)"}
	}

	label := "PDF file"
	if ft == FileTypeDOCX {
		label = "Word document"
	}
	if size <= 0 {
		return "", &FileValidationError{Message: label + " cannot be empty"}
	}
	if size > p.MaxFileSize {
		return "", &FileValidationError{Message: fmt.Sprintf("%s must be smaller than %s", label, textproc.FormatFileSize(p.MaxFileSize))}
	}
	return ft, nil
}

// ParseFile validates the upload, confirms its content matches the declared
// type, extracts and cleans the text and scores the extraction.
func (p *Parser) ParseFile(ctx context.Context, name, declaredType string, data []byte) (*ParsedFile, error) {
	ft, err := p.ValidateFile(name, declaredType, int64(len(data)))
	if err != nil {
		return nil, err
	}
	if err := sniff(ft, data); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		text    string
		quality Quality
		meta    Metadata
	)
	switch ft {
	case FileTypePDF:
		doc, err := extractPDF(ctx, data)
		if err != nil {
			return nil, &ExtractionError{FileType: ft, Cause: err}
		}
		text = textproc.CleanText(doc.Text)
		quality = PDFQuality(text)
		meta = doc.metadata()
	case FileTypeDOCX:
		doc, err := extractDOCX(data)
		if err != nil {
			return nil, &ExtractionError{FileType: ft, Cause: err}
		}
		text = textproc.CleanText(doc.Text)
		doc.Text = text
		quality = DOCXQuality(doc)
		meta = doc.metadata()
	}

	if len(strings.TrimSpace(text)) < MinTextLength {
		return nil, &FileValidationError{Message: "Could not extract enough text from the file. Please upload a text-based resume"}
	}

	meta.stamp(text)
	meta.WordCount = textproc.WordCount(text)
	meta.CharacterCount = len(text)

	log.Debug().
		Str("file", name).
		Str("type", string(ft)).
		Int("chars", len(text)).
		Int("quality", quality.Score).
		Msg("parsed upload")

	return &ParsedFile{
		Text:              text,
		FileType:          ft,
		OriginalFilename:  name,
		FileSize:          int64(len(data)),
		FileSizeFormatted: textproc.FormatFileSize(int64(len(data))),
		Quality:           quality,
		Metadata:          meta,
	}, nil
}

// ContentTypeFor returns the content type to serve a stored upload with,
// preferring the extension and falling back to the sniffed type.
func ContentTypeFor(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MIMETypePDF
	case ".docx":
		return MIMETypeDOCX
	}
	return mimetype.Detect(data).String()
}

// sniff rejects content that does not match the resolved type. DOCX files
// are zip archives and may be reported as such.
func sniff(ft FileType, data []byte) error {
	detected := mimetype.Detect(data)
	switch ft {
	case FileTypePDF:
		if !detected.Is(MIMETypePDF) {
			return &FileValidationError{Message: "File content is not a valid PDF"}
		}
	case FileTypeDOCX:
		if !detected.Is(MIMETypeDOCX) && !detected.Is(mimeTypeZip) {
			return &FileValidationError{Message: "File content is not a valid Word document"}
		}
	}
	return nil
}
