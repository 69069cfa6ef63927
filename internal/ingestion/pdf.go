package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

type pdfDocument struct {
	Text     string
	Pages    int
	Title    string
	Author   string
	Creator  string
	Producer string
}

func (d *pdfDocument) metadata() Metadata {
	return Metadata{
		Pages:    d.Pages,
		Title:    d.Title,
		Author:   d.Author,
		Creator:  d.Creator,
		Producer: d.Producer,
	}
}

// extractPDF reads the plain text of every page. The library panics on some
// malformed inputs, so panics are turned into errors.
func extractPDF(ctx context.Context, data []byte) (doc *pdfDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("the file may be corrupted or password-protected: %w", err)
	}

	doc = &pdfDocument{Pages: reader.NumPage()}
	info := reader.Trailer().Key("Info")
	doc.Title = info.Key("Title").Text()
	doc.Author = info.Key("Author").Text()
	doc.Creator = info.Key("Creator").Text()
	doc.Producer = info.Key("Producer").Text()

	var sb strings.Builder
	for i := 1; i <= doc.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	doc.Text = sb.String()
	return doc, nil
}
