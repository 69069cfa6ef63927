package ingestion

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

type docxDocument struct {
	Text        string
	Paragraphs  int
	HasTables   bool
	HasImages   bool
	HasHeadings bool
	HasLists    bool
	// Warnings counts content that cannot be rendered as text, such as
	// embedded objects and text boxes.
	Warnings int
}

func (d *docxDocument) metadata() Metadata {
	return Metadata{
		Paragraphs:  d.Paragraphs,
		HasTables:   d.HasTables,
		HasImages:   d.HasImages,
		HasHeadings: d.HasHeadings,
		HasLists:    d.HasLists,
	}
}

func extractDOCX(data []byte) (*docxDocument, error) {
	file, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("the file may be corrupted or password-protected: %w", err)
	}
	defer func() { _ = file.Close() }()

	return walkDocumentXML(file.Editable().GetContent())
}

// walkDocumentXML converts WordprocessingML to text. Paragraphs and breaks
// become newlines, tabs stay tabs.
func walkDocumentXML(content string) (*docxDocument, error) {
	doc := &docxDocument{}
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid document XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br", "cr":
				sb.WriteString("\n")
			case "tbl":
				doc.HasTables = true
			case "drawing", "pict":
				doc.HasImages = true
			case "numPr":
				doc.HasLists = true
			case "pStyle":
				if isHeadingStyle(attr(t, "val")) {
					doc.HasHeadings = true
				}
			case "object", "txbxContent", "AlternateContent":
				doc.Warnings++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				doc.Paragraphs++
				sb.WriteString("\n")
			case "tc":
				sb.WriteString("\t")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	doc.Text = sb.String()
	return doc, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func isHeadingStyle(style string) bool {
	style = strings.ToLower(style)
	return strings.HasPrefix(style, "heading") || style == "title"
}
