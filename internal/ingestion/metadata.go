package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Metadata describes an extracted document. PDF fields are empty for DOCX
// uploads and vice versa.
type Metadata struct {
	Hash           string    `json:"hash"`
	ExtractedAt    time.Time `json:"extracted_at"`
	WordCount      int       `json:"word_count"`
	CharacterCount int       `json:"character_count"`

	Pages    int    `json:"pages,omitempty"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Producer string `json:"producer,omitempty"`

	Paragraphs  int  `json:"paragraphs,omitempty"`
	HasTables   bool `json:"has_tables,omitempty"`
	HasImages   bool `json:"has_images,omitempty"`
	HasHeadings bool `json:"has_headings,omitempty"`
	HasLists    bool `json:"has_lists,omitempty"`
}

// stamp records the content hash and extraction time.
func (m *Metadata) stamp(text string) {
	m.Hash = computeHash(text)
	m.ExtractedAt = time.Now().UTC()
}

// computeHash returns the hex SHA-256 of content.
func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
