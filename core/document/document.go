// Package document defines the immutable document entity at the head of the
// retrieval pipeline.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const idLength = 16

// Document is an uploaded text with a content-derived identity. Re-uploading
// identical content yields the same ID; changed content supersedes the old
// document under a new ID.
type Document struct {
	ID          string
	RawText     string
	UploadedAt  time.Time
	SourceLabel string
}

// New derives a Document from raw text. The ID is a truncated sha256 of the
// content, stable across re-uploads.
func New(rawText, sourceLabel string) Document {
	return Document{
		ID:          HashID(rawText),
		RawText:     rawText,
		UploadedAt:  time.Now().UTC(),
		SourceLabel: sourceLabel,
	}
}

// WithID builds a Document with a caller-supplied ID, used when the upload
// layer already assigned one.
func WithID(id, rawText, sourceLabel string) Document {
	return Document{
		ID:          id,
		RawText:     rawText,
		UploadedAt:  time.Now().UTC(),
		SourceLabel: sourceLabel,
	}
}

// HashID returns the content-derived identifier for raw text.
func HashID(rawText string) string {
	sum := sha256.Sum256([]byte(rawText))
	return hex.EncodeToString(sum[:])[:idLength]
}

// Empty reports whether the document has no ingestible content.
func (d Document) Empty() bool {
	for _, r := range d.RawText {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
