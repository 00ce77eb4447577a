// Package model defines the shared data types for document processing:
// documents, pages, their status progression, and progress events.
package model

import (
	"strings"
	"time"
)

// FileType is the declared kind of an uploaded source file.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeImage FileType = "image"
)

// supportedExts maps upload file extensions to their declared type.
var supportedExts = map[string]FileType{
	"pdf":  FileTypePDF,
	"png":  FileTypeImage,
	"jpg":  FileTypeImage,
	"jpeg": FileTypeImage,
	"tiff": FileTypeImage,
}

// FileTypeFromExt resolves a file extension (without dot, any case) to a
// FileType. Returns false for unsupported extensions.
func FileTypeFromExt(ext string) (FileType, bool) {
	ft, ok := supportedExts[strings.ToLower(ext)]
	return ft, ok
}

// SupportedExts returns the accepted upload extensions, for error messages.
func SupportedExts() []string {
	return []string{"pdf", "png", "jpg", "jpeg", "tiff"}
}

// Page is one page of a document. The text fields fill in progressively as
// the page moves through the stages; a retry overwrites rather than appends.
type Page struct {
	PageNumber    int    `json:"page_number" bson:"page_number"`
	OriginalText  string `json:"original_text,omitempty" bson:"original_text,omitempty"`
	LegalEnglish  string `json:"legal_english,omitempty" bson:"legal_english,omitempty"`
	SimpleEnglish string `json:"simple_english,omitempty" bson:"simple_english,omitempty"`
	Status        Status `json:"status" bson:"status"`
	FailureReason string `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
}

// Document is one uploaded artifact under processing.
type Document struct {
	ID         string    `json:"document_id" bson:"_id"`
	FileName   string    `json:"file_name" bson:"file_name"`
	FileType   FileType  `json:"file_type" bson:"file_type"`
	FilePath   string    `json:"file_path,omitempty" bson:"file_path,omitempty"`
	ClientName string    `json:"client_name,omitempty" bson:"client_name,omitempty"`
	TotalPages int       `json:"total_pages" bson:"total_pages"`
	Status     Status    `json:"status" bson:"status"`
	Pages      []Page    `json:"pages" bson:"pages"`
	Summary    string    `json:"summary,omitempty" bson:"summary,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// SucceededPages returns the pages that made it through simplification,
// in page order. Used to build the document summary.
func (d *Document) SucceededPages() []Page {
	var out []Page
	for _, p := range d.Pages {
		if p.Status == StatusSimplificationCompleted || p.Status == StatusCompleted {
			out = append(out, p)
		}
	}
	return out
}
