// Package extract provides text extraction from PDF documents.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Page holds the extracted text of a single PDF page.
type Page struct {
	PageNumber int // 1-based
	Text       string
}

// Result is the outcome of extracting a document.
type Result struct {
	Pages []Page
}

// PageCount returns the number of pages in the source document,
// including pages that yielded no text.
func (r *Result) PageCount() int {
	return len(r.Pages)
}

// Text returns the concatenated page texts separated by newlines.
func (r *Result) Text() string {
	parts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// CharCount returns the total number of extracted characters.
func (r *Result) CharCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len([]rune(p.Text))
	}
	return n
}

// Empty reports whether extraction produced no text at all.
func (r *Result) Empty() bool {
	for _, p := range r.Pages {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}

// Extractor extracts text from PDF files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the PDF at path and returns its pages in order.
// Returns an error if the file cannot be read, is not a PDF, or the
// PDF structure cannot be parsed.
func (e *Extractor) Extract(path string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return nil, fmt.Errorf("unsupported file type %q: only PDF is supported", ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content)
}

// ExtractBytes extracts pages from raw PDF content.
func (e *Extractor) ExtractBytes(content []byte) (*Result, error) {
	return extractPDF(content)
}
