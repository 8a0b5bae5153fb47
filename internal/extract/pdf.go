package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

func extractPDF(content []byte) (*Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	result := &Result{Pages: make([]Page, 0, numPages)}
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			result.Pages = append(result.Pages, Page{PageNumber: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			result.Pages = append(result.Pages, Page{PageNumber: i})
			continue
		}
		result.Pages = append(result.Pages, Page{PageNumber: i, Text: text})
	}
	return result, nil
}
