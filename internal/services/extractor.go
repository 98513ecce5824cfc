package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageSeparator is written between the text of consecutive pages.
const PageSeparator = "\n"

var ErrExtractionFailure = errors.New("text extraction failed")

// Extractor converts a parsed document into plain text.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract visits pages in document order and emits each page's text in content
// stream order. Null pages are skipped. No whitespace normalization is applied.
func (e *Extractor) Extract(doc *ParsedDocument) (text string, err error) {
	if doc == nil || doc.reader == nil {
		return "", fmt.Errorf("%w: document is not loaded", ErrExtractionFailure)
	}
	if doc.Encrypted {
		return "", fmt.Errorf("%s/%s: %w: %w", doc.Bucket, doc.Key, ErrExtractionFailure, ErrEncryptedDocument)
	}

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%s/%s: %w: panic: %v", doc.Bucket, doc.Key, ErrExtractionFailure, r)
		}
	}()

	pages := make([]string, 0, doc.PageCount)
	for i := 1; i <= doc.reader.NumPage(); i++ {
		page := doc.reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("%s/%s page %d: %w: %v", doc.Bucket, doc.Key, i, ErrExtractionFailure, err)
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, PageSeparator), nil
}
