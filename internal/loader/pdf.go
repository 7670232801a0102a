package loader

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"legalrag/internal/domain"
)

// PDFLoader extracts plain text page by page.
type PDFLoader struct{}

// NewPDFLoader creates a PDF loader.
func NewPDFLoader() *PDFLoader { return &PDFLoader{} }

// Load reads every page of the PDF at path. Parser panics on malformed input are
// reported as a *domain.DocumentLoadError.
func (l *PDFLoader) Load(path string) (doc domain.Document, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		return domain.Document{}, &domain.DocumentLoadError{Path: path, Err: statErr}
	}
	defer func() {
		if r := recover(); r != nil {
			doc = domain.Document{}
			err = &domain.DocumentLoadError{Path: path, Err: fmt.Errorf("corrupt pdf: %v", r)}
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return domain.Document{}, &domain.DocumentLoadError{Path: path, Err: err}
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return domain.Document{}, &domain.DocumentLoadError{Path: path, Err: fmt.Errorf("page %d: %w", i, err)}
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return newDocument(path, pages)
}
