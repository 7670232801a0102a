package loader

import (
	"os"
	"strings"

	"legalrag/internal/domain"
)

// TextLoader reads UTF-8 text files; form feeds separate pages.
type TextLoader struct{}

// NewTextLoader creates a plain-text loader.
func NewTextLoader() *TextLoader { return &TextLoader{} }

// Load implements domain.Loader.
func (l *TextLoader) Load(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, &domain.DocumentLoadError{Path: path, Err: err}
	}
	parts := strings.Split(string(data), "\f")
	pages := make([]domain.Page, len(parts))
	for i, p := range parts {
		pages[i] = domain.Page{Number: i + 1, Text: p}
	}
	return newDocument(path, pages)
}
