package loader

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"legalrag/internal/domain"
)

// ForPath returns the loader matching the file extension of path.
func ForPath(path string) (domain.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDFLoader(), nil
	case ".txt":
		return NewTextLoader(), nil
	default:
		return nil, &domain.DocumentLoadError{Path: path, Err: fmt.Errorf("unsupported file type %q", filepath.Ext(path))}
	}
}

// Auto dispatches on the file extension at load time.
type Auto struct{}

// Load implements domain.Loader.
func (Auto) Load(path string) (domain.Document, error) {
	l, err := ForPath(path)
	if err != nil {
		return domain.Document{}, err
	}
	return l.Load(path)
}

func newDocument(path string, pages []domain.Page) (domain.Document, error) {
	nonEmpty := 0
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return domain.Document{}, &domain.DocumentLoadError{Path: path, Err: fmt.Errorf("no extractable text")}
	}
	return domain.Document{
		ID:     hashString(filepath.Base(path)),
		Path:   path,
		Source: filepath.Base(path),
		Pages:  pages,
	}, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
