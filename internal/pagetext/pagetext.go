// Package pagetext supplies the positioned text lines of a document page,
// the input the snippet matcher works on.
package pagetext

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/orgmark/internal/textmatch"
)

// ErrPageOutOfRange is returned for a page index the document lacks.
var ErrPageOutOfRange = errors.New("page out of range")

// Source returns text lines for 0-based page indexes. Line geometry uses
// a top-left origin in the document's own units.
type Source interface {
	NumPages() int
	TextLines(ctx context.Context, page int) ([]textmatch.TextLine, error)
	Close() error
}

// SupportedExtensions lists document types a Source can be opened for.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".hocr": true,
	".html": true,
	".htm":  true,
}

// Open returns the Source for a document path, chosen by extension.
func Open(path string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return OpenPDF(path)
	case ".hocr", ".html", ".htm":
		return OpenHOCR(path)
	default:
		return nil, fmt.Errorf("unsupported document extension: %s", ext)
	}
}

// IsSupportedExtension checks if a document path can be opened.
func IsSupportedExtension(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Static is an in-memory Source, one slice of lines per page.
type Static struct {
	Pages [][]textmatch.TextLine
}

func (s *Static) NumPages() int { return len(s.Pages) }

func (s *Static) TextLines(ctx context.Context, page int) ([]textmatch.TextLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 0 || page >= len(s.Pages) {
		return nil, fmt.Errorf("page %d: %w", page, ErrPageOutOfRange)
	}
	return s.Pages[page], nil
}

func (s *Static) Close() error { return nil }

func checkPage(page, n int) error {
	if page < 0 || page >= n {
		return fmt.Errorf("page %d of %d: %w", page, n, ErrPageOutOfRange)
	}
	return nil
}
