package pdftext

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mkoehler/docsort/internal/core/domain"
)

// Extractor reads the embedded text layer of scanned-and-OCRed PDFs. Results
// are cached per path; the cache invalidates on mtime or size change.
type Extractor struct {
	cache *Cache
}

func NewExtractor(cache *Cache) *Extractor {
	if cache == nil {
		cache = NewCache(0)
	}
	return &Extractor{cache: cache}
}

func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "stat pdf", err)
	}
	if text, ok := e.cache.Get(path, info.ModTime(), info.Size()); ok {
		return text, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "open pdf", err)
	}
	defer file.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "read pdf text", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "read pdf text", err)
	}

	text := strings.TrimSpace(string(raw))
	e.cache.Put(path, info.ModTime(), info.Size(), text)
	return text, nil
}
