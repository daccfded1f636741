package pdftext

import (
	"context"
	"errors"

	"github.com/ledongthuc/pdf"

	"github.com/mkoehler/docsort/internal/core/domain"
)

const previewLimit = 2048

var errEmptyDocument = errors.New("document has no pages")

// Preview returns the first-page text block of a document. The UI layer
// treats the bytes as opaque preview content.
type Preview struct{}

func NewPreview() *Preview {
	return &Preview{}
}

func (p *Preview) RenderPreview(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "open pdf", err)
	}
	defer file.Close()

	if reader.NumPage() < 1 {
		return nil, domain.WrapError(domain.ErrExtraction, "render preview", errEmptyDocument)
	}
	page := reader.Page(1)
	text, err := page.GetPlainText(nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "render preview", err)
	}
	if len(text) > previewLimit {
		text = text[:previewLimit]
	}
	return []byte(text), nil
}
