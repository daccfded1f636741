package lmstudio

import (
	"strings"

	"github.com/mkoehler/docsort/internal/core/ports"
)

const systemPrompt = `You are a filing assistant for scanned German household documents.
Pick exactly one category from the provided list.
Return a strict JSON object with keys:
category (string, one of the provided categories), subcategory (string, may be empty), confidence (number from 0 to 1).
No markdown, no extra keys.`

const maxSnippet = 4000

func buildUserPrompt(req ports.InferenceRequest) string {
	snippet := req.Text
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, cat := range req.Categories {
		b.WriteString("- ")
		b.WriteString(cat)
		b.WriteString("\n")
	}
	b.WriteString("\nFilename: ")
	b.WriteString(req.Filename)
	if req.TemplateHint != "" {
		b.WriteString("\nDetected document type: ")
		b.WriteString(req.TemplateHint)
	}
	b.WriteString("\n\nDocument text:\n")
	b.WriteString(snippet)
	return b.String()
}
