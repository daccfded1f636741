package classify

import (
	"strings"

	"github.com/mkoehler/docsort/internal/core/domain"
)

// Weighted bonus applied when the template match's document type is listed
// on a category, and the hit margin above which fallback confidence is
// reported as medium instead of low. Fallback never reports high.
const (
	templateBoost    = 3
	mediumHitsMargin = 3
)

// fallbackScorer is the deterministic keyword-weighted classifier used when
// the AI service is unavailable or not trusted. Identical text and catalog
// always produce the identical result.
type fallbackScorer struct {
	categories domain.CategorySet
}

func (s fallbackScorer) classify(text, filename string, tm *domain.TemplateMatch) domain.ClassificationResult {
	lower := strings.ToLower(text)
	filenameLower := strings.ToLower(filename)

	bestScore := 0
	best := domain.Category{}
	for _, cat := range s.categories.Categories {
		score := 0
		for _, kw := range cat.Keywords {
			term := strings.ToLower(kw.Term)
			if term == "" {
				continue
			}
			score += kw.Weight * strings.Count(lower, term)
			if strings.Contains(filenameLower, term) {
				score += kw.Weight
			}
		}
		if tm != nil && categoryListsType(cat, tm.DocumentType) {
			score += templateBoost
		}
		// Strictly greater keeps declaration order on ties.
		if score > bestScore {
			bestScore = score
			best = cat
		}
	}

	if bestScore == 0 {
		return domain.ClassificationResult{
			Category:   s.categories.DefaultCategory().Name,
			Confidence: domain.ConfidenceLow,
			Source:     domain.SourceFallback,
		}
	}

	confidence := domain.ConfidenceLow
	if bestScore >= mediumHitsMargin {
		confidence = domain.ConfidenceMedium
	}
	return domain.ClassificationResult{
		Category:   best.Name,
		Confidence: confidence,
		Source:     domain.SourceFallback,
	}
}

func categoryListsType(cat domain.Category, documentType string) bool {
	for _, t := range cat.DocumentTypes {
		if strings.EqualFold(t, documentType) {
			return true
		}
	}
	return false
}
