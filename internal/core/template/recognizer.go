package template

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mkoehler/docsort/internal/core/domain"
)

// Cue weights of the combined score. Patterns and keywords carry most of the
// signal; structural markers refine it.
const (
	patternWeight    = 0.4
	keywordWeight    = 0.4
	structuralWeight = 0.2
)

// Recognizer scores raw text against its fixed template registry. Stateless
// after construction; safe for concurrent use.
type Recognizer struct {
	templates []Template
}

func NewRecognizer(templates []Template) *Recognizer {
	if templates == nil {
		templates = DefaultRegistry()
	}
	return &Recognizer{templates: templates}
}

func (r *Recognizer) Templates() []Template {
	return r.templates
}

// Recognize returns the highest-scoring template above its threshold, or nil
// when the document stays untemplated. Ties break by registry declaration
// order.
func (r *Recognizer) Recognize(text, filename string) *domain.TemplateMatch {
	matches := r.RecognizeAll(text, filename)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// RecognizeAll scores every template independently and returns all matches
// that cleared their threshold, ranked best-first.
func (r *Recognizer) RecognizeAll(text, filename string) []domain.TemplateMatch {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	type candidate struct {
		tpl   Template
		score float64
	}
	var candidates []candidate
	for _, tpl := range r.templates {
		if score := r.score(tpl, text, filename); score >= tpl.Threshold {
			candidates = append(candidates, candidate{tpl: tpl, score: score})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Stable sort keeps registry declaration order on equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	matches := make([]domain.TemplateMatch, 0, len(candidates))
	for i, c := range candidates {
		matches = append(matches, domain.TemplateMatch{
			TemplateID:   c.tpl.ID,
			DocumentType: c.tpl.DocumentType,
			Confidence:   c.score,
			Rank:         i + 1,
			Fields:       extractFields(c.tpl.DocumentType, text),
		})
	}
	return matches
}

func (r *Recognizer) score(tpl Template, text, filename string) float64 {
	lower := strings.ToLower(text)
	filenameLower := strings.ToLower(filename)

	patternHits := 0
	for _, re := range tpl.Patterns {
		if re.MatchString(text) {
			patternHits++
		}
	}
	keywordHits := 0
	for _, kw := range tpl.Keywords {
		if strings.Contains(lower, kw) || strings.Contains(filenameLower, kw) {
			keywordHits++
		}
	}
	structuralHits := 0
	for _, marker := range tpl.StructuralMarkers {
		if strings.Contains(lower, marker) {
			structuralHits++
		}
	}

	score := 0.0
	if len(tpl.Patterns) > 0 {
		score += float64(patternHits) / float64(len(tpl.Patterns)) * patternWeight
	}
	if len(tpl.Keywords) > 0 {
		score += float64(keywordHits) / float64(len(tpl.Keywords)) * keywordWeight
	}
	if len(tpl.StructuralMarkers) > 0 {
		score += float64(structuralHits) / float64(len(tpl.StructuralMarkers)) * structuralWeight
	}
	return score
}

var (
	invoiceNumberRe  = regexp.MustCompile(`(?i)(?:rechnung|invoice|rg|inv)[^\w]*nr\.?\s*:?\s*([A-Z0-9\-/]+)`)
	taxIDRe          = regexp.MustCompile(`(?i)ust[-\s]*id\.?\s*:?\s*([A-Z]{2}\d+)`)
	amountRe         = regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})*[.,]\d{2})\s*(?:€|EUR)`)
	ibanRe           = regexp.MustCompile(`IBAN\s*:?\s*([A-Z]{2}\d{2}[\d ]{12,30})`)
	contractNumberRe = regexp.MustCompile(`(?i)(?:vertrag|contract|kunden)[^\w]*nr\.?\s*:?\s*([A-Z0-9\-/]+)`)
	contractEndRe    = regexp.MustCompile(`(?i)(?:laufzeit|gültig)\s+bis\s+([0-9./\-]+)`)
)

// extractFields pulls type-specific metadata out of the matched document.
func extractFields(documentType, text string) map[string]string {
	fields := map[string]string{}

	if m := amountRe.FindStringSubmatch(text); m != nil {
		fields["amount"] = m[1]
	}

	switch documentType {
	case "invoice":
		if m := invoiceNumberRe.FindStringSubmatch(text); m != nil {
			fields["invoice_number"] = m[1]
		}
		if m := taxIDRe.FindStringSubmatch(text); m != nil {
			fields["tax_id"] = m[1]
		}
	case "contract":
		if m := contractNumberRe.FindStringSubmatch(text); m != nil {
			fields["contract_number"] = m[1]
		}
		if m := contractEndRe.FindStringSubmatch(text); m != nil {
			fields["end_date"] = m[1]
		}
	case "bank_statement":
		if m := ibanRe.FindStringSubmatch(text); m != nil {
			fields["iban"] = strings.ReplaceAll(m[1], " ", "")
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}
