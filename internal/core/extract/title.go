package extract

import (
	"strings"
	"unicode"
)

const (
	titleWindowBytes = 1500
	titleWindowLines = 30
	maxCandidateLen  = 48
)

// titleKeywords maps document-type cues to the canonical label used in
// filenames. Order is priority: the first hit wins the title slot.
var titleKeywords = []struct {
	term  string
	label string
}{
	{"kündigung", "Kündigung"},
	{"rechnung", "Rechnung"},
	{"invoice", "Rechnung"},
	{"mahnung", "Mahnung"},
	{"arbeitsvertrag", "Arbeitsvertrag"},
	{"mietvertrag", "Mietvertrag"},
	{"vertrag", "Vertrag"},
	{"contract", "Vertrag"},
	{"kontoauszug", "Kontoauszug"},
	{"versicherungsschein", "Versicherungsschein"},
	{"police", "Police"},
	{"bescheid", "Bescheid"},
	{"angebot", "Angebot"},
	{"mitteilung", "Mitteilung"},
	{"bescheinigung", "Bescheinigung"},
}

// letterheadMarkers flag lines that look like an organization letterhead.
// Matched against whole tokens only.
var letterheadMarkers = map[string]bool{
	"gmbh": true, "ag": true, "kg": true, "e.v.": true, "se": true,
	"mbh": true, "bank": true, "sparkasse": true, "versicherung": true,
	"krankenkasse": true,
}

// TitleExtractor finds a short human-meaningful label for a document by
// scanning a bounded window of its text. Purely textual pattern matching.
type TitleExtractor struct {
	extra []string
}

// NewTitleExtractor accepts configured keyword equivalents appended after the
// built-in table.
func NewTitleExtractor(extraKeywords ...string) *TitleExtractor {
	return &TitleExtractor{extra: extraKeywords}
}

// Extract returns the best title candidate and a ranked list of secondary
// keyword/company candidates, all capped for downstream display.
func (e *TitleExtractor) Extract(text string) (string, []string) {
	window := windowOf(text)
	lower := strings.ToLower(window)

	var title string
	var candidates []string
	seen := map[string]bool{}

	add := func(c string) {
		c = capRunes(strings.TrimSpace(c), maxCandidateLen)
		if c == "" || seen[strings.ToLower(c)] {
			return
		}
		seen[strings.ToLower(c)] = true
		if title == "" {
			title = c
			return
		}
		candidates = append(candidates, c)
	}

	for _, kw := range titleKeywords {
		if strings.Contains(lower, kw.term) {
			add(kw.label)
		}
	}
	for _, term := range e.extra {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			add(capitalize(term))
		}
	}
	for _, company := range letterheadCompanies(window) {
		add(company)
	}

	return title, candidates
}

func windowOf(text string) string {
	if len(text) > titleWindowBytes {
		text = text[:titleWindowBytes]
	}
	lines := strings.SplitN(text, "\n", titleWindowLines+1)
	if len(lines) > titleWindowLines {
		lines = lines[:titleWindowLines]
	}
	return strings.Join(lines, "\n")
}

func letterheadCompanies(window string) []string {
	var out []string
	for _, line := range strings.Split(window, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || len(trimmed) > 80 {
			continue
		}
		for _, token := range strings.Fields(strings.ToLower(trimmed)) {
			if letterheadMarkers[strings.Trim(token, ",;:()")] {
				out = append(out, trimmed)
				break
			}
		}
	}
	return out
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func capRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRightFunc(string(runes[:n]), unicode.IsSpace)
}
