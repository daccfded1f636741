package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/mkoehler/docsort/internal/core/domain"
)

const dateLayout = "2006-01-02"

// Scanner artifact tokens stripped from any input filename or title before
// assembly.
var artifactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[#_]*scanbot[#_]*`),
	regexp.MustCompile(`(?i)[#_]*gescanntes?\s*dokument[#_]*`),
	regexp.MustCompile(`(?i)[#_]*scan[#_]*`),
	regexp.MustCompile(`\b\d{6,}\b`),
}

var (
	leadingDatePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[_\s-]+`)
	leadingDateJunk   = regexp.MustCompile(`^[\d\-./]+[_\s]*`)
	separatorRuns     = regexp.MustCompile(`[_\s]+`)
	labelCharset      = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)
)

// FilenameGenerator composes standardized filenames of the form
// {selected-date}_{cleaned-title-or-category}.pdf. It only suggests; the
// rename itself is performed by the file service with the suggested name.
type FilenameGenerator struct {
	dates  *DateExtractor
	titles *TitleExtractor
	now    func() time.Time
}

func NewFilenameGenerator(dates *DateExtractor, titles *TitleExtractor, now func() time.Time) *FilenameGenerator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &FilenameGenerator{dates: dates, titles: titles, now: now}
}

// Suggest derives a filename suggestion from document text, the original
// filename and the classified category. A date already standardized into the
// original filename is reused when the text yields none, which makes Suggest
// idempotent on its own output; a date is never invented.
func (g *FilenameGenerator) Suggest(originalFilename, text, category string) domain.FilenameSuggestion {
	dates := g.dates.Extract(text)
	selected, found := SelectDate(dates, g.now())
	source := domain.DateFromContent

	base, nameDate, standardized := splitStandardized(originalFilename)
	if !found {
		if standardized {
			selected, found = nameDate, true
			source = domain.DateFromFilename
		} else {
			source = domain.DateNone
		}
	}

	title, candidates := g.titles.Extract(text)

	label := ""
	switch {
	case standardized && base != "":
		// Already-clean names keep their label so re-running the
		// generator is a no-op.
		label = base
	case title != "":
		label = slugify(title)
	case base != "":
		label = base
	default:
		label = slugify(stripCategoryOrdinal(category))
	}
	if label == "" {
		label = "dokument"
	}

	suggested := label + ".pdf"
	if found {
		suggested = selected.Format(dateLayout) + "_" + label + ".pdf"
	}

	return domain.FilenameSuggestion{
		OriginalFilename:  originalFilename,
		SuggestedFilename: suggested,
		Dates:             dates,
		SelectedDate:      selected,
		DateSource:        source,
		DateMissing:       !found,
		Title:             title,
		Candidates:        candidates,
	}
}

// splitStandardized detects a name the generator itself produced earlier:
// an ISO date prefix followed by an already-clean label.
func splitStandardized(filename string) (base string, date time.Time, ok bool) {
	name := strings.TrimSuffix(filename, ".pdf")
	name = strings.TrimSuffix(name, ".PDF")

	m := leadingDatePrefix.FindStringSubmatch(name)
	if m == nil {
		return cleanName(name), time.Time{}, false
	}
	parsed, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return cleanName(name), time.Time{}, false
	}
	rest := name[len(m[0]):]
	cleaned := cleanName(rest)
	if cleaned != slugify(rest) {
		// The remainder still carries artifacts, so this is not a name
		// we produced; treat the date as an ordinary filename date.
		return cleaned, parsed, false
	}
	return cleaned, parsed, true
}

// cleanName strips scanner artifacts, leading date junk and separator runs
// from a filename stem.
func cleanName(name string) string {
	for _, re := range artifactPatterns {
		name = re.ReplaceAllString(name, "")
	}
	name = leadingDateJunk.ReplaceAllString(strings.TrimSpace(name), "")
	return slugify(name)
}

func slugify(s string) string {
	s = separatorRuns.ReplaceAllString(strings.TrimSpace(s), "_")
	s = labelCharset.ReplaceAllString(s, "")
	s = strings.Trim(s, "_-")
	s = strings.ToLower(s)
	return capRunes(s, 60)
}

// stripCategoryOrdinal removes sort prefixes like "03 " from category
// directory names before they are used as labels.
func stripCategoryOrdinal(category string) string {
	return strings.TrimLeft(category, "0123456789 _")
}
