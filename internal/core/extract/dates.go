package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mkoehler/docsort/internal/core/domain"
)

// dateRule is one entry of the ordered matching table. Rules run in
// declaration order, most specific first; a later rule never claims text
// already claimed by an earlier one.
type dateRule struct {
	name         string
	re           *regexp.Regexp
	parse        func(groups []string) (time.Time, bool)
	twoDigitYear bool
}

var monthsByName = map[string]time.Month{
	"januar": time.January, "februar": time.February, "märz": time.March,
	"april": time.April, "mai": time.May, "juni": time.June,
	"juli": time.July, "august": time.August, "september": time.September,
	"oktober": time.October, "november": time.November, "dezember": time.December,
	"jan": time.January, "feb": time.February, "mär": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "okt": time.October,
	"nov": time.November, "dez": time.December,
}

var dateRules = []dateRule{
	{
		name: "iso",
		re:   regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`),
		parse: func(g []string) (time.Time, bool) {
			return makeDate(atoi(g[1]), atoi(g[2]), atoi(g[3]))
		},
	},
	{
		name: "dmy",
		re:   regexp.MustCompile(`\b(\d{1,2})[./](\d{1,2})[./](\d{4})\b`),
		parse: func(g []string) (time.Time, bool) {
			return makeDate(atoi(g[3]), atoi(g[2]), atoi(g[1]))
		},
	},
	{
		name: "named-month",
		re: regexp.MustCompile(`(?i)\b(\d{1,2})\.\s*(Januar|Februar|März|April|Mai|Juni|Juli|August|September|Oktober|November|Dezember|Jan|Feb|Mär|Apr|Jun|Jul|Aug|Sep|Okt|Nov|Dez)\.?\s*(\d{4})\b`),
		parse: func(g []string) (time.Time, bool) {
			month, ok := monthsByName[strings.ToLower(g[2])]
			if !ok {
				return time.Time{}, false
			}
			return makeDate(atoi(g[3]), int(month), atoi(g[1]))
		},
	},
	{
		name:         "dmy-short",
		re:           regexp.MustCompile(`\b(\d{1,2})[./](\d{1,2})[./](\d{2})\b`),
		twoDigitYear: true,
		parse: func(g []string) (time.Time, bool) {
			yy := atoi(g[3])
			year := 1900 + yy
			if yy < 50 {
				year = 2000 + yy
			}
			return makeDate(year, atoi(g[2]), atoi(g[1]))
		},
	},
}

// DateExtractor finds and disambiguates calendar dates in raw document text.
type DateExtractor struct {
	rules []dateRule
}

func NewDateExtractor() *DateExtractor {
	return &DateExtractor{rules: dateRules}
}

type span struct{ start, end int }

// Extract returns all valid dates in document order, each tagged with the
// rule that matched. The two-digit-year rule is suppressed entirely when any
// four-digit-year form is present in the text, so a short-year pattern can
// never claim a substring of a longer match.
func (e *DateExtractor) Extract(text string) []domain.ExtractedDate {
	var (
		out     []domain.ExtractedDate
		claimed []span
		seen    = map[time.Time]bool{}
		longHit bool
	)

	for _, rule := range e.rules {
		if rule.twoDigitYear && longHit {
			continue
		}
		for _, idx := range rule.re.FindAllStringSubmatchIndex(text, -1) {
			// Any four-digit-year form, valid or not, disables the
			// short-year rule for the whole text.
			if !rule.twoDigitYear {
				longHit = true
			}
			s := span{start: idx[0], end: idx[1]}
			if overlaps(claimed, s) {
				continue
			}
			groups := make([]string, 0, len(idx)/2)
			for i := 0; i < len(idx); i += 2 {
				groups = append(groups, text[idx[i]:idx[i+1]])
			}
			date, ok := rule.parse(groups)
			if !ok {
				continue
			}
			claimed = append(claimed, s)
			if seen[date] {
				continue
			}
			seen[date] = true
			out = append(out, domain.ExtractedDate{Date: date, Pattern: rule.name, Offset: s.start})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// SelectDate applies the selection policy: the most recent date not later
// than now, falling back to the first date in document order. The zero value
// with false means no date at all; a date is never invented.
func SelectDate(dates []domain.ExtractedDate, now time.Time) (time.Time, bool) {
	if len(dates) == 0 {
		return time.Time{}, false
	}
	var best time.Time
	for _, d := range dates {
		if d.Date.After(now) {
			continue
		}
		if d.Date.After(best) {
			best = d.Date
		}
	}
	if !best.IsZero() {
		return best, true
	}
	return dates[0].Date, true
}

func makeDate(year, month, day int) (time.Time, bool) {
	if year < 1900 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func overlaps(claimed []span, s span) bool {
	for _, c := range claimed {
		if s.start < c.end && c.start < s.end {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
