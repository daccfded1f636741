package domain

import "strings"

// Keyword is a weighted cue for the fallback scorer.
type Keyword struct {
	Term   string `json:"term" yaml:"term"`
	Weight int    `json:"weight" yaml:"weight"`
}

// Category is one valid classification target. DocumentTypes lists the
// template document types that boost this category during fallback scoring.
type Category struct {
	Name          string    `json:"name" yaml:"name"`
	Keywords      []Keyword `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	DocumentTypes []string  `json:"document_types,omitempty" yaml:"document_types,omitempty"`
	Subcategories []string  `json:"subcategories,omitempty" yaml:"subcategories,omitempty"`
}

// CategorySet is the ordered, read-only set of valid classification targets.
// Order is significant: fallback ties break by declaration order. The set is
// frozen per job; changes apply only to subsequently created jobs.
type CategorySet struct {
	Categories []Category `json:"categories" yaml:"categories"`
	Default    string     `json:"default" yaml:"default"`
}

func (s CategorySet) Names() []string {
	names := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		names = append(names, c.Name)
	}
	return names
}

func (s CategorySet) Contains(name string) bool {
	for _, c := range s.Categories {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// Resolve returns the canonical category for a possibly differently-cased
// name, or false when the name is outside the set.
func (s CategorySet) Resolve(name string) (Category, bool) {
	for _, c := range s.Categories {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, true
		}
	}
	return Category{}, false
}

func (s CategorySet) DefaultCategory() Category {
	if c, ok := s.Resolve(s.Default); ok {
		return c
	}
	if len(s.Categories) > 0 {
		return s.Categories[0]
	}
	return Category{Name: s.Default}
}
