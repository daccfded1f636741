package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mkoehler/docsort/internal/core/domain"
)

// LoadCategorySet reads the category catalog from a YAML file. The catalog
// defines the ordered category set plus the keyword weights the fallback
// scorer uses. Validation happens here, at load time.
func LoadCategorySet(path string) (domain.CategorySet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.CategorySet{}, fmt.Errorf("read category catalog: %w", err)
	}
	return ParseCategorySet(raw)
}

func ParseCategorySet(raw []byte) (domain.CategorySet, error) {
	var set domain.CategorySet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return domain.CategorySet{}, fmt.Errorf("parse category catalog: %w", err)
	}
	if len(set.Categories) == 0 {
		return domain.CategorySet{}, domain.WrapError(domain.ErrInvalidInput, "parse category catalog", fmt.Errorf("no categories defined"))
	}
	seen := map[string]bool{}
	for i := range set.Categories {
		c := &set.Categories[i]
		if c.Name == "" {
			return domain.CategorySet{}, domain.WrapError(domain.ErrInvalidInput, "parse category catalog", fmt.Errorf("category %d has no name", i))
		}
		if seen[c.Name] {
			return domain.CategorySet{}, domain.WrapError(domain.ErrInvalidInput, "parse category catalog", fmt.Errorf("duplicate category %q", c.Name))
		}
		seen[c.Name] = true
		for j := range c.Keywords {
			if c.Keywords[j].Weight <= 0 {
				c.Keywords[j].Weight = 1
			}
		}
	}
	if set.Default != "" && !set.Contains(set.Default) {
		return domain.CategorySet{}, domain.WrapError(domain.ErrInvalidCategory, "parse category catalog", fmt.Errorf("default category %q is not defined", set.Default))
	}
	// Catalogs list their catch-all category last (12 Schriftverkehr in the
	// shipped catalog), so an omitted default resolves to the last declared
	// category.
	if set.Default == "" {
		set.Default = set.Categories[len(set.Categories)-1].Name
	}
	return set, nil
}
